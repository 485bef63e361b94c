package realtime

import (
	"sync"

	"go.uber.org/zap"
)

type BroadcastOptions struct {
	// ExcludeConnectionId skips one room member, for events the sender has
	// already applied locally.
	ExcludeConnectionId string
}

// Registry tracks live connections and room membership, and fans events out
// to a room's members. Handlers never touch membership directly; they only
// go through Join, Leave and Broadcast.
type Registry interface {
	Connect(connection *Connection)
	Disconnect(connectionId string)
	Join(connectionId string, roomId string)
	Leave(connectionId string, roomId string)
	Broadcast(roomId string, event Event, opts BroadcastOptions)
	Send(connectionId string, event Event)
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections       map[string]*Connection
	connectionsByRoom map[string]map[string]struct{}
	roomsByConnection map[string]map[string]struct{}
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:            logger,
		connections:       make(map[string]*Connection),
		connectionsByRoom: make(map[string]map[string]struct{}),
		roomsByConnection: make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryRegistry) Connect(connection *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[connection.Id] = connection
}

// Join is idempotent: joining an already-joined room is a no-op. Rooms exist
// implicitly, created on first join.
func (r *InMemoryRegistry) Join(connectionId string, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connectionId]; !ok {
		r.logger.Warn("join from unknown connection",
			zap.String("connectionId", connectionId),
			zap.String("roomId", roomId))

		return
	}

	if _, ok := r.connectionsByRoom[roomId]; !ok {
		r.connectionsByRoom[roomId] = make(map[string]struct{})
	}
	r.connectionsByRoom[roomId][connectionId] = struct{}{}

	if _, ok := r.roomsByConnection[connectionId]; !ok {
		r.roomsByConnection[connectionId] = make(map[string]struct{})
	}
	r.roomsByConnection[connectionId][roomId] = struct{}{}
}

// Leave is idempotent, including leaving a room that was never joined.
func (r *InMemoryRegistry) Leave(connectionId string, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connectionId, roomId)
}

func (r *InMemoryRegistry) leaveLocked(connectionId string, roomId string) {
	if connectionRooms, ok := r.roomsByConnection[connectionId]; ok {
		delete(connectionRooms, roomId)
		if len(connectionRooms) == 0 {
			delete(r.roomsByConnection, connectionId)
		}
	}

	if roomConnections, ok := r.connectionsByRoom[roomId]; ok {
		delete(roomConnections, connectionId)
		if len(roomConnections) == 0 {
			delete(r.connectionsByRoom, roomId)
		}
	}
}

// Broadcast delivers the event to every member of the room, fire-and-forget
// per connection. A member whose send buffer is full is considered stale and
// is disconnected; it never blocks delivery to the others.
func (r *InMemoryRegistry) Broadcast(roomId string, event Event, opts BroadcastOptions) {
	r.mu.RLock()

	connectionIds, ok := r.connectionsByRoom[roomId]
	if !ok {
		r.mu.RUnlock()

		return
	}

	connections := make([]*Connection, 0, len(connectionIds))
	for connectionId := range connectionIds {
		if connectionId == opts.ExcludeConnectionId {
			continue
		}
		if connection, ok := r.connections[connectionId]; ok {
			connections = append(connections, connection)
		}
	}

	var staleConnectionIds []string

	for _, connection := range connections {
		select {
		case connection.Send <- event:
		default:
			r.logger.Warn("connection send channel is full, closing connection",
				zap.String("connectionId", connection.Id),
				zap.String("roomId", roomId))

			staleConnectionIds = append(staleConnectionIds, connection.Id)
		}
	}

	r.mu.RUnlock()

	if len(staleConnectionIds) == 0 {
		return
	}

	r.mu.Lock()

	for _, connectionId := range staleConnectionIds {
		r.disconnectLocked(connectionId)
	}

	r.mu.Unlock()
}

// Send delivers an event to a single connection. Only the registry may write
// to a connection's channel after registration: Broadcast can stale-drop a
// connection and close its channel at any moment, so writes must happen under
// the registry's lock. A connection that is no longer registered is a no-op.
func (r *InMemoryRegistry) Send(connectionId string, event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connection, ok := r.connections[connectionId]
	if !ok {
		return
	}

	select {
	case connection.Send <- event:
	default:
		r.logger.Warn("dropping event, send channel is full",
			zap.String("connectionId", connectionId),
			zap.String("event", event.Event))
	}
}

// Disconnect removes the connection from every room it had joined and from
// the registry, then closes its send channel. Idempotent.
func (r *InMemoryRegistry) Disconnect(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disconnectLocked(connectionId)
}

// IMPORTANT: It must be called only when the write lock is already held.
func (r *InMemoryRegistry) disconnectLocked(connectionId string) {
	connection, ok := r.connections[connectionId]
	if !ok {
		return
	}

	for roomId := range r.roomsByConnection[connectionId] {
		roomConnections, ok := r.connectionsByRoom[roomId]
		if !ok {
			panic("inconsistent state: room not found in connectionsByRoom")
		}

		delete(roomConnections, connectionId)
		if len(roomConnections) == 0 {
			delete(r.connectionsByRoom, roomId)
		}
	}

	delete(r.roomsByConnection, connectionId)
	delete(r.connections, connectionId)
	close(connection.Send)
}
