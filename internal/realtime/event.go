package realtime

import "encoding/json"

// Event is the wire frame used in both directions: a named event plus its
// JSON payload. Inbound frames keep Data raw so each handler can decode its
// own schema.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	raw := json.RawMessage(data)

	return Event{
		Event: name,
		Data:  raw,
	}, nil
}

// ErrorPayload is sent only to the originating connection, never broadcast.
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomId derives the broadcast scope for a recipe's live viewers.
func RoomId(recipeId string) string {
	return "recipe-" + recipeId
}
