package mongodb

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tastebase/live/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type recipeDoc struct {
	Id        bson.ObjectID `bson:"_id"`
	Title     string        `bson:"title"`
	AuthorId  string        `bson:"authorId"`
	IsPublic  bool          `bson:"isPublic"`
	Likes     int           `bson:"likes"`
	LikedBy   []string      `bson:"likedBy"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type commentDoc struct {
	Id             bson.ObjectID `bson:"_id"`
	RecipeId       string        `bson:"recipeId"`
	Text           string        `bson:"text"`
	AuthorId       string        `bson:"authorId"`
	AuthorUsername string        `bson:"authorUsername"`
	CreatedAt      time.Time     `bson:"createdAt"`
}

type Store struct {
	recipes  *mongo.Collection
	comments *mongo.Collection
}

func NewStore(client *mongo.Client) *Store {
	database := client.Database("tastebase")

	return &Store{
		recipes:  database.Collection("recipes"),
		comments: database.Collection("comments"),
	}
}

func (s *Store) Setup(ctx context.Context) error {
	commentIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipeId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	_, err := s.comments.Indexes().CreateOne(ctx, commentIndexModel)
	if err != nil {
		return err
	}

	recipeIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "isPublic", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	_, err = s.recipes.Indexes().CreateOne(ctx, recipeIndexModel)

	return err
}

func (s *Store) GetRecipe(ctx context.Context, recipeId string) (store.Recipe, error) {
	objectId, err := bson.ObjectIDFromHex(recipeId)
	if err != nil {
		return store.Recipe{}, store.ErrNotFound
	}

	var doc recipeDoc
	err = s.recipes.FindOne(ctx, bson.M{"_id": objectId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Recipe{}, store.ErrNotFound
	}
	if err != nil {
		return store.Recipe{}, err
	}

	return recipeFromDoc(doc), nil
}

func (s *Store) CreateComment(ctx context.Context, req store.CreateCommentRequest) (store.Comment, error) {
	createdAt := time.Now()

	result, err := s.comments.InsertOne(ctx, bson.D{
		{Key: "recipeId", Value: req.RecipeId},
		{Key: "text", Value: req.Text},
		{Key: "authorId", Value: req.Author.Id},
		{Key: "authorUsername", Value: req.Author.Username},
		{Key: "createdAt", Value: createdAt},
	})
	if err != nil {
		return store.Comment{}, err
	}

	return store.Comment{
		Id:        result.InsertedID.(bson.ObjectID).Hex(),
		RecipeId:  req.RecipeId,
		Text:      req.Text,
		Author:    req.Author,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) GetComment(ctx context.Context, commentId string) (store.Comment, error) {
	objectId, err := bson.ObjectIDFromHex(commentId)
	if err != nil {
		return store.Comment{}, store.ErrNotFound
	}

	var doc commentDoc
	err = s.comments.FindOne(ctx, bson.M{"_id": objectId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Comment{}, store.ErrNotFound
	}
	if err != nil {
		return store.Comment{}, err
	}

	return commentFromDoc(doc), nil
}

func (s *Store) DeleteComment(ctx context.Context, commentId string) error {
	objectId, err := bson.ObjectIDFromHex(commentId)
	if err != nil {
		return store.ErrNotFound
	}

	result, err := s.comments.DeleteOne(ctx, bson.M{"_id": objectId})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) ListComments(ctx context.Context, recipeId string, limit int64) ([]store.Comment, error) {
	filter := bson.M{"recipeId": recipeId}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	result, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []commentDoc
	err = result.All(ctx, &docs)
	if err != nil {
		return nil, err
	}

	comments := make([]store.Comment, len(docs))
	for i, doc := range docs {
		comments[i] = commentFromDoc(doc)
	}

	return comments, nil
}

// ToggleLike reads the current membership and applies the inverse update.
// There is no optimistic concurrency control: a rapid double-toggle from one
// identity resolves last-write-wins.
func (s *Store) ToggleLike(ctx context.Context, recipeId string, userId string) (store.LikeState, error) {
	objectId, err := bson.ObjectIDFromHex(recipeId)
	if err != nil {
		return store.LikeState{}, store.ErrNotFound
	}

	var doc recipeDoc
	err = s.recipes.FindOne(ctx, bson.M{"_id": objectId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.LikeState{}, store.ErrNotFound
	}
	if err != nil {
		return store.LikeState{}, err
	}

	liked := slices.Contains(doc.LikedBy, userId)

	var update bson.M
	if liked {
		update = bson.M{
			"$pull": bson.M{"likedBy": userId},
			"$inc":  bson.M{"likes": -1},
		}
	} else {
		update = bson.M{
			"$addToSet": bson.M{"likedBy": userId},
			"$inc":      bson.M{"likes": 1},
		}
	}

	_, err = s.recipes.UpdateByID(ctx, objectId, update)
	if err != nil {
		return store.LikeState{}, err
	}

	if liked {
		return store.LikeState{Liked: false, Count: doc.Likes - 1}, nil
	}

	return store.LikeState{Liked: true, Count: doc.Likes + 1}, nil
}

func recipeFromDoc(doc recipeDoc) store.Recipe {
	return store.Recipe{
		Id:        doc.Id.Hex(),
		Title:     doc.Title,
		AuthorId:  doc.AuthorId,
		IsPublic:  doc.IsPublic,
		Likes:     doc.Likes,
		LikedBy:   doc.LikedBy,
		CreatedAt: doc.CreatedAt,
	}
}

func commentFromDoc(doc commentDoc) store.Comment {
	return store.Comment{
		Id:        doc.Id.Hex(),
		RecipeId:  doc.RecipeId,
		Text:      doc.Text,
		Author:    store.Author{Id: doc.AuthorId, Username: doc.AuthorUsername},
		CreatedAt: doc.CreatedAt,
	}
}
