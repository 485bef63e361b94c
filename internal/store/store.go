// Package store is the persistence gateway consumed by the real-time layer.
// The durable records are owned by the main tastebase API; this process only
// reads recipes and mutates comments and like state before broadcasting.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Author struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type Comment struct {
	Id        string    `json:"id"`
	RecipeId  string    `json:"-"`
	Text      string    `json:"text"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Recipe struct {
	Id        string
	Title     string
	AuthorId  string
	IsPublic  bool
	Likes     int
	LikedBy   []string
	CreatedAt time.Time
}

type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

type CreateCommentRequest struct {
	RecipeId string
	Author   Author
	Text     string
}

type Gateway interface {
	GetRecipe(ctx context.Context, recipeId string) (Recipe, error)

	CreateComment(ctx context.Context, req CreateCommentRequest) (Comment, error)
	GetComment(ctx context.Context, commentId string) (Comment, error)
	DeleteComment(ctx context.Context, commentId string) error
	ListComments(ctx context.Context, recipeId string, limit int64) ([]Comment, error)

	// ToggleLike flips the caller's like membership on the recipe and
	// returns the post-toggle state. Last-write-wins under concurrent
	// toggles from the same identity.
	ToggleLike(ctx context.Context, recipeId string, userId string) (LikeState, error)
}
