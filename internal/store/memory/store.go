// Package memory holds an in-memory persistence gateway, used by tests and
// for running the server without a database.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/tastebase/live/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	recipes  map[string]store.Recipe
	comments map[string]store.Comment
}

func NewStore() *Store {
	return &Store{
		recipes:  make(map[string]store.Recipe),
		comments: make(map[string]store.Comment),
	}
}

// AddRecipe seeds a recipe. Recipe records are owned by the main API, so the
// gateway has no create path of its own.
func (s *Store) AddRecipe(recipe store.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipes[recipe.Id] = recipe
}

func (s *Store) GetRecipe(ctx context.Context, recipeId string) (store.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[recipeId]
	if !ok {
		return store.Recipe{}, store.ErrNotFound
	}

	return recipe, nil
}

func (s *Store) CreateComment(ctx context.Context, req store.CreateCommentRequest) (store.Comment, error) {
	id, err := gonanoid.New()
	if err != nil {
		return store.Comment{}, err
	}

	comment := store.Comment{
		Id:        id,
		RecipeId:  req.RecipeId,
		Text:      req.Text,
		Author:    req.Author,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.comments[comment.Id] = comment

	return comment, nil
}

func (s *Store) GetComment(ctx context.Context, commentId string) (store.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[commentId]
	if !ok {
		return store.Comment{}, store.ErrNotFound
	}

	return comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, commentId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentId]; !ok {
		return store.ErrNotFound
	}

	delete(s.comments, commentId)

	return nil
}

func (s *Store) ListComments(ctx context.Context, recipeId string, limit int64) ([]store.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]store.Comment, 0)
	for _, comment := range s.comments {
		if comment.RecipeId == recipeId {
			comments = append(comments, comment)
		}
	}

	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})

	if limit > 0 && int64(len(comments)) > limit {
		comments = comments[:limit]
	}

	return comments, nil
}

func (s *Store) ToggleLike(ctx context.Context, recipeId string, userId string) (store.LikeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipe, ok := s.recipes[recipeId]
	if !ok {
		return store.LikeState{}, store.ErrNotFound
	}

	if slices.Contains(recipe.LikedBy, userId) {
		recipe.LikedBy = slices.DeleteFunc(recipe.LikedBy, func(id string) bool {
			return id == userId
		})
		recipe.Likes--
		s.recipes[recipeId] = recipe

		return store.LikeState{Liked: false, Count: recipe.Likes}, nil
	}

	recipe.LikedBy = append(recipe.LikedBy, userId)
	recipe.Likes++
	s.recipes[recipeId] = recipe

	return store.LikeState{Liked: true, Count: recipe.Likes}, nil
}
