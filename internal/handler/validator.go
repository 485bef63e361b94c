package handler

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/tastebase/live/internal/ierr"
)

var validate = validator.New()

type RecipeIdValidator struct {
	recipeIdRegex *regexp.Regexp
}

func NewRecipeIdValidator() *RecipeIdValidator {
	return &RecipeIdValidator{
		recipeIdRegex: regexp.MustCompile(`^[\w-]+$`),
	}
}

func (v *RecipeIdValidator) Validate(recipeId string) error {
	valid := v.recipeIdRegex.MatchString(recipeId)
	if !valid {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid recipe id"))
	}

	return nil
}
