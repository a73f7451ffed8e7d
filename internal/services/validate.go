package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yoockh/mockinterview/internal/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput turns struct-tag violations into an INVALID_ARGUMENT error naming the fields.
func validateInput(op string, in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return utils.E(utils.CodeInvalidArgument, op, "invalid request", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return utils.E(utils.CodeInvalidArgument, op, strings.Join(msgs, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fmt.Sprintf("%s or %s is required", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s is out of range (%s %s)", fe.Field(), fe.Tag(), fe.Param())
	case "url", "http_url":
		return fe.Field() + " must be a valid URL"
	default:
		return fe.Field() + " is invalid"
	}
}
