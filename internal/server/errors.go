package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/logging"
)

// ValidationDetails lists problems per request field.
type ValidationDetails struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Details *ValidationDetails `json:"details,omitempty"`
}

const errInvalidPayload = "Invalid payload"

// bindingDetails converts a gin binding error into per-field details.
func bindingDetails(err error) *ValidationDetails {
	details := &ValidationDetails{FormErrors: []string{}, FieldErrors: map[string][]string{}}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details.FieldErrors[fe.Field()] = append(details.FieldErrors[fe.Field()], fieldMessage(fe))
		}
		return details
	}

	details.FormErrors = append(details.FormErrors, err.Error())
	return details
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be an email address"
	case "min":
		return "must have at least " + fe.Param() + " item(s) or character(s)"
	case "max":
		return "must have at most " + fe.Param() + " character(s)"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}

// abortInvalid writes the 400 response for a rejected payload.
func abortInvalid(c *gin.Context, details *ValidationDetails) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidPayload, Details: details})
}

// abortWithError maps a service error to its HTTP status.
func abortWithError(c *gin.Context, logger *slog.Logger, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		abortInvalid(c, &ValidationDetails{
			FormErrors:  []string{},
			FieldErrors: map[string][]string{vErr.Field: {vErr.Reason}},
		})
	case errors.Is(err, domain.ErrThreadNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "Thread not found"})
	default:
		logger.Error("request failed",
			slog.String("path", c.FullPath()),
			logging.Err(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
