package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// E represents an HTTP error with status code, message and optional
// field-scoped validation errors.
type E struct {
	Status  int                 `json:"-" example:"400"`
	Message string              `json:"message" example:"Bad Request"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e E) Error() string {
	return e.Message
}

// JSON returns the error as JSON response
func (e E) JSON(c *fiber.Ctx) error {
	return c.Status(e.Status).JSON(e)
}

// Fail returns the error for Fiber's global error handler to process
func Fail(err E) error {
	return err
}

// ValidationFailed wraps field-scoped validation errors in the standard
// 422 response. Input rejection is never reported with the same status as a
// missing resource.
func ValidationFailed(fields map[string][]string) error {
	return Fail(E{
		Status:  fiber.StatusUnprocessableEntity,
		Message: "Validation failed.",
		Errors:  fields,
	})
}

// NotFound returns the standard 404 response for a missing note.
func NotFound() error {
	return Fail(E{
		Status:  fiber.StatusNotFound,
		Message: "Note not found.",
	})
}

// InternalError returns an internal server error with the given message
func InternalError(message string) E {
	return E{Status: 500, Message: message}
}

// Pre-defined HTTP errors
var (
	ErrBadRequest = E{Status: 400, Message: "Bad Request"}
	ErrInternal   = InternalError("Internal Server Error")
)

// Handler is the global error handler for Fiber
func Handler(c *fiber.Ctx, err error) error {
	// Check if it's our custom error type
	var e E
	if errors.As(err, &e) {
		return e.JSON(c)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return c.Status(fiberError.Code).JSON(E{
			Status:  fiberError.Code,
			Message: fiberError.Message,
		})
	}

	return ErrInternal.JSON(c)
}
