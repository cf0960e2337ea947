package handlerutil

import (
	"errors"
	"fmt"
	"strings"

	"taskpulse/cmd/server/handlers/httperr"
	"taskpulse/internal/logger"
	"taskpulse/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, validate *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validate.Struct(req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "error", err)
		return httperr.ValidationFailed(fieldErrors(err))
	}

	return nil
}

// fieldErrors flattens validator errors into the field -> messages shape the
// API reports on 422.
func fieldErrors(err error) map[string][]string {
	fields := make(map[string][]string)

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		fields["request"] = []string{err.Error()}
		return fields
	}

	for _, fe := range vErrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("The %s field is required.", field)
		case "max":
			msg = fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		default:
			msg = fmt.Sprintf("The %s field is invalid.", field)
		}
		fields[field] = append(fields[field], msg)
	}

	return fields
}

// ExtractNoteID extracts the note id from the URL parameter. An absent id is
// reported the same way as an unknown one.
func ExtractNoteID(c *fiber.Ctx, handlerName string) (string, error) {
	id := c.Params("id")
	if id == "" {
		logger.L().Warn("missing note ID parameter", "handler", handlerName, "path", c.Path())
		return "", httperr.NotFound()
	}
	return id, nil
}

// HandleServiceError maps service errors onto the API error taxonomy:
// a missing resource, rejected input, and a persistence failure each get a
// distinct response.
func HandleServiceError(err error, handlerName string, noteID string) error {
	logFields := []any{"handler", handlerName, "error", err}
	if noteID != "" {
		logFields = append(logFields, "note_id", noteID)
	}

	if errors.Is(err, notes.ErrNoteNotFound) {
		logger.L().Info("note not found", logFields...)
		return httperr.NotFound()
	}

	var vErr *notes.ValidationError
	if errors.As(err, &vErr) {
		logger.L().Info("note validation failed", logFields...)
		return httperr.ValidationFailed(vErr.Fields)
	}

	logger.L().Error("service operation failed", logFields...)
	return httperr.Fail(httperr.E{
		Status:  500,
		Message: err.Error(),
	})
}
