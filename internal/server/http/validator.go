package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"forkknight/internal/server/core"
)

var validate = validator.New()

// Catalog ids are lowercase slugs like "puzzle-001" or "piece-movement-pawn"
var catalogIDRegex = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// validationMiddleware parses and validates JSON bodies by route. Routes
// without a body type pass through.
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	path := c.Path()
	var requestType any

	switch {
	case strings.HasSuffix(path, "/games") && method == fiber.MethodPost:
		requestType = &core.CreateGameRequest{}
	case strings.HasSuffix(path, "/players") && method == fiber.MethodPut:
		requestType = &core.ConfigurePlayersRequest{}
	case strings.HasSuffix(path, "/moves") && method == fiber.MethodPost:
		// Game moves and puzzle session moves share the body
		requestType = &core.MoveRequest{}
	case strings.HasSuffix(path, "/undo") && method == fiber.MethodPost:
		requestType = &core.UndoRequest{}
	case strings.HasSuffix(path, "/check") && method == fiber.MethodPost:
		requestType = &core.StepCheckRequest{}
	default:
		return c.Next()
	}

	if err := c.BodyParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: validationDetails(err),
		})
	}

	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)

	return c.Next()
}

// validationDetails renders validator errors as one readable line
func validationDetails(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	var details strings.Builder
	for _, e := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch e.Tag() {
		case "required":
			fmt.Fprintf(&details, "%s is required", e.Field())
		case "oneof":
			fmt.Fprintf(&details, "%s must be one of [%s]", e.Field(), e.Param())
		case "min":
			if e.Type().Kind() == reflect.String {
				fmt.Fprintf(&details, "%s must be at least %s characters", e.Field(), e.Param())
			} else {
				fmt.Fprintf(&details, "%s must be at least %s", e.Field(), e.Param())
			}
		case "max":
			if e.Type().Kind() == reflect.String {
				fmt.Fprintf(&details, "%s must be at most %s characters", e.Field(), e.Param())
			} else {
				fmt.Fprintf(&details, "%s must be at most %s", e.Field(), e.Param())
			}
		default:
			fmt.Fprintf(&details, "%s failed %s validation", e.Field(), e.Tag())
		}
	}
	return details.String()
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isValidCatalogID(s string) bool {
	return catalogIDRegex.MatchString(s)
}
