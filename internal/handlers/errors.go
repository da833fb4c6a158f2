package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status. Errors outside the
// taxonomy are internal.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindInvalidAsset:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindUploadFailed:
		return fiber.StatusBadGateway
	case apperr.KindStoreUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Server-side failures are logged
// with their cause and returned with a generic message.
func writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	resp := dto.ErrorResponse{Error: true, Message: err.Error()}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Kind = string(ae.Kind)
		resp.Message = ae.Message
		resp.Fields = ae.Fields
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"request_id", requestID(c),
			"error", err,
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		switch status {
		case fiber.StatusBadGateway:
			resp.Message = "Image upload failed, please try again"
		case fiber.StatusServiceUnavailable:
			resp.Message = "Service temporarily unavailable, please retry"
		default:
			resp.Message = "Internal server error"
		}
	}
	return c.Status(status).JSON(resp)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// ErrorHandler is the fiber fallback for errors returned from middleware and
// handlers that did not write a response themselves.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else if apperr.KindOf(err) != "" {
		return writeError(c, err)
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "request_id", requestID(c), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
