package apperror

import (
	"fmt"

	"jlpt-listening/config"
	"jlpt-listening/pkg/apperror/status"
	"jlpt-listening/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// ErrorResponse is the standardized HTTP error payload
type ErrorResponse struct {
	Error      string `json:"error"`
	ErrorCode  string `json:"error_code"`
	TrackingID string `json:"tracking_id,omitempty"`
}

type FiberSuccessMessage struct {
	Code       status.SuccessCode `json:"code"`
	Message    string             `json:"message"`
	TrackingID string             `json:"tracking_id"`
	Data       any                `json:"data"`
}

// Code renders an ErrorCode the way clients see it, e.g. AI-1001.
func Code(code status.ErrorCode) string {
	return fmt.Sprintf("AI-%d", code)
}

// WriteError logs a structured warning and returns a standardized JSON error
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code string, message string) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    code,
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"url":           c.OriginalURL(),
		"ip":            c.IP(),
		"request_id":    c.Get(fiber.HeaderXRequestID),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(ErrorResponse{
		Error:      message,
		ErrorCode:  code,
		TrackingID: c.Get(fiber.HeaderXRequestID),
	})
}

// Shorthands for common error responses
func BadRequest(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, Code(code), message)
}

func NotFound(module config.Module, c fiber.Ctx, message string) error {
	return WriteError(module, c, fiber.StatusNotFound, Code(status.NotFound), message)
}

func Forbidden(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusForbidden, Code(code), message)
}

// InternalError reports err with its own code when it carries one.
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	return WriteError(module, c, fiber.StatusInternalServerError, Code(status.CodeOf(err, status.Internal)), err.Error())
}

// ServiceUnavailable is used by health checks for offline dependencies.
func ServiceUnavailable(module config.Module, c fiber.Ctx, err error) error {
	return WriteError(module, c, fiber.StatusServiceUnavailable, Code(status.DependencyOffline), err.Error())
}

// Success writes a standardized JSON success response
func Success(module config.Module, c fiber.Ctx, response FiberSuccessMessage) error {
	if response.TrackingID == "" {
		response.TrackingID = c.Get(fiber.HeaderXRequestID)
	}
	if response.Code == 0 {
		response.Code = status.OK
	}
	logger.Debug("%v: %s %s -> %s", module, c.Method(), c.Path(), response.Message)
	return c.Status(int(response.Code)).JSON(response)
}
