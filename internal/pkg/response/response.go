package response

import (
	"github.com/gofiber/fiber/v2"

	"transport-billing/internal/core/domain"
)

// Response is the JSON envelope of every API reply
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
	// RequestID echoes X-Request-ID on failures so clients can quote it
	RequestID string `json:"request_id,omitempty"`
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Error sends a failure envelope with the given status
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return fail(c, statusCode, Response{Error: message})
}

// ValidationFailed sends a 400 listing the rejected fields
func ValidationFailed(c *fiber.Ctx, fields []domain.FieldError) error {
	return fail(c, fiber.StatusBadRequest, Response{Error: domain.ErrValidation.Error(), Details: fields})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// Attachment sends content as a download named filename
func Attachment(c *fiber.Ctx, contentType, filename string, content []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(content)
}

func fail(c *fiber.Ctx, status int, body Response) error {
	body.Success = false
	body.RequestID = c.GetRespHeader(fiber.HeaderXRequestID)
	return send(c, status, body)
}

func send(c *fiber.Ctx, status int, body Response) error {
	return c.Status(status).JSON(body)
}
