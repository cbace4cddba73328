package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/records-service/internal/service"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

// RecordRoutes is the set of endpoints served under /items.
type RecordRoutes interface {
	Create(c *fiber.Ctx) error
	List(c *fiber.Ctx) error
	Get(c *fiber.Ctx) error
	Update(c *fiber.Ctx) error
	Delete(c *fiber.Ctx) error
}

// RecordsHandler serves CRUD endpoints for one record type.
type RecordsHandler[T any] struct {
	service *service.RecordService[T]
}

var _ RecordRoutes = (*RecordsHandler[struct{}])(nil)

// NewRecordsHandler constructs handler.
func NewRecordsHandler[T any](recordService *service.RecordService[T]) *RecordsHandler[T] {
	return &RecordsHandler[T]{service: recordService}
}

// Create POST /items.
func (h *RecordsHandler[T]) Create(c *fiber.Ctx) error {
	fields, err := decodeBody(c.Body())
	if err != nil {
		return err
	}
	record, err := h.service.Create(c.UserContext(), fields)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// List GET /items.
func (h *RecordsHandler[T]) List(c *fiber.Ctx) error {
	records, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// Get GET /items/:id.
func (h *RecordsHandler[T]) Get(c *fiber.Ctx) error {
	record, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// Update PUT /items/:id.
func (h *RecordsHandler[T]) Update(c *fiber.Ctx) error {
	fields, err := decodeBody(c.Body())
	if err != nil {
		return err
	}
	record, err := h.service.Update(c.UserContext(), c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// Delete DELETE /items/:id.
func (h *RecordsHandler[T]) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// decodeBody parses a JSON object, keeping numbers exact.
func decodeBody(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, apperrors.NewValidationError("request body must be a JSON object", nil)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, apperrors.NewValidationError("request body must contain a single JSON object", nil)
	}
	return fields, nil
}
