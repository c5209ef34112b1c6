package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// BacarKeysHandler manages device credential records.
type BacarKeysHandler struct {
	keys *service.BacarKeyService
}

// NewBacarKeysHandler constructs the handler.
func NewBacarKeysHandler(keys *service.BacarKeyService) *BacarKeysHandler {
	return &BacarKeysHandler{keys: keys}
}

// List handles GET /api/bacar-keys.
func (h *BacarKeysHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	keys, err := h.keys.List(c.UserContext(), a, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBacarKeyResponses(keys))
}

// Get handles GET /api/bacar-keys/:id.
func (h *BacarKeysHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	key, err := h.keys.Get(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBacarKeyResponse(key))
}

// Create handles POST /api/bacar-keys.
func (h *BacarKeysHandler) Create(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.BacarKeyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	key, err := h.keys.Create(c.UserContext(), a, service.BacarKeyInput{
		DeviceUser: req.DeviceUser,
		Username:   req.Username,
		Password:   req.Password,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewBacarKeyResponse(key))
}

// Update handles PUT /api/bacar-keys/:id.
func (h *BacarKeysHandler) Update(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateBacarKeyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	key, err := h.keys.Update(c.UserContext(), a, id, service.BacarKeyPatch{
		DeviceUser: req.DeviceUser,
		Username:   req.Username,
		Password:   req.Password,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBacarKeyResponse(key))
}

// Delete handles DELETE /api/bacar-keys/:id.
func (h *BacarKeysHandler) Delete(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.keys.Delete(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
