package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DepartmentsHandler manages department endpoints.
type DepartmentsHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentsHandler constructs the handler.
func NewDepartmentsHandler(departments *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departments}
}

// List handles GET /api/departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	items, err := h.departments.List(c.UserContext(), a)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentResponses(items))
}

// Get handles GET /api/departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	dept, err := h.departments.Get(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentResponse(dept))
}

// Create handles POST /api/departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.Create(c.UserContext(), a, service.DepartmentInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewDepartmentResponse(dept))
}

// Update handles PUT /api/departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.Update(c.UserContext(), a, id, service.DepartmentPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentResponse(dept))
}

// Delete handles DELETE /api/departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.departments.Delete(c.UserContext(), a, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
