package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/http/middleware"
	"transport-billing/internal/core/services"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/pagination"
	"transport-billing/internal/pkg/response"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         logger.OrNop(log),
	}
}

// ListUsers handles listing all users (Admin only)
// @Summary List users
// @Description Paginated list of operators, optionally filtered by name or mobile number
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param search query string false "Name or mobile number"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	result, err := h.userService.ListUsers(c.UserContext(), &services.ListUsersInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Search: c.Query("search"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Users retrieved successfully", result)
}

// GetUser handles getting a user by ID (Admin only)
// @Summary Get user by ID
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// UpdateUser handles updating a user (Admin only)
// @Summary Update user
// @Description Update name, role, salary, license or active flag. Admins cannot change their own role.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserByAdminInput true "Update data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req services.UpdateUserByAdminInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.UpdateUserByAdmin(c.UserContext(), id, p.ID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}

// DeleteUser handles deleting a user (Admin only)
// @Summary Delete user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.userService.DeleteUser(c.UserContext(), id, p.ID); err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "User deleted successfully", nil)
}

// GetProfile handles getting own profile
// @Summary Get own profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.GetProfile(c.UserContext(), p.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Profile retrieved successfully", fiber.Map{
		"user": user,
	})
}

// UpdateProfile handles updating own profile
// @Summary Update own profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), p.ID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Profile updated successfully", fiber.Map{
		"user": user,
	})
}

// ChangePassword handles changing own password
// @Summary Change password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.ChangePassword(c.UserContext(), p.ID, &req); err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
