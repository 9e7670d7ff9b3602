package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/usecase"
)

// UserHandler serves the administrative user directory. Self-service lives
// under /auth.
type UserHandler struct {
	users usecase.UserUseCase
	log   *logrus.Logger
}

func NewUserHandler(users usecase.UserUseCase, logger *logrus.Logger) *UserHandler {
	return &UserHandler{users: users, log: logger}
}

func (h *UserHandler) RegisterRoutes(admin gin.IRouter) {
	users := admin.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUserByID)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := parsePagination(c)
	profiles, err := h.users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		errorFromUseCase(c, err, "Failed to list users")
		return
	}
	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", profiles)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve user")
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved successfully", profile)
}
