package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/usecase"
)

type AuthHandler struct {
	users usecase.UserUseCase
	log   *logrus.Logger
}

func NewAuthHandler(users usecase.UserUseCase, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: logger}
}

func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

func (h *AuthHandler) RegisterProtectedRoutes(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Profile)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var requestBody struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for register: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	profile, err := h.users.Register(c.Request.Context(), requestBody.Name, requestBody.Email, requestBody.Password)
	if err != nil {
		errorFromUseCase(c, err, "Failed to register user")
		return
	}
	SuccessResponse(c, http.StatusCreated, "User registered successfully", profile)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var requestBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for login: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.users.Login(c.Request.Context(), requestBody.Email, requestBody.Password)
	if err != nil {
		errorFromUseCase(c, err, "Login failed")
		return
	}
	SuccessResponse(c, http.StatusOK, "Login successful", result)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid Authorization header")
		return
	}
	if err := h.users.Logout(c.Request.Context(), parts[1]); err != nil {
		errorFromUseCase(c, err, "Logout failed")
		return
	}
	SuccessResponse(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), principal.UserID)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve profile")
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", profile)
}
