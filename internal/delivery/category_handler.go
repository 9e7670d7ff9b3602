package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/usecase"
)

type CategoryHandler struct {
	useCase usecase.CategoryUseCase
	log     *logrus.Logger
}

func NewCategoryHandler(uc usecase.CategoryUseCase, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{useCase: uc, log: logger}
}

func (h *CategoryHandler) RegisterRoutes(authed gin.IRouter, admin gin.IRouter) {
	categories := authed.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.GET("/:id", h.GetCategoryByID)
	}
	adminCategories := admin.Group("/categories")
	{
		adminCategories.POST("", h.CreateCategory)
		adminCategories.PATCH("/:id", h.UpdateCategory)
		adminCategories.DELETE("/:id", h.DeleteCategory)
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var requestBody categoryRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for create category: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	category, err := h.useCase.CreateCategory(c.Request.Context(), requestBody.Name)
	if err != nil {
		errorFromUseCase(c, err, "Failed to create category")
		return
	}
	SuccessResponse(c, http.StatusCreated, "Category created successfully", category)
}

func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	category, err := h.useCase.GetCategoryByID(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve category")
		return
	}
	SuccessResponse(c, http.StatusOK, "Category retrieved successfully", category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	var requestBody categoryRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	category, err := h.useCase.UpdateCategory(c.Request.Context(), id, requestBody.Name)
	if err != nil {
		errorFromUseCase(c, err, "Failed to update category")
		return
	}
	SuccessResponse(c, http.StatusOK, "Category updated successfully", category)
}

// DeleteCategory deactivates the category; its products are reassigned to
// the fallback category in the same transaction.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	if err := h.useCase.DeleteCategory(c.Request.Context(), id); err != nil {
		errorFromUseCase(c, err, "Failed to delete category")
		return
	}
	SuccessResponse(c, http.StatusOK, "Category deleted and products reassigned", nil)
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.useCase.ListCategories(c.Request.Context())
	if err != nil {
		errorFromUseCase(c, err, "Failed to list categories")
		return
	}
	SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", categories)
}
