package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

type ProductHandler struct {
	useCase usecase.ProductUseCase
	log     *logrus.Logger
}

func NewProductHandler(uc usecase.ProductUseCase, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{useCase: uc, log: logger}
}

// RegisterRoutes mounts read routes on the authenticated group and mutation
// routes behind the admin gate.
func (h *ProductHandler) RegisterRoutes(authed gin.IRouter, admin gin.IRouter) {
	products := authed.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProductByID)
	}
	adminProducts := admin.Group("/products")
	{
		adminProducts.POST("", h.CreateProduct)
		adminProducts.PATCH("/:id", h.UpdateProduct)
		adminProducts.DELETE("/:id", h.DeleteProduct)
		adminProducts.GET("/out-of-stock", h.ListOutOfStock)
		adminProducts.GET("/best-selling", h.ListBestSellers)
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var requestBody struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Stock       int     `json:"stock"`
		CategoryID  int64   `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for create product: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	product := domain.Product{
		Name:        requestBody.Name,
		Description: requestBody.Description,
		Price:       requestBody.Price,
		Stock:       requestBody.Stock,
		CategoryID:  requestBody.CategoryID,
	}
	createdProduct, err := h.useCase.CreateProduct(c.Request.Context(), &product)
	if err != nil {
		errorFromUseCase(c, err, "Failed to create product")
		return
	}
	SuccessResponse(c, http.StatusCreated, "Product created successfully", createdProduct)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	product, err := h.useCase.GetProductByID(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve product")
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.log.Warnf("Failed to bind JSON for update product %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	updatedProduct, err := h.useCase.UpdateProduct(c.Request.Context(), id, updates)
	if err != nil {
		errorFromUseCase(c, err, "Failed to update product")
		return
	}
	SuccessResponse(c, http.StatusOK, "Product updated successfully", updatedProduct)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.useCase.DeleteProduct(c.Request.Context(), id); err != nil {
		errorFromUseCase(c, err, "Failed to delete product")
		return
	}
	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Name: c.Query("name"),
	}
	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		categoryID, err := strconv.ParseInt(categoryIDStr, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid category_id filter")
			return
		}
		filter.CategoryID = categoryID
	}
	filter.Limit, filter.Offset = parsePagination(c)

	products, err := h.useCase.ListProducts(c.Request.Context(), filter)
	if err != nil {
		errorFromUseCase(c, err, "Failed to list products")
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *ProductHandler) ListOutOfStock(c *gin.Context) {
	products, err := h.useCase.ListOutOfStock(c.Request.Context())
	if err != nil {
		errorFromUseCase(c, err, "Failed to list out-of-stock products")
		return
	}
	SuccessResponse(c, http.StatusOK, "Out-of-stock products retrieved successfully", products)
}

func (h *ProductHandler) ListBestSellers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	sellers, err := h.useCase.ListBestSellers(c.Request.Context(), limit)
	if err != nil {
		errorFromUseCase(c, err, "Failed to list best-selling products")
		return
	}
	SuccessResponse(c, http.StatusOK, "Best-selling products retrieved successfully", sellers)
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
