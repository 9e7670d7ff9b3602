package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

type CartHandler struct {
	useCase usecase.CartUseCase
	log     *logrus.Logger
}

func NewCartHandler(uc usecase.CartUseCase, logger *logrus.Logger) *CartHandler {
	return &CartHandler{useCase: uc, log: logger}
}

func (h *CartHandler) RegisterRoutes(authed gin.IRouter) {
	cart := authed.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.POST("/add", h.AddToCart)
		cart.DELETE("/remove/:productId", h.RemoveFromCart)
		cart.DELETE("/clear", h.ClearCart)
	}
}

// GetCart returns the caller's own cart; admins get every cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	if principal.Role.CanViewAllCarts() {
		carts, err := h.useCase.ListCarts(c.Request.Context())
		if err != nil {
			errorFromUseCase(c, err, "Failed to retrieve carts")
			return
		}
		SuccessResponse(c, http.StatusOK, "Carts retrieved successfully", carts)
		return
	}

	cart, err := h.useCase.GetCartByUser(c.Request.Context(), principal.UserID)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve cart")
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart retrieved successfully", cart)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var requestBody struct {
		Products []domain.CartItem `json:"products"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for add to cart (user %d): %v", principal.UserID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cart, err := h.useCase.AddItems(c.Request.Context(), principal.UserID, requestBody.Products)
	if err != nil {
		errorFromUseCase(c, err, "Failed to add products to cart")
		return
	}
	SuccessResponse(c, http.StatusOK, "Products added to cart", cart)
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	cart, err := h.useCase.RemoveItem(c.Request.Context(), principal.UserID, productID)
	if err != nil {
		errorFromUseCase(c, err, "Failed to remove product from cart")
		return
	}
	SuccessResponse(c, http.StatusOK, "Product removed from cart", cart)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := h.useCase.Clear(c.Request.Context(), principal.UserID); err != nil {
		errorFromUseCase(c, err, "Failed to clear cart")
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart cleared and stock restored", nil)
}
