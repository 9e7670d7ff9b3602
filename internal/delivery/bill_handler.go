package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

type BillHandler struct {
	useCase usecase.BillUseCase
	log     *logrus.Logger
}

func NewBillHandler(uc usecase.BillUseCase, logger *logrus.Logger) *BillHandler {
	return &BillHandler{useCase: uc, log: logger}
}

func (h *BillHandler) RegisterRoutes(authed gin.IRouter, admin gin.IRouter) {
	bills := authed.Group("/bills")
	{
		bills.POST("", h.CreateBill)
		bills.POST("/checkout", h.Checkout)
		bills.GET("", h.ListBills)
		bills.GET("/:id", h.GetBillByID)
		bills.PUT("/cancel/:id", h.CancelBill)
		bills.PUT("/:id", h.EditBill)
	}
	adminBills := admin.Group("/bills")
	{
		adminBills.PUT("/paid/:id", h.MarkBillPaid)
	}
}

func (h *BillHandler) CreateBill(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var requestBody struct {
		ShippingAddress string `json:"shipping_address"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for create bill (user %d): %v", principal.UserID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bill, err := h.useCase.CreateFromCart(c.Request.Context(), principal.UserID, requestBody.ShippingAddress)
	if err != nil {
		errorFromUseCase(c, err, "Failed to create bill")
		return
	}
	SuccessResponse(c, http.StatusCreated, "Bill created successfully", bill)
}

// Checkout bills a subset of the caller's cart. Client-only by policy.
func (h *BillHandler) Checkout(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !principal.Role.CanCheckout() {
		h.log.Warnf("User %d (role %s) attempted checkout", principal.UserID, principal.Role)
		ErrorResponse(c, http.StatusForbidden, "Checkout is available to client accounts only")
		return
	}

	var requestBody struct {
		Products []domain.BillLineRequest `json:"products"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bill, err := h.useCase.Checkout(c.Request.Context(), principal.UserID, requestBody.Products)
	if err != nil {
		errorFromUseCase(c, err, "Failed to process checkout")
		return
	}
	SuccessResponse(c, http.StatusCreated, "Purchase completed successfully", bill)
}

// ListBills returns the caller's own bills; admins get every bill.
func (h *BillHandler) ListBills(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	limit, offset := parsePagination(c)

	var (
		bills []domain.Bill
		err   error
	)
	if principal.Role.CanViewAllBills() {
		bills, err = h.useCase.ListBills(c.Request.Context(), limit, offset)
	} else {
		bills, err = h.useCase.ListBillsByUser(c.Request.Context(), principal.UserID, limit, offset)
	}
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve bills")
		return
	}
	SuccessResponse(c, http.StatusOK, "Bills retrieved successfully", bills)
}

func (h *BillHandler) GetBillByID(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid bill ID format")
		return
	}

	bill, err := h.useCase.GetBillByID(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve bill")
		return
	}
	if !principal.Role.CanViewAllBills() && !principal.OwnsBill(bill) {
		h.log.Warnf("User %d attempted to view bill %d owned by user %d", principal.UserID, id, bill.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to view this bill")
		return
	}
	SuccessResponse(c, http.StatusOK, "Bill retrieved successfully", bill)
}

func (h *BillHandler) CancelBill(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid bill ID format")
		return
	}

	// Ownership check precedes the state transition so a client probing
	// another user's bill gets 403, not a state error.
	bill, err := h.useCase.GetBillByID(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve bill")
		return
	}
	if !principal.Role.CanModifyAnyBill() && !principal.OwnsBill(bill) {
		h.log.Warnf("User %d attempted to cancel bill %d owned by user %d", principal.UserID, id, bill.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to cancel this bill")
		return
	}

	canceled, err := h.useCase.Cancel(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to cancel bill")
		return
	}
	SuccessResponse(c, http.StatusOK, "Bill canceled successfully", canceled)
}

func (h *BillHandler) EditBill(c *gin.Context) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid bill ID format")
		return
	}

	var requestBody struct {
		Products        []domain.BillLineRequest `json:"products"`
		ShippingAddress string                   `json:"shipping_address"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	bill, err := h.useCase.GetBillByID(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to retrieve bill")
		return
	}
	if !principal.Role.CanModifyAnyBill() && !principal.OwnsBill(bill) {
		h.log.Warnf("User %d attempted to edit bill %d owned by user %d", principal.UserID, id, bill.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to edit this bill")
		return
	}

	edited, err := h.useCase.Edit(c.Request.Context(), id, requestBody.Products, requestBody.ShippingAddress)
	if err != nil {
		errorFromUseCase(c, err, "Failed to edit bill")
		return
	}
	SuccessResponse(c, http.StatusOK, "Bill updated successfully", edited)
}

func (h *BillHandler) MarkBillPaid(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid bill ID format")
		return
	}
	bill, err := h.useCase.MarkPaid(c.Request.Context(), id)
	if err != nil {
		errorFromUseCase(c, err, "Failed to mark bill as paid")
		return
	}
	SuccessResponse(c, http.StatusOK, "Bill marked as paid", bill)
}
