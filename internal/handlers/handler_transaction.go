package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/SscSPs/remittance_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests related to transactions and their payments.
type transactionHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

func newTransactionHandler(ps portssvc.PaymentSvcFacade) *transactionHandler {
	return &transactionHandler{
		paymentService: ps,
	}
}

// RegisterTransactionRoutes registers the /transactions and /payments routes.
func RegisterTransactionRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	useRequestFieldNames()
	h := newTransactionHandler(paymentService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.registerTransaction)
		transactions.GET("/:transactionID", h.getTransaction)
		transactions.POST("/:transactionID/payments", h.createPayment)
		transactions.GET("/:transactionID/payments", h.listPayments)
		transactions.POST("/:transactionID/complete", h.completeTransaction)
		transactions.POST("/:transactionID/cancel", h.cancelTransaction)
		transactions.GET("/:transactionID/edits", h.listTransactionEdits)
	}

	payments := rg.Group("/payments")
	{
		payments.PUT("/:paymentID", h.editPayment)
		payments.POST("/:paymentID/cancel", h.cancelPayment)
		payments.GET("/:paymentID/edits", h.listPaymentEdits)
	}
}

// registerTransaction godoc
// @Summary Register a transaction
// @Description Records the intake of a transaction and credits the received amount to the branch balance
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transaction body dto.RegisterTransactionRequest true "Intake details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Branch not accessible"
// @Failure 409 {object} map[string]string "Transaction already registered"
// @Security BearerAuth
// @Router /transactions [post]
func (h *transactionHandler) registerTransaction(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.RegisterTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	txn, err := h.paymentService.RegisterTransaction(c.Request.Context(), actor, req)
	if err != nil {
		renderError(c, err, "Failed to register transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{transactionID} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	txn, err := h.paymentService.GetTransaction(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		renderError(c, err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// createPayment godoc
// @Summary Record a payment against a transaction
// @Description Pays out part of the transaction, converting to the received currency at the given rate
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   payment body dto.CreatePaymentRequest true "Payment details"
// @Success 201 {object} dto.PaymentResultResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Transaction state does not allow payments, or concurrent update"
// @Failure 422 {object} map[string]string "Overpayment"
// @Security BearerAuth
// @Router /transactions/{transactionID}/payments [post]
func (h *transactionHandler) createPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	payment, txn, err := h.paymentService.AddPayment(c.Request.Context(), actor, c.Param("transactionID"), req)
	if err != nil {
		renderError(c, err, "Failed to add payment")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Debug("Payment response ready",
		slog.String("payment_id", payment.PaymentID),
		slog.String("payment_status", string(txn.PaymentStatus)))
	c.JSON(http.StatusCreated, dto.PaymentResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Transaction: dto.ToTransactionResponse(txn),
	})
}

// listPayments godoc
// @Summary List the payments of a transaction
// @Tags payments
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{transactionID}/payments [get]
func (h *transactionHandler) listPayments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	txn, payments, err := h.paymentService.ListPayments(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		renderError(c, err, "Failed to list payments")
		return
	}
	c.JSON(http.StatusOK, dto.ListPaymentsResponse{
		Transaction: dto.ToTransactionResponse(txn),
		Payments:    dto.ToListPaymentResponse(payments),
	})
}

// completeTransaction godoc
// @Summary Complete a transaction
// @Description Marks the transaction FULLY_PAID when the remaining balance is within tolerance
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   body body dto.CompleteTransactionRequest false "Optional notes"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} map[string]string "Remaining balance outside tolerance"
// @Security BearerAuth
// @Router /transactions/{transactionID}/complete [post]
func (h *transactionHandler) completeTransaction(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CompleteTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	txn, err := h.paymentService.CompleteTransaction(c.Request.Context(), actor, c.Param("transactionID"), req)
	if err != nil {
		renderError(c, err, "Failed to complete transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// cancelTransaction godoc
// @Summary Cancel a transaction
// @Description Cancels the transaction and reverses its intake from the branch balance
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   body body dto.CancelTransactionRequest true "Reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} map[string]string "Transaction already terminal or settled"
// @Security BearerAuth
// @Router /transactions/{transactionID}/cancel [post]
func (h *transactionHandler) cancelTransaction(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CancelTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	txn, err := h.paymentService.CancelTransaction(c.Request.Context(), actor, c.Param("transactionID"), req.Reason)
	if err != nil {
		renderError(c, err, "Failed to cancel transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactionEdits godoc
// @Summary List the status changes of a transaction
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.ListTransactionEditsResponse
// @Security BearerAuth
// @Router /transactions/{transactionID}/edits [get]
func (h *transactionHandler) listTransactionEdits(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	edits, err := h.paymentService.ListTransactionEdits(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		renderError(c, err, "Failed to list transaction edits")
		return
	}
	c.JSON(http.StatusOK, dto.ListTransactionEditsResponse{Edits: edits})
}

// editPayment godoc
// @Summary Edit a payment
// @Description Changes the amount and/or rate of a payment; the previous values are kept in the edit history
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Param   body body dto.EditPaymentRequest true "New values and reason"
// @Success 200 {object} dto.PaymentResultResponse
// @Failure 409 {object} map[string]string "Transaction no longer editable"
// @Failure 422 {object} map[string]string "Overpayment"
// @Security BearerAuth
// @Router /payments/{paymentID} [put]
func (h *transactionHandler) editPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.EditPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	payment, txn, err := h.paymentService.EditPayment(c.Request.Context(), actor, c.Param("paymentID"), req)
	if err != nil {
		renderError(c, err, "Failed to edit payment")
		return
	}
	c.JSON(http.StatusOK, dto.PaymentResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Transaction: dto.ToTransactionResponse(txn),
	})
}

// cancelPayment godoc
// @Summary Cancel a payment
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Param   body body dto.CancelPaymentRequest true "Reason"
// @Success 200 {object} dto.PaymentResultResponse
// @Failure 409 {object} map[string]string "Payment already cancelled"
// @Security BearerAuth
// @Router /payments/{paymentID}/cancel [post]
func (h *transactionHandler) cancelPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	payment, txn, err := h.paymentService.CancelPayment(c.Request.Context(), actor, c.Param("paymentID"), req.Reason)
	if err != nil {
		renderError(c, err, "Failed to cancel payment")
		return
	}
	c.JSON(http.StatusOK, dto.PaymentResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Transaction: dto.ToTransactionResponse(txn),
	})
}

// listPaymentEdits godoc
// @Summary List the edit history of a payment
// @Tags payments
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Success 200 {object} dto.ListPaymentEditsResponse
// @Security BearerAuth
// @Router /payments/{paymentID}/edits [get]
func (h *transactionHandler) listPaymentEdits(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	edits, err := h.paymentService.ListPaymentEdits(c.Request.Context(), actor, c.Param("paymentID"))
	if err != nil {
		renderError(c, err, "Failed to list payment edits")
		return
	}
	c.JSON(http.StatusOK, dto.ListPaymentEditsResponse{Edits: edits})
}
