package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// reconciliationHandler handles HTTP requests related to end-of-day reconciliation.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newReconciliationHandler(rs portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{
		reconciliationService: rs,
	}
}

// RegisterReconciliationRoutes registers the reconciliation routes.
func RegisterReconciliationRoutes(rg *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvcFacade) {
	useRequestFieldNames()
	h := newReconciliationHandler(reconciliationService)

	branch := rg.Group("/branches/:branchID")
	{
		branch.POST("/reconciliations", h.createReconciliation)
		branch.GET("/expected-balance", h.getExpectedBalance)
	}

	reconciliations := rg.Group("/reconciliations")
	{
		reconciliations.GET("/variance-report", h.getVarianceReport)
		reconciliations.GET("/:reconciliationID", h.getReconciliation)
	}
}

// createReconciliation godoc
// @Summary Record an end-of-day cash count
// @Description Compares the counted closing balance with the computed balance and flags variances at or above the threshold
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Param   reconciliation body dto.CreateReconciliationRequest true "Cash count"
// @Success 201 {object} domain.Reconciliation
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Branch already reconciled for the date"
// @Security BearerAuth
// @Router /branches/{branchID}/reconciliations [post]
func (h *reconciliationHandler) createReconciliation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rec, err := h.reconciliationService.CreateReconciliation(c.Request.Context(), actor, c.Param("branchID"), req)
	if err != nil {
		renderError(c, err, "Failed to create reconciliation")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// getExpectedBalance godoc
// @Summary Get what a branch should hold
// @Tags reconciliations
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Success 200 {object} dto.ExpectedBalanceResponse
// @Security BearerAuth
// @Router /branches/{branchID}/expected-balance [get]
func (h *reconciliationHandler) getExpectedBalance(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	branchID := c.Param("branchID")
	balances, err := h.reconciliationService.GetExpectedBalance(c.Request.Context(), actor, branchID)
	if err != nil {
		renderError(c, err, "Failed to retrieve expected balance")
		return
	}
	c.JSON(http.StatusOK, dto.ExpectedBalanceResponse{BranchID: branchID, Balances: dto.ToListBalanceResponse(balances)})
}

// getVarianceReport godoc
// @Summary List reconciliations, newest first
// @Tags reconciliations
// @Produce  json
// @Param   branchID query string false "Branch ID, defaults to the caller's branch"
// @Param   currency query string false "ISO currency code"
// @Param   onlyBreached query bool false "Only reconciliations whose variance breached the threshold"
// @Param   from query string false "First date (YYYY-MM-DD)"
// @Param   to query string false "Last date (YYYY-MM-DD)"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.VarianceReportResponse
// @Security BearerAuth
// @Router /reconciliations/variance-report [get]
func (h *reconciliationHandler) getVarianceReport(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var params dto.VarianceReportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.reconciliationService.GetVarianceReport(c.Request.Context(), actor, params)
	if err != nil {
		renderError(c, err, "Failed to build variance report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// getReconciliation godoc
// @Summary Get a reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   reconciliationID path string true "Reconciliation ID"
// @Success 200 {object} domain.Reconciliation
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Security BearerAuth
// @Router /reconciliations/{reconciliationID} [get]
func (h *reconciliationHandler) getReconciliation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	rec, err := h.reconciliationService.GetReconciliation(c.Request.Context(), actor, c.Param("reconciliationID"))
	if err != nil {
		renderError(c, err, "Failed to retrieve reconciliation")
		return
	}
	c.JSON(http.StatusOK, rec)
}
