package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// balanceHandler handles HTTP requests related to branch cash balances.
type balanceHandler struct {
	balanceService portssvc.BalanceSvcFacade
}

func newBalanceHandler(bs portssvc.BalanceSvcFacade) *balanceHandler {
	return &balanceHandler{
		balanceService: bs,
	}
}

// RegisterBalanceRoutes registers the balance routes under /branches/:branchID.
func RegisterBalanceRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvcFacade) {
	useRequestFieldNames()
	h := newBalanceHandler(balanceService)

	balances := rg.Group("/branches/:branchID/balances")
	{
		balances.GET("", h.listBalances)
		balances.GET("/:currency", h.getBalance)
		balances.POST("/:currency/recompute", h.recomputeBalance)
		balances.POST("/:currency/adjustments", h.createAdjustment)
		balances.GET("/:currency/adjustments", h.listAdjustments)
	}
}

// getBalance godoc
// @Summary Get a branch balance
// @Description Returns the cash a branch should hold in one currency; zero when nothing was booked
// @Tags balances
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Param   currency path string true "ISO currency code"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} map[string]string "Unknown currency"
// @Failure 403 {object} map[string]string "Branch not accessible"
// @Security BearerAuth
// @Router /branches/{branchID}/balances/{currency} [get]
func (h *balanceHandler) getBalance(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	balance, err := h.balanceService.GetBalance(c.Request.Context(), actor, c.Param("branchID"), c.Param("currency"))
	if err != nil {
		renderError(c, err, "Failed to retrieve balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// listBalances godoc
// @Summary List the balances of a branch
// @Tags balances
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Success 200 {object} dto.ListBalancesResponse
// @Security BearerAuth
// @Router /branches/{branchID}/balances [get]
func (h *balanceHandler) listBalances(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	branchID := c.Param("branchID")
	balances, err := h.balanceService.ListBalances(c.Request.Context(), actor, branchID)
	if err != nil {
		renderError(c, err, "Failed to list balances")
		return
	}
	c.JSON(http.StatusOK, dto.ListBalancesResponse{BranchID: branchID, Balances: dto.ToListBalanceResponse(balances)})
}

// recomputeBalance godoc
// @Summary Recompute a balance from history
// @Description Rebuilds the balance from intakes, payments and adjustments and overwrites the stored value
// @Tags balances
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Param   currency path string true "ISO currency code"
// @Success 200 {object} dto.RecomputeBalanceResponse
// @Security BearerAuth
// @Router /branches/{branchID}/balances/{currency}/recompute [post]
func (h *balanceHandler) recomputeBalance(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	res, err := h.balanceService.RecomputeBalance(c.Request.Context(), actor, c.Param("branchID"), c.Param("currency"))
	if err != nil {
		renderError(c, err, "Failed to recompute balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToRecomputeBalanceResponse(res))
}

// createAdjustment godoc
// @Summary Adjust a balance manually
// @Description Books a signed correction, optionally replacing an earlier adjustment
// @Tags balances
// @Accept  json
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Param   currency path string true "ISO currency code"
// @Param   adjustment body dto.CreateAdjustmentRequest true "Delta and reason"
// @Success 201 {object} domain.Adjustment
// @Failure 409 {object} map[string]string "Adjustment already superseded"
// @Security BearerAuth
// @Router /branches/{branchID}/balances/{currency}/adjustments [post]
func (h *balanceHandler) createAdjustment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	adjustment, err := h.balanceService.ApplyAdjustment(c.Request.Context(), actor, c.Param("branchID"), c.Param("currency"), req)
	if err != nil {
		renderError(c, err, "Failed to apply adjustment")
		return
	}
	c.JSON(http.StatusCreated, adjustment)
}

// listAdjustments godoc
// @Summary List the adjustments of a balance
// @Tags balances
// @Produce  json
// @Param   branchID path string true "Branch ID"
// @Param   currency path string true "ISO currency code"
// @Success 200 {object} dto.ListAdjustmentsResponse
// @Security BearerAuth
// @Router /branches/{branchID}/balances/{currency}/adjustments [get]
func (h *balanceHandler) listAdjustments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	adjustments, err := h.balanceService.ListAdjustments(c.Request.Context(), actor, c.Param("branchID"), c.Param("currency"))
	if err != nil {
		renderError(c, err, "Failed to list adjustments")
		return
	}
	c.JSON(http.StatusOK, dto.ListAdjustmentsResponse{Adjustments: adjustments})
}
