package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// settlementHandler handles HTTP requests related to obligations and settlements.
type settlementHandler struct {
	settlementService portssvc.SettlementSvcFacade
}

func newSettlementHandler(ss portssvc.SettlementSvcFacade) *settlementHandler {
	return &settlementHandler{
		settlementService: ss,
	}
}

// RegisterSettlementRoutes registers the /obligations and /settlements routes.
func RegisterSettlementRoutes(rg *gin.RouterGroup, settlementService portssvc.SettlementSvcFacade) {
	useRequestFieldNames()
	h := newSettlementHandler(settlementService)

	obligations := rg.Group("/obligations")
	{
		obligations.GET("", h.listObligations)
		obligations.GET("/:obligationID/settlement-suggestions", h.suggestSettlement)
		obligations.POST("/:obligationID/auto-settle", h.autoSettle)
		obligations.GET("/:obligationID/settlements", h.listSettlements)
	}

	rg.POST("/settlements", h.executeSettlement)
}

// listObligations godoc
// @Summary List remittance obligations
// @Tags settlements
// @Produce  json
// @Param   direction query string false "INCOMING or OUTGOING"
// @Param   currency query string false "ISO currency code"
// @Param   branchID query string false "Branch ID, defaults to the caller's branch"
// @Param   onlyOpen query bool false "Only obligations with an unsettled amount" default(true)
// @Param   limit query int false "Maximum rows" default(100)
// @Success 200 {object} dto.ListObligationsResponse
// @Security BearerAuth
// @Router /obligations [get]
func (h *settlementHandler) listObligations(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var params dto.ListObligationsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}

	obligations, err := h.settlementService.ListObligations(c.Request.Context(), actor, params)
	if err != nil {
		renderError(c, err, "Failed to list obligations")
		return
	}
	c.JSON(http.StatusOK, dto.ListObligationsResponse{Obligations: dto.ToListObligationResponse(obligations)})
}

// suggestSettlement godoc
// @Summary Suggest how to settle an incoming obligation
// @Description Read-only allocation of the unsettled incoming amount across open outgoing obligations
// @Tags settlements
// @Produce  json
// @Param   obligationID path string true "Incoming obligation ID"
// @Param   strategy query string false "FIFO or BEST_RATE"
// @Success 200 {object} domain.SettlementPlan
// @Failure 400 {object} map[string]string "Not an incoming obligation, or unknown strategy"
// @Security BearerAuth
// @Router /obligations/{obligationID}/settlement-suggestions [get]
func (h *settlementHandler) suggestSettlement(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var params dto.SettlementStrategyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}

	plan, err := h.settlementService.SuggestSettlement(c.Request.Context(), actor, c.Param("obligationID"), params.Strategy)
	if err != nil {
		renderError(c, err, "Failed to suggest settlement")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// autoSettle godoc
// @Summary Settle an incoming obligation automatically
// @Description Locks the candidates, recomputes the allocation and executes every settlement in one transaction
// @Tags settlements
// @Produce  json
// @Param   obligationID path string true "Incoming obligation ID"
// @Param   strategy query string false "FIFO or BEST_RATE"
// @Success 200 {object} dto.AutoSettleResponse
// @Failure 409 {object} map[string]string "Incoming obligation fully settled"
// @Security BearerAuth
// @Router /obligations/{obligationID}/auto-settle [post]
func (h *settlementHandler) autoSettle(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var params dto.SettlementStrategyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}

	plan, settlements, err := h.settlementService.AutoSettle(c.Request.Context(), actor, c.Param("obligationID"), params.Strategy)
	if err != nil {
		renderError(c, err, "Failed to auto-settle")
		return
	}
	c.JSON(http.StatusOK, dto.AutoSettleResponse{Plan: *plan, Settlements: settlements})
}

// listSettlements godoc
// @Summary List the settlements of an obligation
// @Tags settlements
// @Produce  json
// @Param   obligationID path string true "Obligation ID"
// @Success 200 {object} dto.ListSettlementsResponse
// @Security BearerAuth
// @Router /obligations/{obligationID}/settlements [get]
func (h *settlementHandler) listSettlements(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	settlements, err := h.settlementService.ListSettlements(c.Request.Context(), actor, c.Param("obligationID"))
	if err != nil {
		renderError(c, err, "Failed to list settlements")
		return
	}
	c.JSON(http.StatusOK, dto.ListSettlementsResponse{Settlements: settlements})
}

// executeSettlement godoc
// @Summary Settle an amount between two obligations
// @Tags settlements
// @Accept  json
// @Produce  json
// @Param   settlement body dto.ExecuteSettlementRequest true "Obligations and amount"
// @Success 201 {object} domain.Settlement
// @Failure 400 {object} map[string]string "Amount above either unsettled amount, or currency mismatch"
// @Failure 409 {object} map[string]string "Obligation fully settled"
// @Security BearerAuth
// @Router /settlements [post]
func (h *settlementHandler) executeSettlement(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.ExecuteSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	settlement, err := h.settlementService.ExecuteSettlement(c.Request.Context(), actor, req)
	if err != nil {
		renderError(c, err, "Failed to execute settlement")
		return
	}
	c.JSON(http.StatusCreated, settlement)
}
