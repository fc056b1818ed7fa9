package handlers_test

import (
	"net/http"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func bestRatePlan() *domain.SettlementPlan {
	return &domain.SettlementPlan{
		IncomingObligationID: "in-1",
		Currency:             "USD",
		Strategy:             domain.StrategyBestRate,
		Allocations: []domain.Allocation{
			{OutgoingObligationID: "out-2", Amount: decimal.NewFromInt(800)},
			{OutgoingObligationID: "out-1", Amount: decimal.NewFromInt(200)},
		},
		Total:     decimal.NewFromInt(1000),
		Remaining: decimal.Zero,
	}
}

func (suite *HandlerTestSuite) TestSuggestSettlement_PassesStrategy() {
	suite.mockSettlementService.On("SuggestSettlement", mock.Anything, suite.tellerActor, "in-1", "BEST_RATE").
		Return(bestRatePlan(), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/obligations/in-1/settlement-suggestions?strategy=BEST_RATE", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var plan domain.SettlementPlan
	suite.Require().NoError(decodeJSON(w, &plan))
	suite.Require().Len(plan.Allocations, 2)
	suite.Equal("out-2", plan.Allocations[0].OutgoingObligationID)
	suite.True(plan.Total.Equal(decimal.NewFromInt(1000)))
}

func (suite *HandlerTestSuite) TestSuggestSettlement_DefaultStrategyIsEmpty() {
	suite.mockSettlementService.On("SuggestSettlement", mock.Anything, suite.tellerActor, "in-1", "").
		Return(bestRatePlan(), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/obligations/in-1/settlement-suggestions", nil)

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestSuggestSettlement_UnknownStrategy() {
	w := suite.do(http.MethodGet, "/api/v1/obligations/in-1/settlement-suggestions?strategy=LIFO", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("strategy", suite.jsonBody(w)["field"])
	suite.mockSettlementService.AssertNotCalled(suite.T(), "SuggestSettlement")
}

func (suite *HandlerTestSuite) TestAutoSettle() {
	settlements := []domain.Settlement{
		{SettlementID: "set-1", OutgoingObligationID: "out-2", IncomingObligationID: "in-1", Amount: decimal.NewFromInt(800), Currency: "USD"},
		{SettlementID: "set-2", OutgoingObligationID: "out-1", IncomingObligationID: "in-1", Amount: decimal.NewFromInt(200), Currency: "USD"},
	}
	suite.mockSettlementService.On("AutoSettle", mock.Anything, suite.tellerActor, "in-1", "BEST_RATE").
		Return(bestRatePlan(), settlements, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/obligations/in-1/auto-settle?strategy=BEST_RATE", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.AutoSettleResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Len(body.Settlements, 2)
	suite.Equal(domain.StrategyBestRate, body.Plan.Strategy)
}

func (suite *HandlerTestSuite) TestAutoSettle_ExhaustedCreditIsConflict() {
	suite.mockSettlementService.On("AutoSettle", mock.Anything, suite.tellerActor, "in-1", "").
		Return(nil, nil, apperrors.NewStateError("incoming obligation in-1 is fully settled")).Once()

	w := suite.do(http.MethodPost, "/api/v1/obligations/in-1/auto-settle", nil)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("STATE", suite.jsonBody(w)["kind"])
}

func (suite *HandlerTestSuite) TestExecuteSettlement() {
	settlement := &domain.Settlement{
		SettlementID:         "set-1",
		OutgoingObligationID: "out-1",
		IncomingObligationID: "in-1",
		Amount:               decimal.RequireFromString("250.25"),
		Currency:             "USD",
	}
	suite.mockSettlementService.On("ExecuteSettlement", mock.Anything, suite.tellerActor,
		mock.MatchedBy(func(req dto.ExecuteSettlementRequest) bool {
			return req.OutgoingObligationID == "out-1" && req.IncomingObligationID == "in-1" &&
				req.Amount.Equal(decimal.RequireFromString("250.25"))
		}),
	).Return(settlement, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/settlements", `{
		"outgoingObligationID": "out-1", "incomingObligationID": "in-1", "amount": "250.25"
	}`)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal("set-1", suite.jsonBody(w)["settlementID"])
}

func (suite *HandlerTestSuite) TestExecuteSettlement_AboveUnsettled() {
	suite.mockSettlementService.On("ExecuteSettlement", mock.Anything, suite.tellerActor, mock.Anything).
		Return(nil, apperrors.NewValidationError("amount", "amount 700 exceeds unsettled 600 of out-1")).Once()

	w := suite.do(http.MethodPost, "/api/v1/settlements", `{
		"outgoingObligationID": "out-1", "incomingObligationID": "in-1", "amount": "700"
	}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("amount", suite.jsonBody(w)["field"])
}

func (suite *HandlerTestSuite) TestExecuteSettlement_FullySettledIsConflict() {
	suite.mockSettlementService.On("ExecuteSettlement", mock.Anything, suite.tellerActor, mock.Anything).
		Return(nil, apperrors.NewStateError("obligation out-1 is fully settled")).Once()

	w := suite.do(http.MethodPost, "/api/v1/settlements", `{
		"outgoingObligationID": "out-1", "incomingObligationID": "in-1", "amount": "1"
	}`)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("STATE", suite.jsonBody(w)["kind"])
}

func (suite *HandlerTestSuite) TestListObligations_Defaults() {
	obligations := []domain.Obligation{
		{ObligationID: "out-1", Direction: domain.DirectionOutgoing, Currency: "USD",
			Amount: decimal.NewFromInt(600), SettledAmount: decimal.NewFromInt(100)},
	}
	suite.mockSettlementService.On("ListObligations", mock.Anything, suite.tellerActor,
		mock.MatchedBy(func(p dto.ListObligationsParams) bool {
			return p.Direction == "OUTGOING" && p.OnlyOpen && p.Limit == 100
		}),
	).Return(obligations, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/obligations?direction=OUTGOING", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.ListObligationsResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Require().Len(body.Obligations, 1)
	suite.True(body.Obligations[0].Unsettled.Equal(decimal.NewFromInt(500)))
}

func (suite *HandlerTestSuite) TestListSettlements() {
	suite.mockSettlementService.On("ListSettlements", mock.Anything, suite.tellerActor, "out-1").
		Return([]domain.Settlement{{SettlementID: "set-1"}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/obligations/out-1/settlements", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListSettlementsResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Len(body.Settlements, 1)
}
