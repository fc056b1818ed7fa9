package handlers_test

import (
	"fmt"
	"net/http"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func (suite *HandlerTestSuite) TestGetBalance() {
	balance := &domain.CashBalance{
		TenantID: testTenant,
		BranchID: testBranch,
		Currency: "USD",
		Balance:  decimal.RequireFromString("2487.75"),
		Version:  7,
	}
	suite.mockBalanceService.On("GetBalance", mock.Anything, suite.tellerActor, testBranch, "usd").
		Return(balance, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/branches/branch-1/balances/usd", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.BalanceResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal("USD", body.Currency)
	suite.True(body.Balance.Equal(decimal.RequireFromString("2487.75")))
	suite.Equal(int64(7), body.Version)
	suite.NotEmpty(body.Formatted)
}

func (suite *HandlerTestSuite) TestGetBalance_OtherBranchForbidden() {
	suite.mockBalanceService.On("GetBalance", mock.Anything, suite.tellerActor, "branch-2", "USD").
		Return(nil, fmt.Errorf("branch branch-2: %w", apperrors.ErrForbidden)).Once()

	w := suite.do(http.MethodGet, "/api/v1/branches/branch-2/balances/USD", nil)

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestListBalances() {
	balances := []domain.CashBalance{
		{BranchID: testBranch, Currency: "CAD", Balance: decimal.NewFromInt(-500)},
		{BranchID: testBranch, Currency: "IRR", Balance: decimal.NewFromInt(75000000)},
	}
	suite.mockBalanceService.On("ListBalances", mock.Anything, suite.tellerActor, testBranch).
		Return(balances, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/branches/branch-1/balances", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListBalancesResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal(testBranch, body.BranchID)
	suite.Len(body.Balances, 2)
	suite.True(body.Balances[0].Balance.IsNegative())
}

func (suite *HandlerTestSuite) TestRecomputeBalance_ReportsDrift() {
	result := &domain.BalanceRecomputation{
		Balance:  domain.CashBalance{BranchID: testBranch, Currency: "USD", Balance: decimal.NewFromInt(1000), Version: 3},
		Previous: decimal.NewFromInt(990),
		Drift:    decimal.NewFromInt(10),
		Entries:  4,
	}
	suite.mockBalanceService.On("RecomputeBalance", mock.Anything, suite.tellerActor, testBranch, "USD").
		Return(result, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/balances/USD/recompute", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.RecomputeBalanceResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.True(body.Drift.Equal(decimal.NewFromInt(10)))
	suite.True(body.Previous.Equal(decimal.NewFromInt(990)))
	suite.Equal(4, body.Entries)
}

func (suite *HandlerTestSuite) TestApplyAdjustment() {
	adjustment := &domain.Adjustment{AdjustmentID: "adj-1", Currency: "USD", Delta: decimal.NewFromInt(-20), Reason: "counting error"}
	suite.mockBalanceService.On("ApplyAdjustment", mock.Anything, suite.tellerActor, testBranch, "USD",
		mock.MatchedBy(func(req dto.CreateAdjustmentRequest) bool {
			return req.Delta.Equal(decimal.NewFromInt(-20)) && req.Reason == "counting error"
		}),
	).Return(adjustment, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/balances/USD/adjustments", `{"delta": "-20", "reason": "counting error"}`)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal("adj-1", suite.jsonBody(w)["adjustmentID"])
}

func (suite *HandlerTestSuite) TestApplyAdjustment_ReasonRequired() {
	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/balances/USD/adjustments", `{"delta": "5"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("reason", suite.jsonBody(w)["field"])
	suite.mockBalanceService.AssertNotCalled(suite.T(), "ApplyAdjustment")
}

func (suite *HandlerTestSuite) TestApplyAdjustment_ServiceValidationKeepsField() {
	suite.mockBalanceService.On("ApplyAdjustment", mock.Anything, suite.tellerActor, testBranch, "USD", mock.Anything).
		Return(nil, apperrors.NewValidationError("delta", "must not be zero")).Once()

	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/balances/USD/adjustments", `{"delta": "0", "reason": "noop"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("VALIDATION", body["kind"])
	suite.Equal("delta", body["field"])
}

func (suite *HandlerTestSuite) TestListAdjustments() {
	suite.mockBalanceService.On("ListAdjustments", mock.Anything, suite.tellerActor, testBranch, "USD").
		Return([]domain.Adjustment{{AdjustmentID: "adj-2"}, {AdjustmentID: "adj-1"}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/branches/branch-1/balances/USD/adjustments", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListAdjustmentsResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal("adj-2", body.Adjustments[0].AdjustmentID)
}
