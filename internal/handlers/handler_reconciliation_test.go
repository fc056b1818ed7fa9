package handlers_test

import (
	"net/http"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func (suite *HandlerTestSuite) TestCreateReconciliation_Breached() {
	rec := &domain.Reconciliation{
		ReconciliationID: "rec-1",
		BranchID:         testBranch,
		Date:             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Currency:         "USD",
		ClosingBalance:   decimal.NewFromInt(950),
		ExpectedBalance:  decimal.NewFromInt(1000),
		Variance:         decimal.NewFromInt(-50),
		Threshold:        decimal.NewFromInt(50),
		Breached:         true,
	}
	suite.mockReconciliationService.On("CreateReconciliation", mock.Anything, suite.tellerActor, testBranch,
		mock.MatchedBy(func(req dto.CreateReconciliationRequest) bool {
			return req.Date == "2024-03-01" && req.ClosingBalance.Equal(decimal.NewFromInt(950))
		}),
	).Return(rec, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/reconciliations", `{
		"date": "2024-03-01", "currency": "USD", "openingBalance": "1000", "closingBalance": "950"
	}`)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var body domain.Reconciliation
	suite.Require().NoError(decodeJSON(w, &body))
	suite.True(body.Breached)
	suite.True(body.Variance.Equal(decimal.NewFromInt(-50)))
}

func (suite *HandlerTestSuite) TestCreateReconciliation_BadDate() {
	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/reconciliations", `{
		"date": "01/03/2024", "currency": "USD", "closingBalance": "950"
	}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("date", suite.jsonBody(w)["field"])
	suite.mockReconciliationService.AssertNotCalled(suite.T(), "CreateReconciliation")
}

func (suite *HandlerTestSuite) TestCreateReconciliation_AlreadyReconciled() {
	suite.mockReconciliationService.On("CreateReconciliation", mock.Anything, suite.tellerActor, testBranch, mock.Anything).
		Return(nil, apperrors.NewStateError("branch-1 already reconciled USD for 2024-03-01")).Once()

	w := suite.do(http.MethodPost, "/api/v1/branches/branch-1/reconciliations", `{
		"date": "2024-03-01", "currency": "USD", "closingBalance": "950"
	}`)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestGetExpectedBalance() {
	suite.mockReconciliationService.On("GetExpectedBalance", mock.Anything, suite.tellerActor, testBranch).
		Return([]domain.CashBalance{{BranchID: testBranch, Currency: "USD", Balance: decimal.NewFromInt(1000)}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/branches/branch-1/expected-balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ExpectedBalanceResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal(testBranch, body.BranchID)
	suite.Require().Len(body.Balances, 1)
	suite.Equal("USD", body.Balances[0].Currency)
}

func (suite *HandlerTestSuite) TestGetVarianceReport_BindsQuery() {
	next := "token-2"
	report := &dto.VarianceReportResponse{
		Reconciliations: []domain.Reconciliation{{ReconciliationID: "rec-5", Breached: true}},
		BreachedCount:   1,
		NextToken:       &next,
	}
	suite.mockReconciliationService.On("GetVarianceReport", mock.Anything, suite.tellerActor,
		mock.MatchedBy(func(p dto.VarianceReportParams) bool {
			return p.OnlyBreached && p.From == "2024-03-01" && p.To == "2024-03-05" && p.Limit == 50 && p.NextToken == ""
		}),
	).Return(report, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/reconciliations/variance-report?onlyBreached=true&from=2024-03-01&to=2024-03-05", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.VarianceReportResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal(1, body.BreachedCount)
	suite.Require().NotNil(body.NextToken)
	suite.Equal("token-2", *body.NextToken)
}

func (suite *HandlerTestSuite) TestGetVarianceReport_LimitOutOfRange() {
	w := suite.do(http.MethodGet, "/api/v1/reconciliations/variance-report?limit=1000", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("limit", suite.jsonBody(w)["field"])
}

func (suite *HandlerTestSuite) TestGetReconciliation_NotFound() {
	suite.mockReconciliationService.On("GetReconciliation", mock.Anything, suite.tellerActor, "rec-x").
		Return(nil, apperrors.NewNotFoundError("reconciliation", "rec-x")).Once()

	w := suite.do(http.MethodGet, "/api/v1/reconciliations/rec-x", nil)

	suite.Equal(http.StatusNotFound, w.Code)
}
