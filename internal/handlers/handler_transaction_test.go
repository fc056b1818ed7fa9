package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testTransaction(status domain.PaymentStatus, paid string) *domain.Transaction {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("1000")
	totalPaid := decimal.RequireFromString(paid)
	return &domain.Transaction{
		TransactionID:    "txn-1",
		TenantID:         testTenant,
		BranchID:         testBranch,
		CustomerID:       "cust-1",
		TotalReceived:    total,
		ReceivedCurrency: "USD",
		TotalPaid:        totalPaid,
		RemainingBalance: total.Sub(totalPaid),
		PaymentStatus:    status,
		Version:          1,
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: testUser, LastUpdatedAt: now, LastUpdatedBy: testUser,
		},
	}
}

func (suite *HandlerTestSuite) TestRegisterTransaction_Created() {
	suite.mockPaymentService.On("RegisterTransaction", mock.Anything, suite.tellerActor,
		mock.MatchedBy(func(req dto.RegisterTransactionRequest) bool {
			return req.CustomerID == "cust-1" &&
				req.ReceivedCurrency == "USD" &&
				req.TotalReceived.Equal(decimal.NewFromInt(1000)) &&
				req.Remittance != nil && req.Remittance.Direction == "OUTGOING"
		}),
	).Return(testTransaction(domain.StatusOpen, "0"), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions", `{
		"customerID": "cust-1",
		"totalReceived": "1000",
		"receivedCurrency": "USD",
		"remittance": {"direction": "OUTGOING", "amount": "1000", "currency": "USD", "rate": "1.10"}
	}`)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	body := suite.jsonBody(w)
	suite.Equal("txn-1", body["transactionID"])
	suite.Equal("OPEN", body["paymentStatus"])
	suite.Equal("1000", body["remainingBalance"])
}

func (suite *HandlerTestSuite) TestRegisterTransaction_BindingErrorNamesField() {
	w := suite.do(http.MethodPost, "/api/v1/transactions", `{"totalReceived": "10", "receivedCurrency": "USD"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("VALIDATION", body["kind"])
	suite.Equal("customerID", body["field"])
	suite.mockPaymentService.AssertNotCalled(suite.T(), "RegisterTransaction")
}

func (suite *HandlerTestSuite) TestRegisterTransaction_MalformedJSON() {
	w := suite.do(http.MethodPost, "/api/v1/transactions", `{"customerID": `)

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("VALIDATION", body["kind"])
	suite.Contains(body["error"], "Invalid request format")
	suite.NotContains(body, "field")
}

func (suite *HandlerTestSuite) TestRegisterTransaction_DuplicateIsConflict() {
	suite.mockPaymentService.On("RegisterTransaction", mock.Anything, suite.tellerActor, mock.Anything).
		Return(nil, fmt.Errorf("insert transaction: %w", apperrors.ErrDuplicate)).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions", `{"customerID": "c", "totalReceived": "1", "receivedCurrency": "USD"}`)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("DUPLICATE", suite.jsonBody(w)["kind"])
}

func (suite *HandlerTestSuite) TestGetTransaction_NotFound() {
	suite.mockPaymentService.On("GetTransaction", mock.Anything, suite.tellerActor, "missing").
		Return(nil, apperrors.NewNotFoundError("transaction", "missing")).Once()

	w := suite.do(http.MethodGet, "/api/v1/transactions/missing", nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NOT_FOUND", suite.jsonBody(w)["kind"])
}

func (suite *HandlerTestSuite) TestGetTransaction_InternalErrorIsMasked() {
	suite.mockPaymentService.On("GetTransaction", mock.Anything, suite.tellerActor, "txn-1").
		Return(nil, errors.New("pq: connection reset by peer")).Once()

	w := suite.do(http.MethodGet, "/api/v1/transactions/txn-1", nil)

	suite.Equal(http.StatusInternalServerError, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("INTERNAL", body["kind"])
	suite.Equal("Failed to retrieve transaction", body["error"])
	suite.NotContains(w.Body.String(), "connection reset")
}

func (suite *HandlerTestSuite) TestCreatePayment_Created() {
	txn := testTransaction(domain.StatusPartial, "400")
	payment := &domain.Payment{
		PaymentID:     "pay-1",
		TransactionID: "txn-1",
		Amount:        decimal.NewFromInt(400),
		Currency:      "USD",
		ExchangeRate:  decimal.NewFromInt(1),
		AmountInBase:  decimal.NewFromInt(400),
		PaymentMethod: domain.MethodCash,
		Status:        domain.PaymentCompleted,
		PaidBy:        testUser,
	}
	suite.mockPaymentService.On("AddPayment", mock.Anything, suite.tellerActor, "txn-1",
		mock.MatchedBy(func(req dto.CreatePaymentRequest) bool {
			return req.Amount.Equal(decimal.NewFromInt(400)) && req.PaymentMethod == "CASH"
		}),
	).Return(payment, txn, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/payments", `{
		"amount": "400", "currency": "USD", "exchangeRate": "1", "paymentMethod": "CASH"
	}`)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Payment     map[string]any `json:"payment"`
		Transaction map[string]any `json:"transaction"`
	}
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal("pay-1", body.Payment["paymentID"])
	suite.Equal("PARTIAL", body.Transaction["paymentStatus"])
	suite.Equal("600", body.Transaction["remainingBalance"])
}

func (suite *HandlerTestSuite) TestCreatePayment_OverpaymentIs422() {
	suite.mockPaymentService.On("AddPayment", mock.Anything, suite.tellerActor, "txn-1", mock.Anything).
		Return(nil, nil, apperrors.NewOverpaymentError("amount", "payment of 1200 exceeds remaining balance 1000")).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/payments", `{
		"amount": "1200", "currency": "USD", "exchangeRate": "1", "paymentMethod": "CASH"
	}`)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("OVERPAYMENT", body["kind"])
	suite.Equal("amount", body["field"])
	suite.Contains(body["error"], "exceeds remaining balance")
}

func (suite *HandlerTestSuite) TestCreatePayment_ConflictIsRetryable() {
	suite.mockPaymentService.On("AddPayment", mock.Anything, suite.tellerActor, "txn-1", mock.Anything).
		Return(nil, nil, fmt.Errorf("lock transaction: %w", apperrors.ErrConcurrencyConflict)).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/payments", `{
		"amount": "10", "currency": "USD", "exchangeRate": "1", "paymentMethod": "CASH"
	}`)

	suite.Equal(http.StatusConflict, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("CONCURRENCY_CONFLICT", body["kind"])
	suite.Equal(true, body["retryable"])
}

func (suite *HandlerTestSuite) TestCreatePayment_ForbiddenBranch() {
	suite.mockPaymentService.On("AddPayment", mock.Anything, suite.tellerActor, "txn-9", mock.Anything).
		Return(nil, nil, fmt.Errorf("branch branch-9: %w", apperrors.ErrForbidden)).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-9/payments", `{
		"amount": "10", "currency": "USD", "exchangeRate": "1", "paymentMethod": "CASH"
	}`)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("FORBIDDEN", suite.jsonBody(w)["kind"])
}

func (suite *HandlerTestSuite) TestCompleteTransaction_WithoutBody() {
	suite.mockPaymentService.On("CompleteTransaction", mock.Anything, suite.tellerActor, "txn-1", dto.CompleteTransactionRequest{}).
		Return(testTransaction(domain.StatusFullyPaid, "995"), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/complete", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("FULLY_PAID", suite.jsonBody(w)["paymentStatus"])
}

func (suite *HandlerTestSuite) TestCompleteTransaction_OutsideToleranceIsConflict() {
	suite.mockPaymentService.On("CompleteTransaction", mock.Anything, suite.tellerActor, "txn-1", dto.CompleteTransactionRequest{Notes: "customer left"}).
		Return(nil, apperrors.NewStateError("remaining balance 100 exceeds tolerance 20")).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/complete", `{"notes": "customer left"}`)

	suite.Equal(http.StatusConflict, w.Code)
	body := suite.jsonBody(w)
	suite.Equal("STATE", body["kind"])
	suite.NotContains(body, "retryable")
}

func (suite *HandlerTestSuite) TestCancelTransaction_RequiresReason() {
	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/cancel", `{}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("reason", suite.jsonBody(w)["field"])
	suite.mockPaymentService.AssertNotCalled(suite.T(), "CancelTransaction")
}

func (suite *HandlerTestSuite) TestCancelPayment_PassesReason() {
	payment := &domain.Payment{PaymentID: "pay-1", TransactionID: "txn-1", Status: domain.PaymentCancelled, CancelReason: "wrong amount"}
	suite.mockPaymentService.On("CancelPayment", mock.Anything, suite.tellerActor, "pay-1", "wrong amount").
		Return(payment, testTransaction(domain.StatusOpen, "0"), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/payments/pay-1/cancel", `{"reason": "wrong amount"}`)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var body dto.PaymentResultResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Equal("CANCELLED", body.Payment.Status)
	suite.Equal("OPEN", body.Transaction.PaymentStatus)
}

func (suite *HandlerTestSuite) TestEditPayment_KeepsOmittedFieldsNil() {
	suite.mockPaymentService.On("EditPayment", mock.Anything, suite.tellerActor, "pay-1",
		mock.MatchedBy(func(req dto.EditPaymentRequest) bool {
			return req.Amount != nil && req.Amount.Equal(decimal.NewFromInt(300)) &&
				req.ExchangeRate == nil && req.Reason == "typo"
		}),
	).Return(&domain.Payment{PaymentID: "pay-1", IsEdited: true}, testTransaction(domain.StatusPartial, "300"), nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/payments/pay-1", `{"amount": "300", "reason": "typo"}`)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) TestListPayments() {
	payments := []domain.Payment{
		{PaymentID: "pay-1", Status: domain.PaymentCompleted},
		{PaymentID: "pay-2", Status: domain.PaymentCancelled},
	}
	suite.mockPaymentService.On("ListPayments", mock.Anything, suite.tellerActor, "txn-1").
		Return(testTransaction(domain.StatusPartial, "100"), payments, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/transactions/txn-1/payments", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListPaymentsResponse
	suite.Require().NoError(decodeJSON(w, &body))
	suite.Len(body.Payments, 2)
	suite.Equal("pay-2", body.Payments[1].PaymentID)
}

func (suite *HandlerTestSuite) TestListEdits() {
	suite.mockPaymentService.On("ListPaymentEdits", mock.Anything, suite.tellerActor, "pay-1").
		Return([]domain.PaymentEdit{{EditID: "edit-1", PaymentID: "pay-1", Reason: "typo"}}, nil).Once()
	suite.mockPaymentService.On("ListTransactionEdits", mock.Anything, suite.tellerActor, "txn-1").
		Return([]domain.TransactionEdit{{EditID: "tedit-1", Action: domain.ActionCompleted}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/payments/pay-1/edits", nil)
	suite.Equal(http.StatusOK, w.Code)
	var paymentEdits dto.ListPaymentEditsResponse
	suite.Require().NoError(decodeJSON(w, &paymentEdits))
	suite.Equal("typo", paymentEdits.Edits[0].Reason)

	w = suite.do(http.MethodGet, "/api/v1/transactions/txn-1/edits", nil)
	suite.Equal(http.StatusOK, w.Code)
	var txnEdits dto.ListTransactionEditsResponse
	suite.Require().NoError(decodeJSON(w, &txnEdits))
	suite.Equal(domain.ActionCompleted, txnEdits.Edits[0].Action)
}
