package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// PaymentMethod selects the variant of PaymentDetails.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodCheque       PaymentMethod = "CHEQUE"
)

// PaymentDetails is the method-specific part of a payment.
type PaymentDetails interface {
	Method() PaymentMethod
	Validate() error
}

type CashDetails struct {
	DrawerID    string `json:"drawerID,omitempty" validate:"omitempty,max=64"`
	CashierName string `json:"cashierName,omitempty" validate:"omitempty,max=128"`
}

type BankTransferDetails struct {
	BankName      string `json:"bankName" validate:"required,max=128"`
	AccountNumber string `json:"accountNumber" validate:"required,max=64"`
	Reference     string `json:"reference" validate:"required,max=128"`
}

type CardDetails struct {
	LastFour          string `json:"lastFour" validate:"required,len=4,numeric"`
	AuthorizationCode string `json:"authorizationCode" validate:"required,max=32"`
	Network           string `json:"network,omitempty" validate:"omitempty,oneof=VISA MASTERCARD AMEX OTHER"`
}

type ChequeDetails struct {
	ChequeNumber string `json:"chequeNumber" validate:"required,max=32"`
	BankName     string `json:"bankName" validate:"required,max=128"`
	DueDate      string `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (CashDetails) Method() PaymentMethod         { return MethodCash }
func (BankTransferDetails) Method() PaymentMethod { return MethodBankTransfer }
func (CardDetails) Method() PaymentMethod         { return MethodCard }
func (ChequeDetails) Method() PaymentMethod       { return MethodCheque }

func (d CashDetails) Validate() error         { return validateDetails(d) }
func (d BankTransferDetails) Validate() error { return validateDetails(d) }
func (d CardDetails) Validate() error         { return validateDetails(d) }
func (d ChequeDetails) Validate() error       { return validateDetails(d) }

var detailsValidator = newDetailsValidator()

func newDetailsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateDetails(d any) error {
	err := detailsValidator.Struct(d)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return apperrors.NewValidationError("details", err.Error())
	}

	var errs *multierror.Error
	for _, fe := range valErrs {
		errs = multierror.Append(errs, fmt.Errorf("%s failed %s", fe.Field(), strings.TrimSpace(fe.Tag()+" "+fe.Param())))
	}
	errs.ErrorFormat = func(es []error) string {
		parts := make([]string, len(es))
		for i, e := range es {
			parts[i] = e.Error()
		}
		return strings.Join(parts, "; ")
	}
	return apperrors.NewValidationError("details."+valErrs[0].Field(), errs.Error())
}

// ParsePaymentMethod validates a method tag.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodCheque:
		return m, nil
	default:
		return "", apperrors.NewValidationError("paymentMethod", fmt.Sprintf("unsupported payment method %q", s))
	}
}

// DecodePaymentDetails decodes raw into the variant selected by method and validates it.
// Fields belonging to other variants are rejected.
func DecodePaymentDetails(method PaymentMethod, raw json.RawMessage) (PaymentDetails, error) {
	var target PaymentDetails
	switch method {
	case MethodCash:
		target = &CashDetails{}
	case MethodBankTransfer:
		target = &BankTransferDetails{}
	case MethodCard:
		target = &CardDetails{}
	case MethodCheque:
		target = &ChequeDetails{}
	default:
		return nil, apperrors.NewValidationError("paymentMethod", fmt.Sprintf("unsupported payment method %q", method))
	}

	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(target); err != nil {
			return nil, apperrors.NewValidationError("details", fmt.Sprintf("invalid %s details: %v", method, err))
		}
	}

	details := derefDetails(target)
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return details, nil
}

func derefDetails(d PaymentDetails) PaymentDetails {
	switch v := d.(type) {
	case *CashDetails:
		return *v
	case *BankTransferDetails:
		return *v
	case *CardDetails:
		return *v
	case *ChequeDetails:
		return *v
	}
	return d
}
