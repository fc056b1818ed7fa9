package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var tagNamesOnce sync.Once

// useRequestFieldNames makes binding errors report json/form names instead of Go field names.
func useRequestFieldNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindOverpayment:
		return http.StatusUnprocessableEntity
	case apperrors.KindState, apperrors.KindConcurrencyConflict, apperrors.KindDuplicate:
		return http.StatusConflict
	case apperrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// renderError writes the {"error","kind","field"} body for err. Internal errors
// are logged at Error and their text replaced by message.
func renderError(c *gin.Context, err error, message string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind := apperrors.KindOf(err)
	status := statusFor(kind)

	body := gin.H{"error": err.Error(), "kind": kind}
	if kind == apperrors.KindValidation || kind == apperrors.KindOverpayment {
		if field := apperrors.FieldOf(err); field != "" {
			body["field"] = field
		}
	}
	if kind == apperrors.KindConcurrencyConflict {
		body["retryable"] = true
	}

	if status >= http.StatusInternalServerError {
		logger.Error(message, slog.String("error", err.Error()))
		body["error"] = message
	} else {
		logger.Warn(message, slog.String("error", err.Error()), slog.String("kind", string(kind)))
	}
	c.JSON(status, body)
}

// bindError converts a gin binding failure into a validation error.
func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		renderError(c, apperrors.NewValidationError(ve[0].Field(), ve[0].Error()), "Invalid request")
		return
	}
	renderError(c, apperrors.NewValidationError("", "Invalid request format: "+err.Error()), "Invalid request")
}

// actorOrAbort returns the authenticated actor, writing 401 when there is none.
func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return domain.Actor{}, false
	}
	return actor, true
}
