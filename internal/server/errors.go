package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/ridepay/internal/auth/domain"
	"github.com/smallbiznis/ridepay/internal/authorization"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	coupondomain "github.com/smallbiznis/ridepay/internal/coupon/domain"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	webhookdomain "github.com/smallbiznis/ridepay/internal/webhook/domain"
	"gorm.io/gorm"
)

// Opcodes carried by every response body. Clients switch on these rather
// than on the HTTP status.
const (
	OpcodeSuccess               = 0
	OpcodeError                 = 1
	OpcodeNotFound              = 2
	OpcodeRequiredLogin         = 3
	OpcodeAlreadyExists         = 4
	OpcodeRequiredInternalLogin = 5
	OpcodeForbidden             = 6
	OpcodeInvalidRequest        = 7
	OpcodePreconditionFailed    = 8
	OpcodeUpstream              = 9
	OpcodeRateLimited           = 10
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	EventID string            `json:"eventId,omitempty"`
}

type errorResponse struct {
	Opcode int          `json:"opcode"`
	Error  errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidAPI         = errors.New("invalid_api")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrCannotFindUser     = errors.New("cannot_find_user")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorKind struct {
	status  int
	opcode  int
	typ     string
	message string
}

var (
	kindValidation   = errorKind{http.StatusBadRequest, OpcodeInvalidRequest, "validation_error", "validation error"}
	kindNotFound     = errorKind{http.StatusNotFound, OpcodeNotFound, "not_found", "not found"}
	kindConflict     = errorKind{http.StatusConflict, OpcodeAlreadyExists, "conflict", "conflict"}
	kindPrecondition = errorKind{http.StatusPreconditionFailed, OpcodePreconditionFailed, "precondition_failed", "precondition failed"}
	kindUpstream     = errorKind{http.StatusBadGateway, OpcodeUpstream, "upstream_error", "upstream service failed"}
	kindUnauthorized = errorKind{http.StatusUnauthorized, OpcodeRequiredLogin, "unauthorized", "unauthorized"}
	kindInternalAuth = errorKind{http.StatusUnauthorized, OpcodeRequiredInternalLogin, "unauthorized", "unauthorized"}
	kindForbidden    = errorKind{http.StatusForbidden, OpcodeForbidden, "forbidden", "forbidden"}
	kindRateLimited  = errorKind{http.StatusTooManyRequests, OpcodeRateLimited, "rate_limited", "too many requests"}
	kindUnavailable  = errorKind{http.StatusServiceUnavailable, OpcodeError, "service_unavailable", "service unavailable"}
	kindInternal     = errorKind{http.StatusInternalServerError, OpcodeError, "internal_error", "internal server error"}
)

// sentinelKinds is walked in order; the first match wins and its text is
// the response code.
var sentinelKinds = []struct {
	err  error
	kind errorKind
}{
	{ErrInvalidRequest, kindValidation},
	{carddomain.ErrInvalidUserID, kindValidation},
	{carddomain.ErrInvalidCardIDs, kindValidation},
	{recorddomain.ErrInvalidAmount, kindValidation},
	{recorddomain.ErrInvalidName, kindValidation},
	{recorddomain.ErrInvalidUserID, kindValidation},
	{recorddomain.ErrInvalidSortField, kindValidation},
	{recorddomain.ErrNegativeRefund, kindValidation},
	{recorddomain.ErrMissingRideID, kindValidation},
	{recorddomain.ErrMissingPaymentRef, kindValidation},
	{coupondomain.ErrInvalidEnroll, kindValidation},
	{coupondomain.ErrInvalidUserID, kindValidation},
	{coupondomain.ErrInvalidSortField, kindValidation},
	{coupongroupdomain.ErrInvalidName, kindValidation},
	{coupongroupdomain.ErrInvalidType, kindValidation},
	{coupongroupdomain.ErrInvalidValidity, kindValidation},
	{coupongroupdomain.ErrInvalidLimit, kindValidation},
	{coupongroupdomain.ErrInvalidCode, kindValidation},
	{coupongroupdomain.ErrInvalidDiscountGroup, kindValidation},
	{coupongroupdomain.ErrInvalidSortField, kindValidation},
	{dunningdomain.ErrInvalidChannel, kindValidation},
	{webhookdomain.ErrInvalidPayload, kindValidation},

	{ErrNotFound, kindNotFound},
	{ErrInvalidAPI, kindNotFound},
	{ErrCannotFindUser, kindNotFound},
	{carddomain.ErrNotFound, kindNotFound},
	{recorddomain.ErrNotFound, kindNotFound},
	{coupondomain.ErrNotFound, kindNotFound},
	{coupongroupdomain.ErrNotFound, kindNotFound},
	{paymentkeydomain.ErrNotFound, kindNotFound},
	{paymentkeydomain.ErrPrimaryNotFound, kindNotFound},
	{webhookdomain.ErrCannotFindRecord, kindNotFound},
	{gorm.ErrRecordNotFound, kindNotFound},

	{carddomain.ErrDuplicateCard, kindConflict},
	{coupongroupdomain.ErrDuplicateName, kindConflict},
	{coupongroupdomain.ErrDuplicateCode, kindConflict},
	{recorddomain.ErrAlreadyPaid, kindConflict},
	{recorddomain.ErrAlreadyRefunded, kindConflict},

	{carddomain.ErrNoAvailableCard, kindPrecondition},
	{carddomain.ErrHasUnpaidRecord, kindPrecondition},
	{carddomain.ErrTokenUnavailable, kindPrecondition},
	{coupondomain.ErrExpiredCoupon, kindPrecondition},
	{coupondomain.ErrExceededUsage, kindPrecondition},
	{coupondomain.ErrInvalidState, kindPrecondition},

	{gatewaydomain.ErrProviderUnavailable, kindUpstream},
	{coreservicedomain.ErrNotConfigured, kindUnavailable},

	{ErrUnauthorized, kindUnauthorized},
	{authdomain.ErrMissingToken, kindUnauthorized},
	{authdomain.ErrInvalidSession, kindUnauthorized},
	{authdomain.ErrInvalidInternalToken, kindInternalAuth},
	{authdomain.ErrInternalAuthDisabled, kindInternalAuth},

	{ErrForbidden, kindForbidden},
	{authorization.ErrForbidden, kindForbidden},
	{authorization.ErrInvalidActor, kindForbidden},

	{ErrRateLimited, kindRateLimited},
	{ErrServiceUnavailable, kindUnavailable},
	{ErrInternal, kindInternal},
}

// ErrorHandlingMiddleware renders the last handler error once the chain has
// finished without writing a body.
func (s *Server) ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, resp := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError && s.tracker != nil {
			resp.Error.EventID = s.tracker.Capture(c.Request.Context(), lastErr.Err)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, resp)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	kind, payload := classify(err)
	return kind.status, errorResponse{Opcode: kind.opcode, Error: payload}
}

func classify(err error) (errorKind, errorPayload) {
	if err == nil {
		return kindInternal, payloadOf(kindInternal, "internal_error")
	}

	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) && vErrs != nil {
		payload := payloadOf(kindValidation, "validation_error")
		if len(vErrs.Errors) > 0 {
			payload.Code = vErrs.Errors[0].Code
		}
		payload.Errors = vErrs.Errors
		return kindValidation, payload
	}

	var gwValidation *gatewaydomain.ValidationError
	if errors.As(err, &gwValidation) {
		payload := payloadOf(kindValidation, "invalid_"+gwValidation.Field)
		payload.Message = gwValidation.Error()
		payload.Errors = []ValidationError{{
			Field:   gwValidation.Field,
			Code:    "invalid_" + gwValidation.Field,
			Message: gwValidation.Reason,
		}}
		return kindValidation, payload
	}

	// Provider text is meant for the rider and passes through verbatim.
	var provider *gatewaydomain.ProviderError
	if errors.As(err, &provider) {
		payload := payloadOf(kindUpstream, "gateway_"+provider.Operation)
		if provider.Message != "" {
			payload.Message = provider.Message
		}
		return kindUpstream, payload
	}

	for _, entry := range sentinelKinds {
		if errors.Is(err, entry.err) {
			return entry.kind, payloadOf(entry.kind, entry.err.Error())
		}
	}

	var upstream *coreservicedomain.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.IsNotFound() {
			return kindNotFound, payloadOf(kindNotFound, upstream.Service+"_not_found")
		}
		return kindUpstream, payloadOf(kindUpstream, upstream.Service+"_failed")
	}

	return kindInternal, payloadOf(kindInternal, "internal_error")
}

func payloadOf(kind errorKind, code string) errorPayload {
	return errorPayload{Type: kind.typ, Code: code, Message: kind.message}
}

// classifyErrorForLog feeds the request logger.
func classifyErrorForLog(err error) (string, string) {
	_, payload := classify(err)
	return payload.Type, payload.Code
}
