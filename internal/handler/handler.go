// Package handler holds the HTTP endpoints. Handlers depend on narrow
// store or service interfaces so they can be tested without a database.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/comanda-app/api/internal/allocator"
	"github.com/comanda-app/api/internal/auth"
	"github.com/comanda-app/api/internal/labor"
	"github.com/comanda-app/api/internal/ledger"
	"github.com/comanda-app/api/internal/orderflow"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode JSON response", zap.Error(err))
	}
}

// decodeJSON decodes and validates the request body into dst. On failure it
// writes the 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "email":
		return "invalid email format"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	}
	return field + " is invalid"
}

// urlUUID parses a chi URL parameter. name is used in the error message.
func urlUUID(w http.ResponseWriter, r *http.Request, param, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func branchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return urlUUID(w, r, "bid", "branch")
}

func actorOf(c *auth.Claims) service.Actor {
	return service.Actor{UserID: c.UserID, Role: c.Role}
}

// dateRange reads the from/to query parameters as calendar days in loc.
// Missing values default to today.
func dateRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from, to := today, today
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date, use YYYY-MM-DD")
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date, use YYYY-MM-DD")
		}
		to = t
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, labor.ErrInvalidRange
	}
	return from, to, nil
}

// writeError maps domain errors to their HTTP status. Anything unknown is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(op, zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest
	case isNotFound(err):
		return http.StatusNotFound
	case isConflict(err):
		return http.StatusConflict
	case errors.Is(err, service.ErrAuthorizationRequired),
		errors.Is(err, service.ErrInvalidSupervisorPIN):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTrackingUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// isValidationError checks if the error is a known validation error
// that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidServiceType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrDeliveryAddressRequired) ||
		errors.Is(err, service.ErrInvalidDeliveryFee) ||
		errors.Is(err, service.ErrCancelReasonTooLong) ||
		errors.Is(err, service.ErrInvalidPosition) ||
		errors.Is(err, service.ErrInvalidOpeningAmount) ||
		errors.Is(err, service.ErrInvalidCountedAmount) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidMoney) ||
		errors.Is(err, service.ErrInvalidMovementType) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrConceptRequired) ||
		errors.Is(err, service.ErrInvalidTransferKind) ||
		errors.Is(err, service.ErrSameShift) ||
		errors.Is(err, service.ErrSupplierNameRequired) ||
		errors.Is(err, service.ErrInvoiceNumberRequired) ||
		errors.Is(err, service.ErrInvalidInvoiceTotal) ||
		errors.Is(err, service.ErrInvalidInvoiceDates) ||
		errors.Is(err, service.ErrCanonNotRoyaltySupplier) ||
		errors.Is(err, service.ErrEmployeeNameRequired) ||
		errors.Is(err, service.ErrWorkDateRequired) ||
		errors.Is(err, service.ErrAbsentWithTimes) ||
		errors.Is(err, service.ErrJustifiedWithoutAbsent) ||
		errors.Is(err, service.ErrCheckOutBeforeCheckIn) ||
		errors.Is(err, orderflow.ErrUnknownStatus) ||
		errors.Is(err, orderflow.ErrUnknownServiceType) ||
		errors.Is(err, ledger.ErrUnknownMovementType) ||
		errors.Is(err, labor.ErrInvalidRange) ||
		errors.Is(err, allocator.ErrNegativeBalance) ||
		errors.Is(err, allocator.ErrInvalidAmount) ||
		errors.Is(err, allocator.ErrInvalidMethod) ||
		errors.Is(err, allocator.ErrCreditOffsetPresent) ||
		errors.Is(err, allocator.ErrNoCreditAvailable) ||
		errors.Is(err, allocator.ErrNothingToOffset) ||
		errors.Is(err, allocator.ErrEmptyAllocation) ||
		errors.Is(err, allocator.ErrInvalidVentaTotal) ||
		errors.Is(err, allocator.ErrInvalidEfectivo)
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrRegisterNotFound) ||
		errors.Is(err, service.ErrShiftNotFound) ||
		errors.Is(err, service.ErrNoOpenShift) ||
		errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrSupplierNotFound) ||
		errors.Is(err, service.ErrInvoiceNotFound) ||
		errors.Is(err, service.ErrEmployeeNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, service.ErrShiftAlreadyOpen) ||
		errors.Is(err, service.ErrShiftClosed) ||
		errors.Is(err, service.ErrStatusChanged) ||
		errors.Is(err, service.ErrOrderNotDispatched) ||
		errors.Is(err, service.ErrDuplicateInvoiceNumber) ||
		errors.Is(err, service.ErrInvoiceSettled) ||
		errors.Is(err, orderflow.ErrTerminalStatus) ||
		errors.Is(err, orderflow.ErrInvalidTransition)
}
