package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportsServicer defines the service methods needed by report handlers.
// Satisfied by *service.ShiftService.
type ReportsServicer interface {
	ListClosedShifts(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]service.ClosedShiftReport, error)
}

// ReportsHandler handles the cash audit reports.
type ReportsHandler struct {
	svc ReportsServicer
	loc *time.Location
	log *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler. Report days are calendar
// days in loc.
func NewReportsHandler(svc ReportsServicer, loc *time.Location, log *zap.Logger) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{svc: svc, loc: loc, log: log}
}

// RegisterRoutes registers branch-scoped report endpoints.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/closed-shifts", h.ClosedShifts)
}

// --- Response types ---

type closedShiftResponse struct {
	shiftResponse
	Classification string `json:"classification"`
}

type closedShiftsReport struct {
	From       string                `json:"from"`
	To         string                `json:"to"`
	Shifts     []closedShiftResponse `json:"shifts"`
	Flagged    int                   `json:"flagged"`
	ByCategory map[string]int        `json:"by_classification"`
}

// ClosedShifts handles GET /branches/{bid}/reports/closed-shifts?from&to.
// Both dates are inclusive.
func (h *ReportsHandler) ClosedShifts(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	from, to, err := dateRange(r, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	shifts, err := h.svc.ListClosedShifts(r.Context(), bid, from, to.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, h.log, "list closed shifts", err)
		return
	}

	resp := closedShiftsReport{
		From:       from.Format(dateLayout),
		To:         to.Format(dateLayout),
		Shifts:     make([]closedShiftResponse, len(shifts)),
		ByCategory: map[string]int{},
	}
	for i, s := range shifts {
		resp.Shifts[i] = closedShiftResponse{shiftResponse: toShiftResponse(s.CashShift), Classification: s.Classification}
		resp.ByCategory[s.Classification]++
		if s.Classification != enum.DiscrepancyNormal {
			resp.Flagged++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
