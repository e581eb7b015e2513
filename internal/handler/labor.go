package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/labor"
	"github.com/comanda-app/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LaborServicer defines the service methods needed by labor handlers.
type LaborServicer interface {
	ListEmployees(ctx context.Context, branchID uuid.UUID) ([]database.Employee, error)
	CreateEmployee(ctx context.Context, req service.CreateEmployeeRequest) (database.Employee, error)
	RecordAttendance(ctx context.Context, req service.AttendanceRequest) (database.AttendanceRecord, error)
	Liquidation(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]labor.Row, error)
}

// LaborHandler handles employees, attendance and the hours liquidation.
type LaborHandler struct {
	svc LaborServicer
	loc *time.Location
	log *zap.Logger
}

func NewLaborHandler(svc LaborServicer, loc *time.Location, log *zap.Logger) *LaborHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LaborHandler{svc: svc, loc: loc, log: log}
}

// RegisterRoutes mounts on /branches/{bid}.
func (h *LaborHandler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.ListEmployees)
	r.Post("/employees", h.CreateEmployee)
	r.Put("/employees/{id}/attendance", h.RecordAttendance)
	r.Get("/labor/liquidation", h.Liquidation)
}

type createEmployeeRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Cuil     string `json:"cuil"`
	Category string `json:"category"`
}

type attendanceRequest struct {
	WorkDate       string     `json:"work_date" validate:"required"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	CheckIn        *time.Time `json:"check_in"`
	CheckOut       *time.Time `json:"check_out"`
	Absent         bool       `json:"absent"`
	Justified      bool       `json:"justified"`
}

func (h *LaborHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	employees, err := h.svc.ListEmployees(r.Context(), bid)
	if err != nil {
		writeError(w, h.log, "list employees", err)
		return
	}
	resp := make([]employeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = toEmployeeResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LaborHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	var req createEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.CreateEmployee(r.Context(), service.CreateEmployeeRequest{
		BranchID: bid,
		FullName: req.FullName,
		Cuil:     req.Cuil,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, h.log, "create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(e))
}

// RecordAttendance handles PUT /branches/{bid}/employees/{id}/attendance.
// Sending the same work_date again replaces that day.
func (h *LaborHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	employeeID, ok := urlUUID(w, r, "id", "employee")
	if !ok {
		return
	}
	var req attendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, err := time.ParseInLocation(dateLayout, req.WorkDate, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid work_date format, use YYYY-MM-DD"})
		return
	}

	rec, err := h.svc.RecordAttendance(r.Context(), service.AttendanceRequest{
		BranchID:       bid,
		EmployeeID:     employeeID,
		WorkDate:       day,
		ScheduledStart: req.ScheduledStart,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		Absent:         req.Absent,
		Justified:      req.Justified,
	})
	if err != nil {
		writeError(w, h.log, "record attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceResponse(rec))
}

// Liquidation handles GET /branches/{bid}/labor/liquidation?from&to&format.
// format is json (default), csv or xlsx.
func (h *LaborHandler) Liquidation(w http.ResponseWriter, r *http.Request) {
	bid, ok := branchID(w, r)
	if !ok {
		return
	}
	from, to, err := dateRange(r, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" && format != "xlsx" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be one of: json csv xlsx"})
		return
	}

	rows, err := h.svc.Liquidation(r.Context(), bid, from, to)
	if err != nil {
		writeError(w, h.log, "labor liquidation", err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"from": from.Format(dateLayout),
			"to":   to.Format(dateLayout),
			"rows": rows,
		})
		return
	}

	// Render into a buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "csv" {
		err = labor.WriteCSV(&buf, rows)
	} else {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = labor.WriteXLSX(&buf, rows)
	}
	if err != nil {
		h.log.Error("export liquidation", zap.String("format", format), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	filename := fmt.Sprintf("liquidacion_%s_%s.%s", from.Format(dateLayout), to.Format(dateLayout), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("write liquidation export", zap.Error(err))
	}
}
