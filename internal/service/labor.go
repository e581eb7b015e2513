package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/labor"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

var (
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrEmployeeNameRequired   = errors.New("full_name is required")
	ErrWorkDateRequired       = errors.New("work_date is required")
	ErrAbsentWithTimes        = errors.New("an absence cannot have check-in or check-out times")
	ErrJustifiedWithoutAbsent = errors.New("only absences can be justified")
	ErrCheckOutBeforeCheckIn  = errors.New("check_out must be after check_in")
)

// LaborStore defines the DB methods needed for attendance and liquidation.
type LaborStore interface {
	ListEmployeesByBranch(ctx context.Context, branchID uuid.UUID) ([]database.Employee, error)
	CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error)
	GetEmployee(ctx context.Context, arg database.GetEmployeeParams) (database.Employee, error)
	UpsertAttendanceRecord(ctx context.Context, arg database.UpsertAttendanceRecordParams) (database.AttendanceRecord, error)
	ListAttendanceByBranch(ctx context.Context, arg database.ListAttendanceByBranchParams) ([]database.AttendanceRecord, error)
}

// LaborService records attendance and builds the hours liquidation.
type LaborService struct {
	store LaborStore
	loc   *time.Location
	log   *zap.Logger
}

// NewLaborService creates a LaborService. loc is the business clock used
// for weekdays and the Saturday cutoff.
func NewLaborService(store LaborStore, loc *time.Location, log *zap.Logger) *LaborService {
	if loc == nil {
		loc = time.UTC
	}
	return &LaborService{store: store, loc: loc, log: log}
}

func (s *LaborService) ListEmployees(ctx context.Context, branchID uuid.UUID) ([]database.Employee, error) {
	employees, err := s.store.ListEmployeesByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

type CreateEmployeeRequest struct {
	BranchID uuid.UUID
	FullName string
	Cuil     string
	Category string
}

func (s *LaborService) CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (database.Employee, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return database.Employee{}, ErrEmployeeNameRequired
	}
	e, err := s.store.CreateEmployee(ctx, database.CreateEmployeeParams{
		BranchID: req.BranchID,
		FullName: name,
		Cuil:     pgText(strings.TrimSpace(req.Cuil)),
		Category: strings.TrimSpace(req.Category),
	})
	if err != nil {
		return database.Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

// AttendanceRequest is one employee workday. Recording the same day again
// replaces it.
type AttendanceRequest struct {
	BranchID       uuid.UUID
	EmployeeID     uuid.UUID
	WorkDate       time.Time
	ScheduledStart *time.Time
	CheckIn        *time.Time
	CheckOut       *time.Time
	Absent         bool
	Justified      bool
}

func (s *LaborService) RecordAttendance(ctx context.Context, req AttendanceRequest) (database.AttendanceRecord, error) {
	if req.WorkDate.IsZero() {
		return database.AttendanceRecord{}, ErrWorkDateRequired
	}
	if req.Absent && (req.CheckIn != nil || req.CheckOut != nil) {
		return database.AttendanceRecord{}, ErrAbsentWithTimes
	}
	if req.Justified && !req.Absent {
		return database.AttendanceRecord{}, ErrJustifiedWithoutAbsent
	}
	if req.CheckIn != nil && req.CheckOut != nil && !req.CheckOut.After(*req.CheckIn) {
		return database.AttendanceRecord{}, ErrCheckOutBeforeCheckIn
	}

	if _, err := s.store.GetEmployee(ctx, database.GetEmployeeParams{ID: req.EmployeeID, BranchID: req.BranchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.AttendanceRecord{}, ErrEmployeeNotFound
		}
		return database.AttendanceRecord{}, fmt.Errorf("get employee: %w", err)
	}

	rec, err := s.store.UpsertAttendanceRecord(ctx, database.UpsertAttendanceRecordParams{
		EmployeeID:     req.EmployeeID,
		WorkDate:       pgDate(req.WorkDate),
		ScheduledStart: pgTimestamptz(req.ScheduledStart),
		CheckIn:        pgTimestamptz(req.CheckIn),
		CheckOut:       pgTimestamptz(req.CheckOut),
		Absent:         req.Absent,
		Justified:      req.Justified,
	})
	if err != nil {
		return database.AttendanceRecord{}, fmt.Errorf("upsert attendance: %w", err)
	}
	return rec, nil
}

// Liquidation returns the per-employee hours summary for [from, to].
func (s *LaborService) Liquidation(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]labor.Row, error) {
	if from.After(to) {
		return nil, labor.ErrInvalidRange
	}
	employees, err := s.store.ListEmployeesByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	records, err := s.store.ListAttendanceByBranch(ctx, database.ListAttendanceByBranchParams{
		BranchID: branchID,
		From:     pgDate(from),
		To:       pgDate(to),
	})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	emps := make([]labor.Employee, len(employees))
	for i, e := range employees {
		emps[i] = labor.Employee{ID: e.ID, FullName: e.FullName, Cuil: e.Cuil.String, Category: e.Category}
	}
	recs := make([]labor.Record, len(records))
	for i, r := range records {
		recs[i] = labor.Record{
			EmployeeID:     r.EmployeeID,
			WorkDate:       r.WorkDate.Time,
			ScheduledStart: timePtr(r.ScheduledStart),
			CheckIn:        timePtr(r.CheckIn),
			CheckOut:       timePtr(r.CheckOut),
			Absent:         r.Absent,
			Justified:      r.Justified,
		}
	}

	rows, err := labor.Liquidate(emps, recs, from, to, s.loc)
	if err != nil {
		return nil, err
	}
	s.log.Debug("labor liquidation built",
		zap.String("branch_id", branchID.String()),
		zap.Int("employees", len(rows)),
		zap.Int("records", len(recs)),
	)
	return rows, nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func pgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
