package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const employeeColumns = `id, branch_id, full_name, cuil, category, is_active, created_at`

func scanEmployee(row interface{ Scan(...any) error }) (Employee, error) {
	var i Employee
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.FullName,
		&i.Cuil,
		&i.Category,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listEmployeesByBranch = `-- name: ListEmployeesByBranch :many
SELECT ` + employeeColumns + ` FROM employees
WHERE branch_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListEmployeesByBranch(ctx context.Context, branchID uuid.UUID) ([]Employee, error) {
	rows, err := q.db.Query(ctx, listEmployeesByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Employee
	for rows.Next() {
		i, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createEmployee = `-- name: CreateEmployee :one
INSERT INTO employees (branch_id, full_name, cuil, category)
VALUES ($1, $2, $3, $4)
RETURNING ` + employeeColumns

type CreateEmployeeParams struct {
	BranchID uuid.UUID   `json:"branch_id"`
	FullName string      `json:"full_name"`
	Cuil     pgtype.Text `json:"cuil"`
	Category string      `json:"category"`
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	return scanEmployee(q.db.QueryRow(ctx, createEmployee, arg.BranchID, arg.FullName, arg.Cuil, arg.Category))
}

const getEmployee = `-- name: GetEmployee :one
SELECT ` + employeeColumns + ` FROM employees
WHERE id = $1 AND branch_id = $2
`

type GetEmployeeParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetEmployee(ctx context.Context, arg GetEmployeeParams) (Employee, error) {
	return scanEmployee(q.db.QueryRow(ctx, getEmployee, arg.ID, arg.BranchID))
}

const attendanceColumns =`a.id, a.employee_id, a.work_date, a.scheduled_start, a.check_in, a.check_out, a.absent, a.justified`

func scanAttendance(row interface{ Scan(...any) error }) (AttendanceRecord, error) {
	var i AttendanceRecord
	err := row.Scan(
		&i.ID,
		&i.EmployeeID,
		&i.WorkDate,
		&i.ScheduledStart,
		&i.CheckIn,
		&i.CheckOut,
		&i.Absent,
		&i.Justified,
	)
	return i, err
}

const upsertAttendanceRecord = `-- name: UpsertAttendanceRecord :one
INSERT INTO attendance_records AS a (employee_id, work_date, scheduled_start, check_in, check_out, absent, justified)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (employee_id, work_date) DO UPDATE
SET scheduled_start = EXCLUDED.scheduled_start,
    check_in = EXCLUDED.check_in,
    check_out = EXCLUDED.check_out,
    absent = EXCLUDED.absent,
    justified = EXCLUDED.justified
RETURNING ` + attendanceColumns

type UpsertAttendanceRecordParams struct {
	EmployeeID     uuid.UUID          `json:"employee_id"`
	WorkDate       pgtype.Date        `json:"work_date"`
	ScheduledStart pgtype.Timestamptz `json:"scheduled_start"`
	CheckIn        pgtype.Timestamptz `json:"check_in"`
	CheckOut       pgtype.Timestamptz `json:"check_out"`
	Absent         bool               `json:"absent"`
	Justified      bool               `json:"justified"`
}

func (q *Queries) UpsertAttendanceRecord(ctx context.Context, arg UpsertAttendanceRecordParams) (AttendanceRecord, error) {
	return scanAttendance(q.db.QueryRow(ctx, upsertAttendanceRecord,
		arg.EmployeeID,
		arg.WorkDate,
		arg.ScheduledStart,
		arg.CheckIn,
		arg.CheckOut,
		arg.Absent,
		arg.Justified,
	))
}

const listAttendanceByBranch = `-- name: ListAttendanceByBranch :many
SELECT ` + attendanceColumns + `
FROM attendance_records a
JOIN employees e ON e.id = a.employee_id
WHERE e.branch_id = $1
  AND a.work_date >= $2
  AND a.work_date <= $3
ORDER BY a.employee_id, a.work_date
`

type ListAttendanceByBranchParams struct {
	BranchID uuid.UUID   `json:"branch_id"`
	From     pgtype.Date `json:"from"`
	To       pgtype.Date `json:"to"`
}

func (q *Queries) ListAttendanceByBranch(ctx context.Context, arg ListAttendanceByBranchParams) ([]AttendanceRecord, error) {
	rows, err := q.db.Query(ctx, listAttendanceByBranch, arg.BranchID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttendanceRecord
	for rows.Next() {
		i, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
