// Package labor computes the hours liquidation shown to branch managers:
// worked hours, overtime by category, tardiness, absences and presentismo
// eligibility per employee. The rules follow CCT 301/75 as the business
// applies them and are informational; nothing here blocks a punch.
package labor

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RegularDayLimit   = 8 * time.Hour
	SaturdayCutoff    = 13 // hour of day after which Saturday work is overtime at 100%
	TardyGrace        = 10 * time.Minute
	MaxTardiesAllowed = 2
)

var ErrInvalidRange = errors.New("from must not be after to")

// Employee is the subset of employee data the liquidation needs.
type Employee struct {
	ID       uuid.UUID
	FullName string
	Cuil     string
	Category string
}

// Record is one day of attendance.
type Record struct {
	EmployeeID     uuid.UUID
	WorkDate       time.Time
	ScheduledStart *time.Time
	CheckIn        *time.Time
	CheckOut       *time.Time
	Absent         bool
	Justified      bool
}

// Row is the liquidation of one employee over the period.
type Row struct {
	EmployeeID        uuid.UUID       `json:"employee_id"`
	FullName          string          `json:"full_name"`
	Cuil              string          `json:"cuil"`
	Category          string          `json:"category"`
	DaysWorked        int             `json:"days_worked"`
	HoursWorked       decimal.Decimal `json:"hours_worked"`
	RegularHours      decimal.Decimal `json:"regular_hours"`
	Overtime50        decimal.Decimal `json:"overtime_50"`
	Overtime100       decimal.Decimal `json:"overtime_100"`
	Tardies           int             `json:"tardies"`
	Absences          int             `json:"absences"`
	JustifiedAbsences int             `json:"justified_absences"`
	IncompleteDays    int             `json:"incomplete_days"`
	Presentismo       bool            `json:"presentismo"`
}

type tally struct {
	regular, ot50, ot100 time.Duration
}

// Liquidate builds one row per employee from the records whose work date
// falls within [from, to]. Times are evaluated in loc, so the Saturday
// cutoff and weekdays follow the branch's local clock.
func Liquidate(employees []Employee, records []Record, from, to time.Time, loc *time.Location) ([]Row, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	if loc == nil {
		loc = time.UTC
	}
	fromDay := dayOf(from, loc)
	toDay := dayOf(to, loc)

	byEmployee := make(map[uuid.UUID][]Record, len(employees))
	for _, r := range records {
		day := dayOf(r.WorkDate, loc)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}

	rows := make([]Row, 0, len(employees))
	for _, e := range employees {
		row := Row{
			EmployeeID: e.ID,
			FullName:   e.FullName,
			Cuil:       e.Cuil,
			Category:   e.Category,
		}
		var t tally
		for _, r := range byEmployee[e.ID] {
			if r.Absent {
				if r.Justified {
					row.JustifiedAbsences++
				} else {
					row.Absences++
				}
				continue
			}
			if IsTardy(r) {
				row.Tardies++
			}
			if r.CheckIn == nil || r.CheckOut == nil || !r.CheckOut.After(*r.CheckIn) {
				row.IncompleteDays++
				continue
			}
			row.DaysWorked++
			d := splitDay(r.CheckIn.In(loc), r.CheckOut.In(loc))
			t.regular += d.regular
			t.ot50 += d.ot50
			t.ot100 += d.ot100
		}
		row.RegularHours = hours(t.regular)
		row.Overtime50 = hours(t.ot50)
		row.Overtime100 = hours(t.ot100)
		row.HoursWorked = row.RegularHours.Add(row.Overtime50).Add(row.Overtime100)
		row.Presentismo = row.Absences == 0 && row.Tardies <= MaxTardiesAllowed
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FullName < rows[j].FullName })
	return rows, nil
}

// IsTardy reports whether the check-in came later than the scheduled start
// plus the grace period.
func IsTardy(r Record) bool {
	if r.ScheduledStart == nil || r.CheckIn == nil {
		return false
	}
	return r.CheckIn.After(r.ScheduledStart.Add(TardyGrace))
}

// splitDay classifies one shift by the weekday of its check-in.
func splitDay(in, out time.Time) tally {
	worked := out.Sub(in)
	switch in.Weekday() {
	case time.Sunday:
		return tally{ot100: worked}
	case time.Saturday:
		cutoff := time.Date(in.Year(), in.Month(), in.Day(), SaturdayCutoff, 0, 0, 0, in.Location())
		if !out.After(cutoff) {
			return capRegular(worked)
		}
		if !in.Before(cutoff) {
			return tally{ot100: worked}
		}
		before := capRegular(cutoff.Sub(in))
		before.ot100 = out.Sub(cutoff)
		return before
	default:
		return capRegular(worked)
	}
}

func capRegular(worked time.Duration) tally {
	if worked <= RegularDayLimit {
		return tally{regular: worked}
	}
	return tally{regular: RegularDayLimit, ot50: worked - RegularDayLimit}
}

func hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Minute)).Div(decimal.NewFromInt(60)).Round(2)
}

// dayOf keeps the calendar date of t as written, without converting zones.
// Work dates come from DATE columns and arrive as UTC midnight.
func dayOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
