// Package schedule decides when recurring compliance deadlines call for a reminder.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"sheetcheck/pkg/contracts/domain"
)

// Reminder windows, in days before the deadline day
const (
	MonthlyLeadDays  = 7
	BiAnnualLeadDays = 7
	AnnualLeadDays   = 28
)

var (
	// ErrUnknownFrequency is returned for frequency tags other than monthly, bi-annual and annual
	ErrUnknownFrequency = errors.New("unknown frequency")
	// ErrMissingDeadline is returned when a frequency-specific deadline parameter is absent
	ErrMissingDeadline = errors.New("missing deadline parameter")
	// ErrInvalidDeadline is returned for out-of-range days or months
	ErrInvalidDeadline = errors.New("invalid deadline parameter")
)

// Evaluation is the outcome of checking one schedule against a date
type Evaluation struct {
	Subject   string           `json:"subject"`
	Frequency domain.Frequency `json:"frequency"`
	Due       bool             `json:"due"`
	Err       error            `json:"-"`
}

// Malformed reports whether the schedule could not be interpreted
func (e Evaluation) Malformed() bool {
	return e.Err != nil
}

// Evaluate decides whether a single schedule is due on now. Malformed schedules
// are never due; the reason is returned in Err.
func Evaluate(now time.Time, s domain.RecurrenceSchedule) Evaluation {
	freq := domain.Frequency(strings.ToLower(strings.TrimSpace(string(s.Frequency))))
	eval := Evaluation{Subject: s.Subject, Frequency: freq}

	day := now.Day()
	month := int(now.Month())

	switch freq {
	case domain.FrequencyMonthly:
		if eval.Err = checkDay(s.DeadlineDay); eval.Err == nil {
			eval.Due = day >= s.DeadlineDay-MonthlyLeadDays
		}

	case domain.FrequencyBiAnnual:
		if eval.Err = checkDay(s.DeadlineDay); eval.Err != nil {
			break
		}
		if len(s.DeadlineMonths) == 0 {
			eval.Err = fmt.Errorf("%w: deadline_months", ErrMissingDeadline)
			break
		}
		for _, m := range s.DeadlineMonths {
			if eval.Err = checkMonth(m); eval.Err != nil {
				break
			}
		}
		if eval.Err == nil {
			eval.Due = slices.Contains(s.DeadlineMonths, month) && day >= s.DeadlineDay-BiAnnualLeadDays
		}

	case domain.FrequencyAnnual:
		if eval.Err = checkDay(s.DeadlineDay); eval.Err != nil {
			break
		}
		if eval.Err = checkMonth(s.DeadlineMonth); eval.Err == nil {
			eval.Due = month == s.DeadlineMonth && day >= s.DeadlineDay-AnnualLeadDays
		}

	default:
		eval.Err = fmt.Errorf("%w: %q", ErrUnknownFrequency, s.Frequency)
	}

	if eval.Err != nil {
		eval.Due = false
		eval.Err = fmt.Errorf("schedule %q: %w", s.Subject, eval.Err)
	}
	return eval
}

// EvaluateAll evaluates every schedule in order
func EvaluateAll(now time.Time, schedules []domain.RecurrenceSchedule) []Evaluation {
	evals := make([]Evaluation, len(schedules))
	for i, s := range schedules {
		evals[i] = Evaluate(now, s)
	}
	return evals
}

// IsPeriodicTriggerDue reports whether any schedule is due on now
func IsPeriodicTriggerDue(now time.Time, schedules []domain.RecurrenceSchedule) bool {
	for _, s := range schedules {
		if Evaluate(now, s).Due {
			return true
		}
	}
	return false
}

func checkDay(day int) error {
	if day == 0 {
		return fmt.Errorf("%w: deadline_day", ErrMissingDeadline)
	}
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: deadline_day %d", ErrInvalidDeadline, day)
	}
	return nil
}

func checkMonth(month int) error {
	if month == 0 {
		return fmt.Errorf("%w: deadline_month", ErrMissingDeadline)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: deadline_month %d", ErrInvalidDeadline, month)
	}
	return nil
}
