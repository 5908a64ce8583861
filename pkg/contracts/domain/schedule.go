package domain

// Frequency is the recurrence tag of a compliance schedule
type Frequency string

const (
	FrequencyMonthly  Frequency = "monthly"
	FrequencyBiAnnual Frequency = "bi-annual"
	FrequencyAnnual   Frequency = "annual"
)

// RecurrenceSchedule describes when a subject's compliance deadline recurs.
// Monthly schedules use DeadlineDay only, bi-annual schedules use DeadlineMonths and
// DeadlineDay, annual schedules use DeadlineMonth and DeadlineDay.
type RecurrenceSchedule struct {
	Subject        string    `json:"subject" yaml:"subject"`
	Frequency      Frequency `json:"frequency" yaml:"frequency"`
	DeadlineDay    int       `json:"deadline_day,omitempty" yaml:"deadline_day"`
	DeadlineMonths []int     `json:"deadline_months,omitempty" yaml:"deadline_months"`
	DeadlineMonth  int       `json:"deadline_month,omitempty" yaml:"deadline_month"`
}
