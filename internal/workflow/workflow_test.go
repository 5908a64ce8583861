package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sheetcheck/pkg/contracts/domain"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Sheets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if sheets := args.Get(0); sheets != nil {
		return sheets.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLoader) Load(ctx context.Context, sheet string) (*domain.Table, error) {
	args := m.Called(ctx, sheet)
	if table := args.Get(0); table != nil {
		return table.(*domain.Table), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, decision domain.NotificationDecision, report *domain.AggregateReport) bool {
	args := m.Called(ctx, decision, report)
	return args.Bool(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestWorkflow(t *testing.T, notifier Notifier, schedules []domain.RecurrenceSchedule, now time.Time) *Workflow {
	t.Helper()
	w, err := New(domain.DefaultRuleSet(), schedules, notifier, quietLogger(), WithClock(fixedClock(now)))
	require.NoError(t, err)
	return w
}

func TestWorkflow_RunWorkbook_SingleNotificationForManyIssues(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Sheets", mock.Anything).Return([]string{"A", "B", "C"}, nil)
	loader.On("Load", mock.Anything, "A").Return(invalidTable("A"), nil)
	loader.On("Load", mock.Anything, "B").Return(invalidTable("B"), nil)
	loader.On("Load", mock.Anything, "C").Return(nil, errors.New("bad sheet"))

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, domain.DecisionIssuesFound, mock.AnythingOfType("*domain.AggregateReport")).Return(true).Once()

	schedules := []domain.RecurrenceSchedule{
		monthly28,
		{Subject: "Deposits", Frequency: domain.FrequencyMonthly, DeadlineDay: 26},
	}
	w := newTestWorkflow(t, notifier, schedules, may25)

	result := w.RunWorkbook(context.Background(), "book.xlsx", loader, "")

	notifier.AssertNumberOfCalls(t, "Notify", 1)
	loader.AssertExpectations(t)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "book.xlsx", result.Source)
	assert.Equal(t, domain.RunStatusWithIssues, result.Status)
	assert.Equal(t, domain.DecisionIssuesFound, result.Decision)
	assert.True(t, result.NotificationSent)
	assert.Empty(t, result.Error)

	require.NotNil(t, result.Report)
	assert.Equal(t, "book.xlsx", result.Report.Source)
	assert.Equal(t, 3, result.Report.Summary.SheetsProcessed)
	assert.True(t, result.Report.PeriodicTrigger)
	assert.Equal(t, []string{"Loans", "Deposits"}, result.Report.DueSchedules)
	assert.Equal(t, 1, result.Report.Summary.ErrorsBySheet["C"])
	assert.Contains(t, result.Report.Errors[4].Message, "bad sheet")
}

func TestWorkflow_RunWorkbook_Statuses(t *testing.T) {
	tests := []struct {
		name         string
		now          time.Time
		wantDecision domain.NotificationDecision
		wantStatus   domain.RunStatus
	}{
		{name: "clean", now: may10, wantDecision: domain.DecisionClean, wantStatus: domain.RunStatusSuccess},
		{name: "periodic due", now: may25, wantDecision: domain.DecisionPeriodicDue, wantStatus: domain.RunStatusWithIssues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &mockLoader{}
			loader.On("Load", mock.Anything, "Data").Return(validTable("Data"), nil)

			notifier := &mockNotifier{}
			notifier.On("Notify", mock.Anything, tt.wantDecision, mock.Anything).Return(true).Once()

			w := newTestWorkflow(t, notifier, []domain.RecurrenceSchedule{monthly28}, tt.now)
			result := w.RunWorkbook(context.Background(), "book.xlsx", loader, "Data")

			notifier.AssertExpectations(t)
			loader.AssertNotCalled(t, "Sheets", mock.Anything)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantDecision, result.Decision)
			assert.Equal(t, tt.now, result.StartedAt)
		})
	}
}

func TestWorkflow_RunWorkbook_SheetListingFails(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Sheets", mock.Anything).Return(nil, errors.New("not a zip file"))

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, domain.DecisionIssuesFound, mock.Anything).Return(false).Once()

	w := newTestWorkflow(t, notifier, nil, may10)
	result := w.RunWorkbook(context.Background(), "broken.xlsx", loader, "")

	assert.Equal(t, domain.RunStatusWithIssues, result.Status)
	assert.False(t, result.NotificationSent)
	assert.Equal(t, "[notification] issues_found notification was not sent", result.Error)
	require.Len(t, result.Report.Tables, 1)
	assert.Equal(t, "broken.xlsx", result.Report.Tables[0].TableID)
	assert.Equal(t, domain.ErrorKindLoadFailure, result.Report.Errors[0].Kind)
	assert.Contains(t, result.Report.Errors[0].Message, "not a zip file")
}

func TestWorkflow_RunTables_FailedRunSendsNothing(t *testing.T) {
	notifier := &mockNotifier{}

	w := newTestWorkflow(t, notifier, nil, may10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := w.RunTables(ctx, "upload", []TableInput{{ID: "A", Table: validTable("A")}})

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, domain.RunStatusFailed, result.Status)
	assert.Empty(t, result.Decision)
	assert.Contains(t, result.Error, "cancelled")
	assert.NotNil(t, result.Report)
}

func TestWorkflow_RunTables_WithoutNotifier(t *testing.T) {
	w := newTestWorkflow(t, nil, nil, may10)

	result := w.RunTables(context.Background(), "upload", []TableInput{{ID: "A", Table: invalidTable("A")}})

	assert.Equal(t, domain.RunStatusWithIssues, result.Status)
	assert.False(t, result.NotificationSent)
	assert.Empty(t, result.Error, "no notifier means nothing failed to send")
}
