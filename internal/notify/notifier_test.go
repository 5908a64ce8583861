package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "sheetcheck/internal/errors"
	"sheetcheck/pkg/contracts/domain"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() Settings {
	return Settings{
		BusinessUnit:    "Retail Banking",
		Email:           "retail@example.com",
		CC:              []string{"ops@example.com", " ", "audit@example.com"},
		SubjectTemplate: "Missing Data",
	}
}

func newTestNotifier(sender Sender) *Notifier {
	n := NewNotifier(sender, testSettings(), quietLogger())
	n.now = func() time.Time { return time.Date(2025, 5, 25, 9, 30, 0, 0, time.UTC) }
	return n
}

func reportWithErrors(count int) *domain.AggregateReport {
	report := &domain.AggregateReport{
		Source: "master.xlsx",
		Tables: []domain.TableReport{{
			TableID: "Products",
			Summary: domain.TableSummary{TotalRows: count + 2, ValidRows: 2, ErrorRows: count, ValidationRate: 16.67},
			MissingData: domain.MissingDataDetails{
				HasMissingData: true,
				RequiredNulls:  []domain.ColumnNulls{{Column: "Owner", Count: count}},
			},
		}},
	}
	for i := 0; i < count; i++ {
		report.Errors = append(report.Errors, domain.ReportError{
			Table:    "Products",
			Kind:     domain.ErrorKindRow,
			RowIndex: i + 1,
			Status:   domain.RowStatusMissing,
			Message:  fmt.Sprintf("Missing values in: Owner%d", i),
		})
	}
	return report
}

func TestSettings_Recipients(t *testing.T) {
	assert.Equal(t, []string{"retail@example.com", "ops@example.com", "audit@example.com"}, testSettings().Recipients())
	assert.Empty(t, Settings{}.Recipients())
}

func TestNotifier_Compose(t *testing.T) {
	tests := []struct {
		name            string
		decision        domain.NotificationDecision
		report          *domain.AggregateReport
		wantSubject     string
		wantContains    []string
		wantNotContains []string
		wantErr         bool
		errorContains   string
	}{
		{
			name:        "issues found lists first ten errors",
			decision:    domain.DecisionIssuesFound,
			report:      reportWithErrors(12),
			wantSubject: "Missing Data - 2025-05-25 09:30",
			wantContains: []string{
				"Dear Retail Banking",
				"master.xlsx",
				"Products, row 1: Missing values in: Owner0",
				"Products, row 10: Missing values in: Owner9",
				"... and 2 more",
				"Owner: 12 missing values",
				"16.7%",
			},
			wantNotContains: []string{"Owner10"},
		},
		{
			name:     "periodic due names the schedules",
			decision: domain.DecisionPeriodicDue,
			report: &domain.AggregateReport{
				Source:          "master.xlsx",
				IsValid:         true,
				PeriodicTrigger: true,
				DueSchedules:    []string{"Monthly KPIs", "Annual Audit"},
			},
			wantSubject:     "Missing Data - 2025-05-25 09:30",
			wantContains:    []string{"A scheduled data update is due for: Monthly KPIs, Annual Audit"},
			wantNotContains: []string{"... and"},
		},
		{
			name:     "clean run",
			decision: domain.DecisionClean,
			report: &domain.AggregateReport{
				Source:  "master.xlsx",
				IsValid: true,
				Tables: []domain.TableReport{{
					TableID: "Products",
					IsValid: true,
					Summary: domain.TableSummary{TotalRows: 3, ValidRows: 3, TotalColumns: 4, ValidationRate: 100},
				}},
			},
			wantSubject:  CleanSubject,
			wantContains: []string{"no issues found", "Products:</strong> 3 rows, 3 valid, 4 columns, validation rate 100.0%"},
		},
		{
			name:          "nil report",
			decision:      domain.DecisionClean,
			wantErr:       true,
			errorContains: "no report",
		},
		{
			name:          "unknown decision",
			decision:      "maybe",
			report:        &domain.AggregateReport{},
			wantErr:       true,
			errorContains: "unknown notification decision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNotifier(&mockSender{})

			msg, err := n.Compose(tt.decision, tt.report)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Equal(t, string(tt.decision), msg.Tag)
			assert.Len(t, msg.To, 3)
			for _, s := range tt.wantContains {
				assert.Contains(t, msg.HTMLBody, s)
			}
			for _, s := range tt.wantNotContains {
				assert.NotContains(t, msg.HTMLBody, s)
			}
		})
	}
}

func TestNotifier_Notify(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		sender := &mockSender{}
		sender.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
			return m.Subject == CleanSubject && m.To[0] == "retail@example.com"
		})).Return(nil).Once()

		ok := newTestNotifier(sender).Notify(context.Background(), domain.DecisionClean, &domain.AggregateReport{IsValid: true})
		assert.True(t, ok)
		sender.AssertExpectations(t)
	})

	t.Run("transport failure returns false", func(t *testing.T) {
		sender := &mockSender{}
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		ok := newTestNotifier(sender).Notify(context.Background(), domain.DecisionIssuesFound, reportWithErrors(1))
		assert.False(t, ok)
		sender.AssertExpectations(t)
	})

	t.Run("transport failure is a notification error", func(t *testing.T) {
		cause := errors.New("smtp down")
		sender := &mockSender{}
		sender.On("Send", mock.Anything, mock.Anything).Return(cause).Once()

		err := newTestNotifier(sender).deliver(context.Background(), Message{Subject: "Missing Data", To: []string{"a@example.com"}})

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeNotification, appErr.Type)
		assert.Equal(t, "Missing Data", appErr.Context["subject"])
		assert.ErrorIs(t, err, cause)
	})

	t.Run("sender panic returns false", func(t *testing.T) {
		sender := &mockSender{}
		sender.On("Send", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			panic("boom")
		}).Return(nil).Once()

		ok := newTestNotifier(sender).Notify(context.Background(), domain.DecisionIssuesFound, reportWithErrors(1))
		assert.False(t, ok)
	})

	t.Run("render failure does not send", func(t *testing.T) {
		sender := &mockSender{}

		ok := newTestNotifier(sender).Notify(context.Background(), domain.DecisionIssuesFound, nil)
		assert.False(t, ok)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestDevSender_Send(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	sender := NewDevSender(dir)
	sender.now = func() time.Time { return time.Date(2025, 5, 25, 9, 30, 0, 0, time.UTC) }

	err := sender.Send(context.Background(), Message{
		To:       []string{"retail@example.com"},
		Subject:  "Missing Data",
		HTMLBody: "<p>hello</p>",
		Tag:      "issues_found",
	})
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(dir, "2025_05_25_093000_issues_found.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(body))

	raw, err := os.ReadFile(filepath.Join(dir, "2025_05_25_093000_issues_found.json"))
	require.NoError(t, err)
	var meta devMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Missing Data", meta.Subject)
	assert.Equal(t, []string{"retail@example.com"}, meta.To)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "data_alert_-_2025", sanitizeFilename("Data Alert - 2025!"))
	assert.Equal(t, "email", sanitizeFilename("???"))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 150)), 100)
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(quietLogger())
	assert.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"}))
	assert.ErrorIs(t, sender.Send(context.Background(), Message{Subject: "s"}), ErrNoRecipients)
}

type fakePostmark struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.got = email
	return f.resp, f.err
}

func TestPostmarkSender_Send(t *testing.T) {
	cfg := PostmarkConfig{ServerToken: "server", From: "alerts@example.com", ReplyTo: "help@example.com"}
	msg := Message{To: []string{"a@example.com", "b@example.com"}, Subject: "Alert", HTMLBody: "<p>x</p>", Tag: "issues_found"}

	tests := []struct {
		name          string
		client        *fakePostmark
		wantErr       bool
		errorContains string
	}{
		{name: "accepted", client: &fakePostmark{}},
		{
			name:          "api error code",
			client:        &fakePostmark{resp: postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}},
			wantErr:       true,
			errorContains: "postmark error: 300",
		},
		{
			name:          "transport error",
			client:        &fakePostmark{err: errors.New("connection refused")},
			wantErr:       true,
			errorContains: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newPostmarkSender(tt.client, cfg).Send(context.Background(), msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSendFailed)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@example.com,b@example.com", tt.client.got.To)
			assert.Equal(t, "alerts@example.com", tt.client.got.From)
			assert.Equal(t, "help@example.com", tt.client.got.ReplyTo)
		})
	}
}

func TestNewPostmarkSender_RequiresToken(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{From: "alerts@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "server"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
