package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	apperrors "sheetcheck/internal/errors"
	"sheetcheck/pkg/contracts/domain"
)

const (
	// DefaultSubjectTemplate is used when no subject template is configured
	DefaultSubjectTemplate = "Data Validation Alert - Missing Data Found"
	// CleanSubject is the fixed subject of a run without findings
	CleanSubject = "Data Validation Complete - No Issues Found"
	// MaxListedErrors caps the error rows rendered into a message body
	MaxListedErrors = 10
)

// Settings describes who receives run notifications and how they are addressed
type Settings struct {
	BusinessUnit    string
	Email           string
	CC              []string
	SubjectTemplate string
}

// Recipients returns the business-unit address followed by the cc list, blanks dropped
func (s Settings) Recipients() []string {
	out := make([]string, 0, 1+len(s.CC))
	for _, addr := range append([]string{s.Email}, s.CC...) {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Notifier renders run reports into messages and sends them
type Notifier struct {
	sender   Sender
	settings Settings
	now      func() time.Time
	logger   *slog.Logger
}

// NewNotifier creates a notifier that delivers through sender
func NewNotifier(sender Sender, settings Settings, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.SubjectTemplate == "" {
		settings.SubjectTemplate = DefaultSubjectTemplate
	}
	if settings.BusinessUnit == "" {
		settings.BusinessUnit = "Team"
	}
	return &Notifier{
		sender:   sender,
		settings: settings,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends the message for decision. It returns false on any render or
// transport failure and never panics.
func (n *Notifier) Notify(ctx context.Context, decision domain.NotificationDecision, report *domain.AggregateReport) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "Notification panicked",
				slog.String("decision", string(decision)),
				slog.Any("panic", r))
			sent = false
		}
	}()

	msg, err := n.Compose(decision, report)
	if err != nil {
		n.logger.ErrorContext(ctx, "Failed to render notification",
			slog.String("decision", string(decision)),
			slog.String("error", err.Error()))
		return false
	}

	if err := n.deliver(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "Failed to send notification",
			slog.String("decision", string(decision)),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return false
	}

	n.logger.InfoContext(ctx, "Notification sent",
		slog.String("decision", string(decision)),
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject))
	return true
}

// deliver hands msg to the sender and classifies transport failures
func (n *Notifier) deliver(ctx context.Context, msg Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		return apperrors.NewNotificationError("failed to deliver notification", err).
			WithContext("subject", msg.Subject).
			WithContext("recipients", len(msg.To))
	}
	return nil
}

// Compose renders the message for a decision without sending it
func (n *Notifier) Compose(decision domain.NotificationDecision, report *domain.AggregateReport) (Message, error) {
	if report == nil {
		return Message{}, fmt.Errorf("no report to notify about")
	}

	now := n.now()
	data := n.bodyData(decision, report, now)

	var subject string
	tmpl := alertTemplate
	switch decision {
	case domain.DecisionIssuesFound, domain.DecisionPeriodicDue:
		subject = fmt.Sprintf("%s - %s", n.settings.SubjectTemplate, now.Format("2006-01-02 15:04"))
	case domain.DecisionClean:
		subject = CleanSubject
		tmpl = cleanTemplate
	default:
		return Message{}, fmt.Errorf("unknown notification decision %q", decision)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s body: %w", decision, err)
	}

	return Message{
		To:       n.settings.Recipients(),
		Subject:  subject,
		HTMLBody: body.String(),
		Tag:      string(decision),
	}, nil
}

type tableLine struct {
	Name           string
	TotalRows      int
	ValidRows      int
	ErrorRows      int
	SkippedRows    int
	TotalColumns   int
	ValidationRate string
	Failure        string
	MissingData    domain.MissingDataDetails
}

type bodyData struct {
	BusinessUnit string
	Source       string
	Timestamp    string
	Periodic     bool
	DueSchedules []string
	Tables       []tableLine
	Errors       []string
	MoreErrors   int
	TotalErrors  int
}

func (n *Notifier) bodyData(decision domain.NotificationDecision, report *domain.AggregateReport, now time.Time) bodyData {
	data := bodyData{
		BusinessUnit: n.settings.BusinessUnit,
		Source:       report.Source,
		Timestamp:    now.Format("2006-01-02 15:04:05"),
		Periodic:     decision == domain.DecisionPeriodicDue,
		DueSchedules: report.DueSchedules,
		TotalErrors:  len(report.Errors),
	}
	if data.Source == "" {
		data.Source = "N/A"
	}

	for _, t := range report.Tables {
		data.Tables = append(data.Tables, tableLine{
			Name:           t.TableID,
			TotalRows:      t.Summary.TotalRows,
			ValidRows:      t.Summary.ValidRows,
			ErrorRows:      t.Summary.ErrorRows,
			SkippedRows:    t.Summary.SkippedRows,
			TotalColumns:   t.Summary.TotalColumns,
			ValidationRate: fmt.Sprintf("%.1f%%", t.Summary.ValidationRate),
			Failure:        t.Failure,
			MissingData:    t.MissingData,
		})
	}

	for i, e := range report.Errors {
		if i == MaxListedErrors {
			data.MoreErrors = len(report.Errors) - MaxListedErrors
			break
		}
		data.Errors = append(data.Errors, formatError(e))
	}
	return data
}

func formatError(e domain.ReportError) string {
	if e.RowIndex > 0 {
		return fmt.Sprintf("%s, row %d: %s", e.Table, e.RowIndex, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
<body>
<h2>Data Validation Alert</h2>
<p>Dear {{.BusinessUnit}},</p>
{{if .Periodic}}<p>A scheduled data update is due{{if .DueSchedules}} for: {{range $i, $s := .DueSchedules}}{{if $i}}, {{end}}{{$s}}{{end}}{{end}}. Please make sure the spreadsheet is up to date.</p>
{{else}}<p>Our automated data validation process has detected issues in the master spreadsheet.</p>
{{end}}
<h3>Validation Summary</h3>
<p><strong>File:</strong> {{.Source}}<br>
<strong>Validation Time:</strong> {{.Timestamp}}<br>
<strong>Total Errors:</strong> {{.TotalErrors}}</p>
<ul>
{{range .Tables}}<li><strong>{{.Name}}:</strong> {{if .Failure}}could not be validated ({{.Failure}}){{else}}{{.TotalRows}} rows, {{.ValidRows}} valid, {{.ErrorRows}} with errors, {{.SkippedRows}} skipped, validation rate {{.ValidationRate}}{{end}}
{{with .MissingData}}{{if .HasMissingData}}<ul>
{{range .RequiredNulls}}<li>{{.Column}}: {{.Count}} missing values</li>
{{end}}{{if .EmptyRows}}<li>Empty rows found: {{len .EmptyRows}}</li>
{{end}}</ul>{{end}}{{end}}</li>
{{end}}</ul>
{{if .Errors}}<h3>Validation Errors</h3>
<ul>
{{range .Errors}}<li>{{.}}</li>
{{end}}{{if .MoreErrors}}<li><em>... and {{.MoreErrors}} more</em></li>
{{end}}</ul>
{{end}}
<p>Please review and update the data as soon as possible.</p>
<p>Best regards,<br>
Data Validation System</p>
</body>
</html>
`))

var cleanTemplate = template.Must(template.New("clean").Parse(`<html>
<body>
<h2>Data Validation Complete</h2>
<p>Dear {{.BusinessUnit}},</p>
<p>Good news! The data validation process has completed successfully with no issues found.</p>
<h3>Validation Summary</h3>
<p><strong>File:</strong> {{.Source}}<br>
<strong>Validation Time:</strong> {{.Timestamp}}</p>
<ul>
{{range .Tables}}<li><strong>{{.Name}}:</strong> {{.TotalRows}} rows, {{.ValidRows}} valid, {{.TotalColumns}} columns, validation rate {{.ValidationRate}}</li>
{{end}}</ul>
<p>All required data is present and the spreadsheet is ready for processing.</p>
<p>Best regards,<br>
Data Validation System</p>
</body>
</html>
`))
