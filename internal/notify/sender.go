// Package notify delivers the single message of a validation run by email.
//
// A Notifier renders the subject and HTML body for a run decision and hands
// the message to a Sender. Three senders are available:
//
//   - PostmarkSender delivers through the Postmark transactional API
//   - DevSender writes each message as HTML and JSON files to a directory
//   - LogSender only logs the message
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRecipients is returned when a message has no destination address
	ErrNoRecipients = errors.New("no recipients configured")
	// ErrSendFailed wraps every transport failure
	ErrSendFailed = errors.New("failed to send email")
	// ErrInvalidConfig is returned by sender constructors
	ErrInvalidConfig = errors.New("invalid email configuration")
)

// Message is a rendered email ready for delivery
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	HTMLBody string   `json:"-"`
	Tag      string   `json:"tag,omitempty"`
}

// Validate checks the message has somewhere to go and something to say
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrSendFailed)
	}
	return nil
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
