package email

import (
	"errors"
	"fmt"
	"time"
)

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	// From is "Name <addr>" when the sender has a display name, else the
	// bare address.
	From  string
	Date  time.Time
	Flags []string // \Seen, \Flagged, \Answered, \Deleted
	UID   uint32
}

// ParsedMessage holds an envelope with its decoded bodies.
type ParsedMessage struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

// AuthError indicates that IMAP login was rejected for a mailbox.
type AuthError struct {
	MailboxID string
	Message   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.MailboxID, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
