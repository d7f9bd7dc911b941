package tui

import (
	"time"

	"github.com/bassamadnan/gmailparse/gmail"
)

// NewMailMsg carries a message delivered by the feed.
type NewMailMsg struct{ Mail *gmail.Message }

// ErrorMsg reports a failure of the feed producer.
type ErrorMsg struct{ Err error }

// Error makes it compatible with the error interface.
func (e ErrorMsg) Error() string { return e.Err.Error() }

// StatusTickMsg refreshes the status bar clock.
type StatusTickMsg struct{ Time time.Time }

// FeedDoneMsg means the feed channel closed and no more mail will arrive.
type FeedDoneMsg struct{}

// senderHiddenMsg reports the outcome of adding a sender filter.
type senderHiddenMsg struct {
	sender string
	err    error
}

type clearTempStatusMsg struct{}
