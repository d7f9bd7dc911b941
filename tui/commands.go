package tui

import (
	"time"

	"github.com/bassamadnan/gmailparse/gmail"
	tea "github.com/charmbracelet/bubbletea"
)

// waitForMailCmd reads one message from the feed. A closed feed yields
// FeedDoneMsg.
func waitForMailCmd(feed <-chan *gmail.Message) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-feed
		if !ok {
			return FeedDoneMsg{}
		}
		return NewMailMsg{Mail: m}
	}
}

// waitForErrorCmd reads one error reported by the feed producer. A closed or
// nil channel yields nothing.
func waitForErrorCmd(errs <-chan error) tea.Cmd {
	if errs == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-errs
		if !ok || err == nil {
			return nil
		}
		return ErrorMsg{Err: err}
	}
}

func statusTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return StatusTickMsg{Time: t}
	})
}

// hideSenderCmd persists a sender filter off the UI goroutine.
func hideSenderCmd(f SenderFilter, sender string) tea.Cmd {
	return func() tea.Msg {
		return senderHiddenMsg{sender: sender, err: f.AddIgnoreSender(sender)}
	}
}
