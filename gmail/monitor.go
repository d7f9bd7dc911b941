package gmail

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	initialFetchCount  = 20 // Messages delivered on startup
	periodicFetchCount = 10 // Messages checked on each poll
)

// MailSource is what the monitor needs from a Client.
type MailSource interface {
	RecentMailIDs(ctx context.Context, query string, max int64) ([]MessageRef, error)
	GetMailByID(ctx context.Context, id string, opts ...GetOption) (*Message, error)
}

// Filter hides messages. Match returns the rule that matched.
type Filter interface {
	Match(from, subject, body string) (string, bool)
}

// Monitor polls a mailbox query and delivers new messages.
type Monitor struct {
	src          MailSource
	filter       Filter
	query        string
	interval     time.Duration
	initialDelay time.Duration
	lastID       string
}

// NewMonitor creates a monitor for query. filter may be nil.
func NewMonitor(src MailSource, filter Filter, query string, interval time.Duration) *Monitor {
	return &Monitor{src: src, filter: filter, query: query, interval: interval}
}

// SetInitialDelay postpones the first fetch, giving a UI time to draw.
func (m *Monitor) SetInitialDelay(d time.Duration) {
	m.initialDelay = d
}

// Run delivers the most recent messages and then every new one, oldest first,
// until ctx is done. It closes out on return.
func (m *Monitor) Run(ctx context.Context, out chan<- *Message) {
	defer close(out)
	slog := log.With().Str("module", "monitor").Str("query", m.query).Logger()

	if m.initialDelay > 0 {
		select {
		case <-time.After(m.initialDelay):
		case <-ctx.Done():
			return
		}
	}

	slog.Info().Int64("count", initialFetchCount).Msg("Initial fetch")
	refs, err := m.src.RecentMailIDs(ctx, m.query, initialFetchCount)
	if err != nil {
		slog.Error().Err(err).Msg("Unable to retrieve initial list of messages")
	} else {
		if len(refs) > 0 {
			m.lastID = refs[0].ID
		}
		if !m.deliver(ctx, refs, out) {
			return
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info().Msg("Stopping")
			return
		case <-ticker.C:
			if !m.poll(ctx, out) {
				return
			}
		}
	}
}

// poll delivers messages newer than the last one seen. It returns false when
// ctx ended during delivery.
func (m *Monitor) poll(ctx context.Context, out chan<- *Message) bool {
	refs, err := m.src.RecentMailIDs(ctx, m.query, periodicFetchCount)
	if err != nil {
		log.Warn().Str("module", "monitor").Err(err).Msg("Error checking for new messages")
		return ctx.Err() == nil
	}
	var fresh []MessageRef
	for _, r := range refs {
		if r.ID == m.lastID {
			break
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return true
	}
	if m.lastID != "" && len(fresh) == periodicFetchCount {
		log.Warn().Str("module", "monitor").Str("lastId", m.lastID).
			Msg("Every fetched message is new, some may have been missed")
	}
	m.lastID = refs[0].ID
	return m.deliver(ctx, fresh, out)
}

// deliver sends refs (newest first) oldest first, skipping filtered and
// unreadable messages.
func (m *Monitor) deliver(ctx context.Context, refs []MessageRef, out chan<- *Message) bool {
	for i := len(refs) - 1; i >= 0; i-- {
		id := refs[i].ID
		msg, err := m.src.GetMailByID(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			log.Warn().Str("module", "monitor").Str("id", id).Err(err).Msg("Unable to retrieve message")
			continue
		}
		if m.filter != nil {
			if rule, ok := m.filter.Match(msg.From, msg.Subject, msg.Body); ok {
				log.Debug().Str("module", "monitor").Str("id", id).Str("rule", rule).Msg("Message filtered")
				continue
			}
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
