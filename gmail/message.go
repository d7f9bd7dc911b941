package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bassamadnan/gmailparse/payload"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// TimestampLayout renders dates in the fixed +09:00 zone.
const TimestampLayout = "2006-01-02T15:04:05-0700"

var displayZone = time.FixedZone("JST", 9*60*60)

// InvariantViolationError means an assembled message failed validation. It
// points at a defect in the assembler, not at bad input.
type InvariantViolationError struct {
	MessageID string
	Problems  []string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("message %s violates its contract: %s", e.MessageID, strings.Join(e.Problems, "; "))
}

// ParsedMessage holds everything derived from a raw message except resolved
// attachment content.
type ParsedMessage struct {
	ID            string
	ThreadID      string
	UnixTime      int64
	UnixTimestamp string
	Date          string
	Subject       string
	ContentType   string
	MessageID     string
	Snippet       string
	LabelIDs      []string
	Body          string
	IsTextMail    bool
	Attachments   []AttachmentDescriptor

	From       string
	To         string
	Cc         string
	ReturnPath string
}

// ParseMessage classifies the payload of raw and extracts its headers. A payload
// no rule accepts yields an empty body and no attachments instead of an error,
// so one odd message does not sink a batch. An attachment without content is
// still an error.
func ParseMessage(raw *RawMessage) (*ParsedMessage, error) {
	if raw == nil || raw.Payload == nil {
		return nil, fmt.Errorf("%w: message has no payload", ErrUnexpectedShape)
	}
	unixTime, err := strconv.ParseInt(raw.InternalDate, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: internalDate %q: %v", ErrUnexpectedShape, raw.InternalDate, err)
	}

	root := raw.Payload
	pm := &ParsedMessage{
		ID:            raw.ID,
		ThreadID:      raw.ThreadID,
		UnixTime:      unixTime,
		UnixTimestamp: FormatTimestamp(time.UnixMilli(unixTime)),
		Snippet:       raw.Snippet,
		LabelIDs:      append([]string{}, raw.LabelIDs...),
		Attachments:   []AttachmentDescriptor{},
	}
	pm.From, _ = root.Header("From")
	pm.To, _ = root.Header("To")
	pm.Cc, _ = root.Header("Cc")
	pm.ReturnPath, _ = root.Header("Return-Path")
	pm.Subject, _ = root.Header("Subject")
	pm.ContentType, _ = root.Header("Content-Type")
	pm.MessageID, _ = root.Header("Message-ID")

	pm.Date = pm.UnixTimestamp
	if v, ok := root.Header("Date"); ok && v != "" {
		if t, err := ParseDate(v); err == nil {
			pm.Date = FormatTimestamp(t)
		} else {
			log.Warn().Str("module", "gmail").Str("id", raw.ID).Str("date", v).Err(err).
				Msg("Unparseable Date header, using internal date")
		}
	}

	if report := payload.CheckPartIDs(root); !report.OK() {
		log.Warn().Str("module", "gmail").Str("id", raw.ID).Strs("partIds", report.PartIDs).
			Strs("violations", report.Violations).Msg("Unexpected part ids")
	}

	parsed, err := payload.Classify(root)
	if err != nil {
		var cerr *payload.ClassificationError
		if !errors.As(err, &cerr) {
			return nil, err
		}
		log.Warn().Str("module", "gmail").Str("id", raw.ID).Str("mimeType", root.MimeType).
			Str("reasons", cerr.Error()).Msg("Payload not classified, using empty body")
		return pm, nil
	}
	log.Debug().Str("module", "gmail").Str("id", raw.ID).Stringer("kind", parsed.Kind).
		Int("attachments", len(parsed.Attachments)).Msg("Payload classified")

	descriptors, err := DescribeAttachments(parsed.Attachments)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", raw.ID, err)
	}
	pm.Body = parsed.Body
	pm.IsTextMail = parsed.IsTextMail
	pm.Attachments = descriptors
	return pm, nil
}

// Assemble resolves attachment content through f and returns the final
// message. Downloads run concurrently; the attachment order is kept.
func (pm *ParsedMessage) Assemble(ctx context.Context, f AttachmentFetcher) (*Message, error) {
	attachments := make([]Attachment, len(pm.Attachments))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range pm.Attachments {
		g.Go(func() error {
			a, err := d.Resolve(gctx, f, pm.ID)
			if err != nil {
				return err
			}
			attachments[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Message{
		ID:            pm.ID,
		ThreadID:      pm.ThreadID,
		UnixTime:      pm.UnixTime,
		UnixTimestamp: pm.UnixTimestamp,
		Subject:       pm.Subject,
		ContentType:   pm.ContentType,
		MessageID:     pm.MessageID,
		Snippet:       pm.Snippet,
		Date:          pm.Date,
		LabelIDs:      append([]string{}, pm.LabelIDs...),
		Body:          pm.Body,
		Body2:         CompressText(pm.Body),
		Attachments:   attachments,
		IsTextMail:    pm.IsTextMail,
		From:          pm.From,
		To:            pm.To,
		Cc:            pm.Cc,
		ReturnPath:    pm.ReturnPath,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// AssembleMessage parses raw and resolves its attachments in one step.
func AssembleMessage(ctx context.Context, raw *RawMessage, f AttachmentFetcher) (*Message, error) {
	pm, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	return pm.Assemble(ctx, f)
}

// Validate checks the structural contract of m and returns an
// *InvariantViolationError listing every breach.
func (m *Message) Validate() error {
	var problems []string
	if m.ID == "" {
		problems = append(problems, "id is empty")
	}
	if m.LabelIDs == nil {
		problems = append(problems, "labelIds is nil")
	}
	if m.Attachments == nil {
		problems = append(problems, "attachments is nil")
	}
	if m.UnixTimestamp == "" {
		problems = append(problems, "unixTimestamp is empty")
	}
	if m.Date == "" {
		problems = append(problems, "date is empty")
	}
	if m.Body2 != CompressText(m.Body) {
		problems = append(problems, "body2 does not match body")
	}
	for i, a := range m.Attachments {
		if a.Size < 0 {
			problems = append(problems, fmt.Sprintf("attachment %d has negative size", i))
		}
	}
	if len(problems) > 0 {
		return &InvariantViolationError{MessageID: m.ID, Problems: problems}
	}
	return nil
}

// lineBreaks treats a bare \r and the Unicode line and paragraph separators
// as line ends too.
var lineBreaks = regexp.MustCompile(`[\r\n\x{2028}\x{2029}]+`)

// isTrailingSpace is unicode.IsSpace plus the byte order mark, which mail
// clients leave at line ends.
func isTrailingSpace(r rune) bool {
	return r == '\uFEFF' || unicode.IsSpace(r)
}

// CompressText strips trailing whitespace from every line and drops the lines
// left empty, so runs of blank lines fold into a single line break.
func CompressText(text string) string {
	lines := lineBreaks.Split(text, -1)
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRightFunc(line, isTrailingSpace); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// FormatTimestamp renders t in the fixed +09:00 zone.
func FormatTimestamp(t time.Time) string {
	return t.In(displayZone).Format(TimestampLayout)
}

var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC822,
	time.RFC3339,
}

// ParseDate parses a Date header, tolerating the variants seen in the wild.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := mail.ParseDate(v); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	// Drop a trailing zone comment such as "(UTC)" and try again.
	if open := strings.LastIndex(v, " ("); open != -1 {
		if end := strings.LastIndex(v, ")"); end > open {
			stripped := strings.TrimSpace(v[:open] + v[end+1:])
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, stripped); err == nil {
					return t, nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
