package tui

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/charmbracelet/lipgloss"
)

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// mailTime is the internal date of m in local time.
func mailTime(m *gmail.Message) time.Time {
	if m.UnixTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.UnixTime).Local()
}

// formatListDate shows the time for mail received today and the day otherwise.
func formatListDate(t, now time.Time) string {
	if t.IsZero() {
		return "???"
	}
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("Jan02")
}

// senderName is the display name of a From header, or its address.
func senderName(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		return addr.Address
	}
	if idx := strings.Index(from, "<"); idx > 0 {
		return strings.TrimSpace(from[:idx])
	}
	return from
}

// senderAddress is the bare address of a From header.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}

// mailBadges summarizes the shape of m: html or text, and its attachment count.
func mailBadges(m *gmail.Message) string {
	kind := "txt"
	if !m.IsTextMail {
		kind = "html"
	}
	if n := len(m.Attachments); n > 0 {
		return fmt.Sprintf("%s +%d", kind, n)
	}
	return kind
}

// formatMailListItem renders one four-line boxed list entry. textWidth is the
// width inside the box.
func formatMailListItem(m *gmail.Message, isSelected bool, textWidth int, now time.Time) string {
	boxCharStyle, subjectStyle, secondaryStyle := NormalBoxCharStyle, NormalSubjectStyle, NormalSecondaryTextStyle
	blockStyle := MailListItemStyle
	if isSelected {
		boxCharStyle, subjectStyle, secondaryStyle = SelectedBoxCharStyle, SelectedSubjectStyle, SelectedSecondaryTextStyle
		blockStyle = SelectedMailListItemStyle
	}

	subject := m.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	subjectLine := fmt.Sprintf("%-*s", textWidth, truncate(subject, textWidth))

	from := senderName(m.From)
	if from == "" {
		from = "(Unknown Sender)"
	}
	suffix := formatListDate(mailTime(m), now) + " " + mailBadges(m)
	var secondary string
	if maxFrom := textWidth - lipgloss.Width(suffix) - 1; maxFrom < 1 {
		secondary = truncate(suffix, textWidth)
	} else {
		secondary = truncate(from, maxFrom) + " " + suffix
	}
	secondaryLine := fmt.Sprintf("%-*s", textWidth, secondary)

	bar := boxCharStyle.Render(strings.Repeat(BoxHorizontal, textWidth+2))
	vertical := boxCharStyle.Render(BoxVertical)
	lines := []string{
		boxCharStyle.Render(BoxTopLeft) + bar + boxCharStyle.Render(BoxTopRight),
		vertical + " " + subjectStyle.Render(subjectLine) + " " + vertical,
		vertical + " " + secondaryStyle.Render(secondaryLine) + " " + vertical,
		boxCharStyle.Render(BoxBottomLeft) + bar + boxCharStyle.Render(BoxBottomRight),
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}

// bodyLines splits a body for line-by-line scrolling.
func bodyLines(body string) []string {
	return strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
}
