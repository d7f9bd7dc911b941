package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

type viewState int

const (
	viewLoading viewState = iota
	viewDashboard
	viewFocusedMail
)

const (
	mailListItemHeight  = 4
	minListPaneWidth    = 30
	minPreviewPaneWidth = 40
	loadingText         = "Loading mail..."
)

// SenderFilter persists "hide this sender" requests.
type SenderFilter interface {
	AddIgnoreSender(sender string) error
}

// Model is the bubbletea model of the mail browser. Mail arrives on a feed
// channel fed by a search or a Monitor.
type Model struct {
	filter SenderFilter
	feed   <-chan *gmail.Message
	errs   <-chan error
	source string

	mails            []*gmail.Message
	selectedIdx      int
	viewportTopLine  int
	previewScrollPos int
	focusScrollPos   int

	currentView viewState
	spinner     spinner.Model

	width, height int
	statusBarText string
	statusIsError bool
	statusIsTemp  bool

	feedErr  error
	feedDone bool
	now      func() time.Time
}

// NewModel creates a browser reading from feed. source describes the feed in
// the status bar. filter may be nil, which disables hiding senders.
func NewModel(feed <-chan *gmail.Message, filter SenderFilter, source string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		spinner:       sp,
		filter:        filter,
		feed:          feed,
		source:        source,
		currentView:   viewLoading,
		statusBarText: "Connecting to Gmail...",
		mails:         []*gmail.Message{},
		now:           time.Now,
	}
}

// WithErrors makes the browser report failures of the feed producer, such as
// a search refused for matching too many messages.
func (m Model) WithErrors(errs <-chan error) Model {
	m.errs = errs
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForMailCmd(m.feed),
		statusTickCmd(1 * time.Second),
		m.spinner.Tick,
	}
	if m.errs != nil {
		cmds = append(cmds, waitForErrorCmd(m.errs))
	}
	return tea.Batch(cmds...)
}

func (m Model) selected() *gmail.Message {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.mails) {
		return nil
	}
	return m.mails[m.selectedIdx]
}

func (m Model) numItemsThatFitInList() int {
	h := m.height - 1 - lipgloss.Height(MailListTitleStyle.Render(" "))
	return max(h/mailListItemHeight, 0)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureSelectedVisible()
		if m.currentView == viewLoading && m.width > 0 && (len(m.mails) > 0 || m.feedDone) {
			m.currentView = viewDashboard
			m.setStandardStatus()
		}

	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.updateStatusBar("Quitting...")
			return m, tea.Quit
		}
		switch m.currentView {
		case viewDashboard:
			cmds = append(cmds, m.handleDashboardKey(msg.String()))
		case viewFocusedMail:
			m.handleFocusedKey(msg.String())
		}

	case NewMailMsg:
		if msg.Mail != nil {
			m.insert(msg.Mail)
			if m.currentView == viewLoading && m.width > 0 {
				m.currentView = viewDashboard
				m.setStandardStatus()
			} else if m.currentView != viewLoading {
				m.showTemporaryStatus(fmt.Sprintf("New: %s", truncate(msg.Mail.Subject, 30)), 4*time.Second, &cmds)
			}
		}
		cmds = append(cmds, waitForMailCmd(m.feed))

	case FeedDoneMsg:
		m.feedDone = true
		if m.currentView == viewLoading {
			m.currentView = viewDashboard
		}
		if !m.statusIsTemp {
			m.setStandardStatus()
		}
		log.Debug().Str("module", "tui").Msg("Mail feed closed")

	case senderHiddenMsg:
		if msg.err != nil {
			m.updateStatusError(fmt.Sprintf("Error: %v", msg.err))
			break
		}
		n := m.removeSender(msg.sender)
		m.showTemporaryStatus(fmt.Sprintf("Hiding %s (%d removed)", msg.sender, n), 4*time.Second, &cmds)

	case ErrorMsg:
		m.feedErr = msg.Err
		m.statusIsTemp = false
		m.setStandardStatus()
		log.Debug().Str("module", "tui").Err(msg.Err).Msg("Mail feed failed")
		cmds = append(cmds, waitForErrorCmd(m.errs))

	case spinner.TickMsg:
		// Stop ticking once the list is up.
		if m.currentView == viewLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case StatusTickMsg:
		if !m.statusIsTemp && m.currentView != viewLoading {
			m.setStandardStatus()
		}
		cmds = append(cmds, statusTickCmd(1*time.Second))

	case clearTempStatusMsg:
		if m.statusIsTemp {
			m.statusIsTemp = false
			m.setStandardStatus()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleDashboardKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.ensureSelectedVisible()
			m.previewScrollPos = 0
		}
	case "down", "j":
		if m.selectedIdx < len(m.mails)-1 {
			m.selectedIdx++
			m.ensureSelectedVisible()
			m.previewScrollPos = 0
		}
	case "enter":
		if m.selected() != nil {
			m.currentView = viewFocusedMail
			m.focusScrollPos = 0
			m.setStandardStatus()
		}
	case "K":
		if m.previewScrollPos > 0 {
			m.previewScrollPos--
		}
	case "J":
		if sel := m.selected(); sel != nil && m.previewScrollPos < len(bodyLines(sel.Body2))-1 {
			m.previewScrollPos++
		}
	case "x":
		sel := m.selected()
		if sel == nil || m.filter == nil {
			break
		}
		if sender := senderAddress(sel.From); sender != "" {
			return hideSenderCmd(m.filter, sender)
		}
	}
	return nil
}

func (m *Model) handleFocusedKey(key string) {
	switch key {
	case "esc":
		m.currentView = viewDashboard
		m.setStandardStatus()
	case "up", "k":
		if m.focusScrollPos > 0 {
			m.focusScrollPos--
		}
	case "down", "j":
		if sel := m.selected(); sel != nil && m.focusScrollPos < len(bodyLines(sel.Body))-1 {
			m.focusScrollPos++
		}
	}
}

// insert adds mail keeping the list newest first and the selection on the same
// message. A message already listed is replaced.
func (m *Model) insert(mail *gmail.Message) {
	var selectedID string
	if sel := m.selected(); sel != nil {
		selectedID = sel.ID
	}

	replaced := false
	for i, existing := range m.mails {
		if existing.ID == mail.ID {
			m.mails[i] = mail
			replaced = true
			break
		}
	}
	if !replaced {
		m.mails = append(m.mails, mail)
	}
	sort.SliceStable(m.mails, func(i, j int) bool {
		return m.mails[i].UnixTime > m.mails[j].UnixTime
	})

	m.selectedIdx = 0
	if selectedID == "" {
		selectedID = mail.ID
	}
	for i, e := range m.mails {
		if e.ID == selectedID {
			m.selectedIdx = i
			break
		}
	}
	m.ensureSelectedVisible()
}

// removeSender drops every listed message from sender and returns how many
// were removed.
func (m *Model) removeSender(sender string) int {
	kept := m.mails[:0]
	for _, mail := range m.mails {
		if !strings.EqualFold(senderAddress(mail.From), sender) {
			kept = append(kept, mail)
		}
	}
	removed := len(m.mails) - len(kept)
	m.mails = kept
	if m.selectedIdx >= len(m.mails) {
		m.selectedIdx = max(len(m.mails)-1, 0)
	}
	m.previewScrollPos = 0
	m.ensureSelectedVisible()
	return removed
}

func (m *Model) showTemporaryStatus(text string, duration time.Duration, cmds *[]tea.Cmd) {
	m.statusBarText = text
	m.statusIsError = false
	m.statusIsTemp = true
	*cmds = append(*cmds, tea.Tick(duration, func(time.Time) tea.Msg {
		return clearTempStatusMsg{}
	}))
}

func (m *Model) updateStatusBar(text string) {
	m.statusBarText = text
	m.statusIsError = false
	m.statusIsTemp = false
}

func (m *Model) updateStatusError(text string) {
	m.statusBarText = text
	m.statusIsError = true
	m.statusIsTemp = false
}

func (m *Model) setStandardStatus() {
	if m.statusIsTemp {
		return
	}
	feedStatus := m.source
	if m.feedErr != nil {
		feedStatus += fmt.Sprintf(" failed: %v", m.feedErr)
	} else if m.feedDone {
		feedStatus += " (done)"
	}
	status := fmt.Sprintf(" %s | %s | %d messages ", feedStatus, m.now().Format("15:04:05"), len(m.mails))

	keyHints := "[Q/Ctrl+C]:Quit"
	switch m.currentView {
	case viewDashboard:
		keyHints += " | [↑↓/jk]:Nav | [Enter]:Full | [KJ]:Scroll Preview"
		if m.filter != nil {
			keyHints += " | [x]:Hide Sender"
		}
	case viewFocusedMail:
		keyHints += " | [↑↓/jk]:Scroll | [Esc]:Back"
	}
	if m.feedErr != nil {
		m.updateStatusError(status + "| " + keyHints)
		return
	}
	m.updateStatusBar(status + "| " + keyHints)
}

func (m *Model) ensureSelectedVisible() {
	if len(m.mails) == 0 {
		m.viewportTopLine = 0
		return
	}
	fit := m.numItemsThatFitInList()
	if fit <= 0 {
		m.viewportTopLine = m.selectedIdx
		return
	}
	if m.selectedIdx < m.viewportTopLine {
		m.viewportTopLine = m.selectedIdx
	} else if m.selectedIdx >= m.viewportTopLine+fit {
		m.viewportTopLine = m.selectedIdx - fit + 1
	}
	m.viewportTopLine = min(max(m.viewportTopLine, 0), max(len(m.mails)-fit, 0))
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing terminal size..."
	}
	contentHeight := max(m.height-1, 0)
	var main string
	switch m.currentView {
	case viewLoading:
		main = lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" "+loadingText)
	case viewDashboard:
		listWidth, previewWidth := m.paneWidths()
		main = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderMailList(listWidth, contentHeight),
			m.renderPreviewPane(previewWidth, contentHeight))
	case viewFocusedMail:
		main = m.renderFocusedMailView(m.width, contentHeight)
	}
	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar()))
}

// paneWidths splits the screen between list and preview, giving the list a
// third and never squeezing either below its minimum when there is room.
func (m Model) paneWidths() (int, int) {
	if m.width < minListPaneWidth {
		return m.width, 0
	}
	if m.width < minListPaneWidth+minPreviewPaneWidth {
		return minListPaneWidth, m.width - minListPaneWidth
	}
	list := max(int(float64(m.width)*0.35), minListPaneWidth)
	list = min(list, m.width-minPreviewPaneWidth)
	return list, m.width - list
}

func (m Model) renderMailList(paneWidth, paneHeight int) string {
	title := MailListTitleStyle.Render("Mail")
	itemsHeight := max(paneHeight-lipgloss.Height(title), 0)
	textWidth := max(paneWidth-MailListItemStyle.GetHorizontalPadding()-4, 10)

	start := min(max(m.viewportTopLine, 0), len(m.mails))
	end := min(start+itemsHeight/mailListItemHeight, len(m.mails))

	var items []string
	if paneWidth > 0 && paneHeight > 0 {
		now := m.now()
		for i := start; i < end; i++ {
			items = append(items, formatMailListItem(m.mails[i], i == m.selectedIdx, textWidth, now))
		}
	}
	if len(m.mails) == 0 && m.feedDone {
		items = append(items, NormalSecondaryTextStyle.Render(" No messages."))
	}
	list := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n"))
	return MailListStyle.Width(paneWidth).Height(paneHeight).Render(list)
}

func headerLine(key, value string) string {
	return HeaderKeyStyle.Render(key) + " " + HeaderValStyle.Render(value) + "\n"
}

// renderBox draws the titled content box shared by the preview and full views.
func renderBox(title, content string, paneWidth, paneHeight int) string {
	styledTitle := TitleStyle.Render(title)
	maxContentHeight := max(paneHeight-lipgloss.Height(styledTitle)-ContentBoxStyle.GetVerticalPadding(), 0)
	inner := lipgloss.NewStyle().
		Width(paneWidth - ContentBoxStyle.GetHorizontalPadding()).
		MaxHeight(maxContentHeight).
		Render(content)
	return ContentBoxStyle.Width(paneWidth).Height(paneHeight).Render(
		lipgloss.JoinVertical(lipgloss.Top, styledTitle, inner),
	)
}

// visibleLines returns at most height lines of body starting at offset,
// clamped so the last page stays full.
func visibleLines(body string, offset, height int) string {
	lines := bodyLines(body)
	if height <= 0 {
		return ""
	}
	start := max(min(offset, len(lines)-height), 0)
	end := min(start+height, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func renderBody(body string) string {
	if body == "" {
		return EmptyBodyStyle.Render("(no text body)")
	}
	return BodyStyle.Render(body)
}

func (m Model) renderPreviewPane(paneWidth, paneHeight int) string {
	if paneWidth <= 0 || paneHeight <= 0 {
		return ""
	}
	sel := m.selected()
	if sel == nil {
		return renderBox("Home", lipgloss.NewStyle().Padding(1).Render("\n[gmailparse]\n\nNo message selected."), paneWidth, paneHeight)
	}

	var headers strings.Builder
	headers.WriteString(headerLine("From:", truncate(sel.From, paneWidth-10)))
	headers.WriteString(headerLine("Date:", sel.Date))
	headers.WriteString(headerLine("Subject:", truncate(sel.Subject, paneWidth-12)))
	if n := len(sel.Attachments); n > 0 {
		headers.WriteString(AttachmentStyle.Render(fmt.Sprintf("%d attachment(s)", n)) + "\n")
	}
	headers.WriteString("\n" + strings.Repeat(BoxHorizontal, paneWidth/2))
	renderedHeaders := headers.String()

	titleHeight := lipgloss.Height(TitleStyle.Render(" "))
	bodyHeight := paneHeight - titleHeight - lipgloss.Height(renderedHeaders) - ContentBoxStyle.GetVerticalPadding()
	content := lipgloss.JoinVertical(lipgloss.Left,
		renderedHeaders,
		renderBody(visibleLines(sel.Body2, m.previewScrollPos, bodyHeight)),
	)
	title := fmt.Sprintf("Preview: %s", truncate(sel.Subject, paneWidth-(TitleStyle.GetHorizontalPadding()+12)))
	return renderBox(title, content, paneWidth, paneHeight)
}

func (m Model) renderFocusedMailView(paneWidth, paneHeight int) string {
	if paneWidth <= 0 || paneHeight <= 0 {
		return ""
	}
	sel := m.selected()
	if sel == nil {
		return renderBox("Error", lipgloss.NewStyle().Padding(1).Render("No message selected."), paneWidth, paneHeight)
	}

	var b strings.Builder
	b.WriteString(headerLine("From:", sel.From))
	b.WriteString(headerLine("To:", sel.To))
	if sel.Cc != "" {
		b.WriteString(headerLine("Cc:", sel.Cc))
	}
	b.WriteString(headerLine("Date:", sel.Date))
	b.WriteString(headerLine("Subject:", sel.Subject))
	b.WriteString(headerLine("Labels:", strings.Join(sel.LabelIDs, ", ")))
	for _, a := range sel.Attachments {
		b.WriteString(AttachmentStyle.Render(fmt.Sprintf("  %s (%s, %d bytes)", a.Filename, a.MimeType, a.Size)) + "\n")
	}
	b.WriteString("\n" + strings.Repeat(BoxHorizontal, paneWidth/2) + "\n")
	body := strings.Join(bodyLines(sel.Body)[min(m.focusScrollPos, len(bodyLines(sel.Body))-1):], "\n")
	b.WriteString(renderBody(body))

	title := fmt.Sprintf("Full View: %s", truncate(sel.Subject, paneWidth-(TitleStyle.GetHorizontalPadding()+15)))
	return renderBox(title, b.String(), paneWidth, paneHeight)
}

func (m Model) renderStatusBar() string {
	style := StatusBarNormalStyle
	if m.statusIsError {
		style = StatusBarErrorStyle
	} else if m.statusIsTemp {
		style = StatusBarSuccessStyle
	}
	return style.Width(m.width).Render(truncate(m.statusBarText, m.width))
}

// Run starts the browser on the alternate screen and blocks until it exits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
