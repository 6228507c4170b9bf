// Package review is the interactive terminal view over a profile's
// snapshot: browse surfaced jobs, read verdicts, and mark jobs applied.
// Applied markings are written to the device-local status record on exit.
package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jobradar/jobradar/internal/snapshot"
	"github.com/jobradar/jobradar/internal/status"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	appliedBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	scoreHighStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	scoreLowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewModel struct {
	profileID string
	jobs      []snapshot.Job
	applied   status.Record
	minScore  int // jobs below this are dimmed, not hidden

	viewport cursorViewport
	width    int
	height   int
	ready    bool

	view           viewState
	detailViewport viewport.Model
}

// cursorViewport pairs a viewport with a row cursor.
type cursorViewport struct {
	vp     viewport.Model
	cursor int
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "a":
		m.toggleApplied()
		m.recalcContent()
		return m, nil
	case "o":
		if job, ok := m.selectedJob(); ok {
			openURL(job.URL)
		}
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	m.viewport.vp, cmd = m.viewport.vp.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "a":
		m.toggleApplied()
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	case "o":
		if job, ok := m.selectedJob(); ok {
			openURL(job.URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	m.viewport.cursor = clamp(m.viewport.cursor+delta, 0, max(len(m.jobs)-1, 0))
	m.recalcContent()
	m.ensureCursorVisible()
}

func (m *reviewModel) ensureCursorVisible() {
	vp := &m.viewport.vp
	cursorTop := m.viewport.cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m *reviewModel) toggleApplied() {
	job, ok := m.selectedJob()
	if !ok {
		return
	}
	if _, marked := m.applied[job.JobID]; marked {
		delete(m.applied, job.JobID)
	} else {
		m.applied[job.JobID] = time.Now().UTC()
	}
}

func (m reviewModel) selectedJob() (snapshot.Job, bool) {
	if len(m.jobs) == 0 {
		return snapshot.Job{}, false
	}
	return m.jobs[m.viewport.cursor], true
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if _, ok := m.selectedJob(); !ok {
		return m, nil
	}
	m.view = viewDetail
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	paneWidth := max(m.width-2, 20)
	// Header (1) + border top/bottom (2) + status bar (1).
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.viewport.vp = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.viewport.vp.Width = paneWidth
		m.viewport.vp.Height = paneHeight
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.viewport.vp.SetContent(m.renderJobs())
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Loading snapshot..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf(" %s — %d jobs", m.profileID, len(m.jobs)))
	pane := borderStyle.Width(m.viewport.vp.Width).Render(m.viewport.vp.View())

	applied := 0
	for _, j := range m.jobs {
		if _, ok := m.applied[j.JobID]; ok {
			applied++
		}
	}
	statusText := fmt.Sprintf(" %d applied    ↑/↓ cursor  a applied  o open URL  Enter detail  q quit", applied)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Job Details")
	content := borderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" a applied  o open URL  esc back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderJobs() string {
	if len(m.jobs) == 0 {
		return "  (no jobs in snapshot)"
	}

	var b strings.Builder
	for i, j := range m.jobs {
		isSelected := i == m.viewport.cursor

		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(renderScore(bestScore(j), m.minScore))
		b.WriteString(" ")
		b.WriteString(titleSt.Render(j.Title))
		if _, ok := m.applied[j.JobID]; ok {
			b.WriteString(" " + appliedBadgeStyle.Render("[applied]"))
		}
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("     %s · %s · %s · %dd old",
			j.Company, j.Location, j.Board, j.DaysOld)))
		b.WriteByte('\n')

		if i < len(m.jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderScore(score, minScore int) string {
	text := fmt.Sprintf("[%3d]", score)
	if score >= minScore {
		return scoreHighStyle.Render(text)
	}
	return scoreLowStyle.Render(text)
}

func (m reviewModel) renderDetail() string {
	j, ok := m.selectedJob()
	if !ok {
		return ""
	}
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", j.Location)
	if j.LocationInfo != nil {
		addField("Classified As", fmt.Sprintf("%s (%s, %.0f%%)",
			j.LocationInfo.LocationText, j.LocationInfo.USBased, j.LocationInfo.Confidence*100))
	}
	addField("Board", j.Board)
	addField("Job ID", j.JobID)
	addField("First Seen", j.FirstSeen.Format("2006-01-02"))
	addField("Last Seen", j.LastSeen.Format("2006-01-02"))
	addField("Appearances", fmt.Sprintf("%d", j.Appearances))
	if at, marked := m.applied[j.JobID]; marked {
		addField("Applied", at.Local().Format("2006-01-02 15:04"))
	}
	b.WriteByte('\n')
	addField("Job URL", j.URL)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	profiles := make([]string, 0, len(j.Analyses))
	for id := range j.Analyses {
		profiles = append(profiles, id)
	}
	sort.Strings(profiles)
	for _, id := range profiles {
		a := j.Analyses[id]
		b.WriteByte('\n')
		b.WriteString(divider(fmt.Sprintf("── Fit: %s ", id)) + "\n\n")
		addField("Score", fmt.Sprintf("%d / 100", a.FitScore))
		addField("Category", a.Category)
		if a.Justification != "" {
			b.WriteByte('\n')
			b.WriteString(bodyStyle.Render(wordWrap(a.Justification, wrapWidth)) + "\n")
		}
		if a.PositioningAdvice != "" {
			b.WriteByte('\n')
			b.WriteString(divider("── Positioning ") + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(a.PositioningAdvice, wrapWidth)) + "\n")
		}
	}

	if j.Snippet != "" {
		b.WriteByte('\n')
		b.WriteString(divider("── Search Snippet ") + "\n\n")
		b.WriteString(bodyStyle.Render(wordWrap(j.Snippet, wrapWidth)) + "\n")
	}

	return b.String()
}

func bestScore(j snapshot.Job) int {
	best := 0
	for _, a := range j.Analyses {
		if a.FitScore > best {
			best = a.FitScore
		}
	}
	return best
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the review TUI over an already-loaded snapshot and returns
// the applied record as the user left it. The caller persists it.
func Run(snap snapshot.Snapshot, applied status.Record, minScore int) (status.Record, error) {
	if applied == nil {
		applied = status.Record{}
	}
	m := reviewModel{
		profileID: snap.ProfileID,
		jobs:      snap.Jobs,
		applied:   applied,
		minScore:  minScore,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(reviewModel)
	return final.applied, nil
}
