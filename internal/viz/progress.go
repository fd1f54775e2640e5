package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/brownwork/internal/dynamo"
)

// ProgressMsg reports rows emitted so far for one direction.
type ProgressMsg struct {
	Direction dynamo.Direction
	Done      int
	Total     int
}

// DoneMsg ends the program once generation has returned.
type DoneMsg struct {
	Err error
}

type Progress struct {
	title    string
	done     [2]int
	total    int
	start    time.Time
	finished bool
	aborted  bool
	err      error
	width    int
}

func NewProgress(title string, total int) Progress {
	return Progress{title: title, total: total, start: time.Now(), width: 80}
}

func (m Progress) Init() tea.Cmd { return nil }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ProgressMsg:
		if int(msg.Direction) < len(m.done) {
			m.done[msg.Direction] = msg.Done
		}
		if msg.Total > 0 {
			m.total = msg.Total
		}
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Progress) View() string {
	var b strings.Builder
	b.WriteString(Title.Render(m.title) + "\n\n")

	barWidth := max(10, min(50, m.width-30))
	for _, d := range dynamo.Directions {
		frac := 0.0
		if m.total > 0 {
			frac = float64(m.done[d]) / float64(m.total)
		}
		label := MetricLabel.Render(fmt.Sprintf("%-8s", d))
		count := MetricValue.Render(fmt.Sprintf("%d/%d", m.done[d], m.total))
		b.WriteString(fmt.Sprintf("%s %s %s\n", label, ProgressBar(frac, barWidth), count))
	}

	b.WriteString("\n")
	elapsed := time.Since(m.start).Round(100 * time.Millisecond)
	switch {
	case m.err != nil:
		b.WriteString(StatusFailed.Render("failed: "+m.err.Error()) + "\n")
	case m.aborted:
		b.WriteString(StatusFailed.Render("aborted") + "\n")
	case m.finished:
		b.WriteString(StatusRunning.Render(fmt.Sprintf("done in %v", elapsed)) + "\n")
	default:
		b.WriteString(Subtle.Render(fmt.Sprintf("elapsed %v", elapsed)) + "  " + KeyHint.Render("q to abort") + "\n")
	}
	return b.String()
}

// Aborted reports whether the user quit before generation finished.
func (m Progress) Aborted() bool { return m.aborted && !m.finished }

func (m Progress) Err() error { return m.err }

// Completed returns the rows emitted so far per direction.
func (m Progress) Completed(d dynamo.Direction) int { return m.done[d] }
