package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/session"
	"github.com/dgnsrekt/repeat/internal/workout"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxNameWidth = 40

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarPhaseStyle = lipgloss.NewStyle().
				Foreground(statusBarBg).
				Background(darkGreen).
				Padding(0, 1)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Padding(0, 1)

	statusBarWarnStyle = statusBarNoteStyle.
				Foreground(red)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mintGreen)

	subtleStyle = lipgloss.NewStyle().Foreground(gray)

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(darkGreen)

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(red)

	spinnerStyle = lipgloss.NewStyle().Foreground(mintGreen)

	bodyStyle = lipgloss.NewStyle().Padding(1, 2)
)

var titleCase = cases.Title(language.English)

func (m model) View() string {
	var body string
	switch m.snap.Phase {
	case session.Idle:
		body = m.idleView()
	case session.Loading:
		body = m.loadingView()
	case session.Ready:
		body = m.readyView()
	case session.ExerciseActive, session.RestActive, session.SetRestActive, session.Paused:
		body = m.activeView()
	case session.Finished:
		body = m.finishedView()
	case session.Error:
		body = m.errorView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		bodyStyle.Render(body),
		m.help.View(m.keys),
		m.statusBarView(),
	)
}

func (m model) idleView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Repeat"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s · %s\n", m.snap.Day, m.snap.Focus)
	if m.snap.RestDay() {
		b.WriteString("\nToday is your rest day. Enjoy the recovery!\n")
	}
	return b.String()
}

func (m model) loadingView() string {
	return m.spinner.View() + " " + m.snap.LoadingStatus()
}

func (m model) readyView() string {
	var b strings.Builder
	b.WriteString(m.renderPlan())
	if res := m.snap.Pregenerated; res.Failed > 0 {
		fmt.Fprintf(&b, "\n%s\n", subtleStyle.Render(
			fmt.Sprintf("%d of %d lines will be generated on demand", res.Failed, res.Requested)))
	}
	if n := m.snap.StoredBytes; n > 0 {
		fmt.Fprintf(&b, "\n%s\n", subtleStyle.Render(
			humanize.Bytes(uint64(n))+" of narration stored on disk")) //nolint:gosec
	}
	return b.String()
}

// renderPlan renders the plan as markdown, reusing the last render while the
// plan and width stay the same.
func (m model) renderPlan() string {
	if m.snap.Plan == nil {
		return ""
	}
	width := m.contentWidth()
	c := m.planCache
	if c.plan == m.snap.Plan && c.width == width && c.view != "" {
		return c.view
	}

	md := workout.Markdown(m.snap.Plan, m.snap.TotalSets)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.cfg.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Error("Unable to create renderer", "err", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		log.Error("Unable to render plan", "err", err)
		return md
	}

	c.view = out
	c.plan = m.snap.Plan
	c.width = width
	return out
}

func (m model) activeView() string {
	snap := m.snap
	ex, _ := snap.Exercise()

	name := "Rest & Prepare"
	if snap.Effective() == session.ExerciseActive {
		name = runewidth.Truncate(ex.Name, maxNameWidth, "…")
	}

	label := snap.TimerLabel()
	if snap.Phase == session.Paused {
		label += " · PAUSED"
	}

	var b strings.Builder
	b.WriteString(subtleStyle.Render(snap.Header()))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(timerStyle.Render(fmt.Sprintf("%s\n%s", formatClock(snap.Remaining), label)))
	b.WriteString("\n")

	bar := m.progress
	bar.Width = min(m.contentWidth(), 60)
	b.WriteString(bar.ViewAs(snap.Progress()))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Up Next: %s\n", snap.UpNext())
	if snap.Effective() == session.ExerciseActive && ex.Instructions != "" {
		b.WriteString("\n")
		b.WriteString(wordwrap.String(ex.Instructions, m.contentWidth()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) finishedView() string {
	return titleStyle.Render("Workout Complete!") +
		"\n\nYou're one step closer to your goal. See you tomorrow.\n"
}

func (m model) errorView() string {
	return errorStyle.Render("Something Went Wrong") + "\n\n" +
		wordwrap.String(m.snap.Err, m.contentWidth()) + "\n"
}

func (m model) statusBarView() string {
	phase := statusBarPhaseStyle.Render(titleCase.String(strings.ReplaceAll(m.snap.Phase.String(), "_", " ")))

	var note string
	switch {
	case m.snap.Notice != "":
		note = statusBarWarnStyle.Render(m.snap.Notice)
	default:
		note = statusBarNoteStyle.Render(fmt.Sprintf("%s · %d lines cached (%s)",
			m.cfg.EngineName,
			m.snap.CachedLines,
			humanize.Bytes(uint64(max(m.snap.CachedBytes, 0))), //nolint:gosec
		))
	}

	fill := max(0, m.width-lipgloss.Width(phase)-lipgloss.Width(note))
	return phase + note + statusBarNoteStyle.Padding(0).Render(strings.Repeat(" ", fill))
}

func (m model) contentWidth() int {
	w := m.width - bodyStyle.GetHorizontalPadding()
	if maxW := int(m.cfg.GlamourMaxWidth); maxW > 0 && w > maxW { //nolint:gosec
		w = maxW
	}
	return max(w, 20)
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
