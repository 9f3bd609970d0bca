package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	historyLen = 120
	shades     = " .:-=+*#%@"
	maxSteps   = 64
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is a bubbletea view of a running session: summary numbers, the
// total-mass history and a concentration slice through the domain.
type Model struct {
	session  *sim.Session
	title    string
	vertical dynamo.Axis

	paused  bool
	speed   int
	history []float64
	err     error

	width int
}

func New(session *sim.Session, title string, vertical dynamo.Axis) Model {
	m := Model{
		session:  session,
		title:    title,
		vertical: vertical,
		speed:    1,
		width:    80,
	}
	m.history = append(m.history, session.State().TotalConcentration())
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "r":
			m.session.Reset()
			m.err = nil
			m.history = []float64{m.session.State().TotalConcentration()}
		case "+", "=":
			if m.speed < maxSteps {
				m.speed *= 2
			}
		case "-", "_":
			if m.speed > 1 {
				m.speed /= 2
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.speed && !m.session.Done(); i++ {
		if err := m.session.Step(); err != nil {
			m.err = err
			return
		}
		m.history = append(m.history, m.session.State().TotalConcentration())
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	}
}

func (m Model) View() string {
	var b strings.Builder
	s := m.session.State()

	b.WriteString(cyan.Bold(true).Render(m.title))
	b.WriteString("  ")
	switch {
	case m.err != nil:
		b.WriteString(red.Render("failed"))
	case m.session.Done():
		b.WriteString(green.Render("done"))
	case m.paused:
		b.WriteString(yellow.Render("paused"))
	default:
		b.WriteString(green.Render("running"))
	}
	b.WriteString("\n\n")

	drift := s.TotalConcentration() - m.session.InitialMass()
	if m.session.InitialMass() != 0 {
		drift /= m.session.InitialMass()
	}
	stats := []struct {
		label string
		value string
	}{
		{"step", fmt.Sprintf("%d", m.session.StepCount())},
		{"time", fmt.Sprintf("%.3f s", m.session.Time())},
		{"dt", fmt.Sprintf("%.4g s", m.session.Dt())},
		{"mass", fmt.Sprintf("%.6g", s.TotalConcentration())},
		{"drift", fmt.Sprintf("%+.3e", drift)},
		{"max |v|", fmt.Sprintf("%.3f m/s", s.Velocity.MaxNorm())},
		{"speed", fmt.Sprintf("x%d", m.speed)},
	}
	for _, st := range stats {
		b.WriteString(dim.Render(fmt.Sprintf("%-8s", st.label)))
		b.WriteString(white.Render(st.value))
		b.WriteString("\n")
	}

	if len(m.history) > 1 {
		b.WriteString("\n")
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(min(60, max(20, m.width-20))),
			asciigraph.Caption("total mass")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(slice(s, m.vertical))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(red.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("space pause  r reset  +/- speed  q quit"))
	return b.String()
}

// slice draws concentration on the plane through the first horizontal axis
// and the vertical axis, at index 0 of the remaining axis, top row highest.
func slice(s dynamo.State, vertical dynamo.Axis) string {
	g := s.Grid
	horizontal := dynamo.AxisX
	if vertical == dynamo.AxisX {
		horizontal = dynamo.AxisY
	}
	nh, nv := g.Extent(horizontal), g.Extent(vertical)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range s.Concentration {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}

	var b strings.Builder
	for r := nv - 1; r >= 0; r-- {
		for c := 0; c < nh; c++ {
			var coords [3]int
			coords[horizontal] = c
			coords[vertical] = r
			v := s.Concentration[g.Index(coords[0], coords[1], coords[2])]
			level := 0
			if hi > lo {
				level = int((v - lo) / (hi - lo) * float64(len(shades)-1))
			}
			b.WriteByte(shades[level])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Run shows the session full screen until the user quits.
func Run(session *sim.Session, title string, vertical dynamo.Axis) error {
	p := tea.NewProgram(New(session, title, vertical), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
