// Package report renders a completeness and sanity-check summary of the
// model. It knows nothing about physical state; callers describe the
// equations they implement and the checks they ran.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Equation describes one implemented governing equation.
type Equation struct {
	Name string
	Form string
	// Terms and Evaluated count the equation's additive terms and how many
	// of them are computed without caller-supplied hooks.
	Terms     int
	Evaluated int
	// Missing names the terms left to extension hooks.
	Missing []string
}

// Check is the outcome of one sanity check against an equation.
type Check struct {
	Name     string
	Equation string
	Passed   bool
	Detail   string
}

type Requirements struct {
	Equations []string
	Planets   []string
}

var DefaultRequirements = Requirements{
	Equations: []string{"navier_stokes", "dust_transport", "dust_feedback", "boundary_layer"},
	Planets:   []string{"earth", "mars", "venus"},
}

type Report struct {
	Equations []Equation
	Checks    []Check
	Planets   []string
	Required  Requirements
}

// Status is the verification state of one required equation.
type Status struct {
	Name        string
	Implemented bool
	// Verified requires at least one check and no failing ones.
	Verified bool
	Checks   int
	Failed   int
}

func (r Report) Statuses() []Status {
	present := make(map[string]bool, len(r.Equations))
	for _, eq := range r.Equations {
		present[eq.Name] = true
	}

	out := make([]Status, 0, len(r.Required.Equations))
	for _, name := range r.Required.Equations {
		st := Status{Name: name, Implemented: present[name]}
		for _, c := range r.Checks {
			if c.Equation != name {
				continue
			}
			st.Checks++
			if !c.Passed {
				st.Failed++
			}
		}
		st.Verified = st.Implemented && st.Checks > 0 && st.Failed == 0
		out = append(out, st)
	}
	return out
}

// Scores returns the fraction of required equations implemented, of
// required planets configured, and of checks passed.
func (r Report) Scores() map[string]float64 {
	implemented := 0
	for _, st := range r.Statuses() {
		if st.Implemented {
			implemented++
		}
	}

	have := make(map[string]bool, len(r.Planets))
	for _, p := range r.Planets {
		have[strings.ToLower(p)] = true
	}
	planets := 0
	for _, p := range r.Required.Planets {
		if have[strings.ToLower(p)] {
			planets++
		}
	}

	passed := 0
	for _, c := range r.Checks {
		if c.Passed {
			passed++
		}
	}

	return map[string]float64{
		"equations": fraction(implemented, len(r.Required.Equations)),
		"planets":   fraction(planets, len(r.Required.Planets)),
		"checks":    fraction(passed, len(r.Checks)),
	}
}

// Complete reports whether every requirement is met and verified.
func (r Report) Complete() bool {
	for _, st := range r.Statuses() {
		if !st.Verified {
			return false
		}
	}
	return r.Scores()["planets"] == 1
}

func fraction(n, d int) float64 {
	if d == 0 {
		return 1
	}
	return float64(n) / float64(d)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))
	sectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

func mark(ok bool) string {
	if ok {
		return passStyle.Render("✓")
	}
	return failStyle.Render("✗")
}

// Render formats the report for a terminal.
func Render(r Report) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Verification Report"))

	lines = append(lines, sectionStyle.Render("Equations"))
	byName := make(map[string]Equation, len(r.Equations))
	for _, eq := range r.Equations {
		byName[eq.Name] = eq
	}
	for _, st := range r.Statuses() {
		eq, ok := byName[st.Name]
		if !ok {
			lines = append(lines, fmt.Sprintf("%s %s  %s", mark(false), st.Name, mutedStyle.Render("not implemented")))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %-15s %s  %s", mark(st.Verified), st.Name, eq.Form,
			mutedStyle.Render(fmt.Sprintf("(%d/%d terms, %d/%d checks)", eq.Evaluated, eq.Terms, st.Checks-st.Failed, st.Checks))))
		if len(eq.Missing) > 0 {
			lines = append(lines, mutedStyle.Render("    via hooks: "+strings.Join(eq.Missing, ", ")))
		}
	}

	if len(r.Checks) > 0 {
		lines = append(lines, sectionStyle.Render("Checks"))
		for _, c := range r.Checks {
			line := fmt.Sprintf("%s %s", mark(c.Passed), c.Name)
			if c.Detail != "" {
				line += mutedStyle.Render(": " + c.Detail)
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines, sectionStyle.Render("Coverage"))
	scores := r.Scores()
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var cov []string
	for _, k := range keys {
		cov = append(cov, fmt.Sprintf("%-10s %5.1f%%", k, 100*scores[k]))
	}
	lines = append(lines, panelStyle.Render(strings.Join(cov, "\n")))

	status := failStyle.Render("INCOMPLETE")
	if r.Complete() {
		status = passStyle.Render("COMPLETE")
	}
	lines = append(lines, "", "status: "+status)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
