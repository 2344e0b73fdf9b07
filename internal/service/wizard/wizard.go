package wizard

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/cuuri/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var ErrCancelled = errors.New("setup cancelled")

// ModelFetcher lists the models reachable with the settings collected so
// far.
type ModelFetcher func(ctx context.Context, env map[string]string) ([]core.Model, error)

// Step is a single screen of the wizard. Update returns nil when the step
// is complete.
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd)
	View(state *State) string
}

// State collects the .env values chosen so far.
type State struct {
	Env map[string]string
}

func NewState() *State {
	return &State{Env: make(map[string]string)}
}

func getSteps(fetch ModelFetcher) []Step {
	return []Step{
		NewProviderStep(),
		NewBaseURLStep(),
		NewAPIKeyStep(),
		NewModelStep(fetch),
		NewTelegramStep(),
	}
}

type nextMsg struct{}

type model struct {
	steps       []Step
	currentStep int
	state       *State
	quitting    bool
	width       int
	height      int
}

func newModel(fetch ModelFetcher) model {
	return model{
		steps: getSteps(fetch),
		state: NewState(),
	}
}

func (m model) Init() tea.Cmd {
	return m.steps[0].Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			finalize(m.state)
			return m, tea.Quit
		}
		// let the next step decide whether it applies
		return m, tea.Batch(m.steps[m.currentStep].Init(), func() tea.Msg { return nextMsg{} })
	}
	m.steps[m.currentStep] = nextStep
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("Setting up "+core.CuuriName) + "\n\n" +
		m.steps[m.currentStep].View(m.state) +
		hintStyle.Render("\n(press ctrl+c to quit)") + "\n"
}

// finalize derives values that depend on several answers.
func finalize(state *State) {
	if state.Env["TELEGRAM_TOKEN"] != "" {
		state.Env["ENABLE_TELEGRAM"] = "true"
	} else {
		state.Env["ENABLE_TELEGRAM"] = "false"
	}
	for k, v := range state.Env {
		if v == "" {
			delete(state.Env, k)
		}
	}
}

// Run drives the wizard on the terminal and returns the collected values.
func Run(fetch ModelFetcher) (map[string]string, error) {
	p := tea.NewProgram(newModel(fetch), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run wizard: %w", err)
	}

	final := m.(model)
	if final.quitting || final.currentStep < len(final.steps) {
		return nil, ErrCancelled
	}
	return final.state.Env, nil
}
