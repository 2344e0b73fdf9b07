package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/cuuri/internal/config"
	"github.com/sandevgo/cuuri/internal/core"
)

const fetchTimeout = 15 * time.Second

var defaultModels = map[string]string{
	config.ProviderOpenAI:     "gpt-4o-mini",
	config.ProviderOpenRouter: "openai/gpt-4o-mini",
	config.ProviderOllama:     "llama3.2",
	config.ProviderCustom:     "",
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 50
	ti.Placeholder = placeholder
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func isEnter(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	return ok && k.Type == tea.KeyEnter
}

// choiceView renders a vertical menu with a cursor.
func choiceView(title string, choices []string, cursor int) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for i, choice := range choices {
		if cursor == i {
			b.WriteString(selStyle.Render("❯ "+choice) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+choice) + "\n")
		}
	}
	return b.String()
}

func moveCursor(msg tea.Msg, cursor, n int) int {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return cursor
	}
	switch k.String() {
	case "up", "k":
		if cursor > 0 {
			cursor--
		}
	case "down", "j":
		if cursor < n-1 {
			cursor++
		}
	}
	return cursor
}

// ProviderStep selects LLM_PROVIDER.
type ProviderStep struct {
	choices []string
	cursor  int
}

func NewProviderStep() Step {
	return &ProviderStep{
		choices: []string{config.ProviderOpenAI, config.ProviderOpenRouter, config.ProviderOllama, config.ProviderCustom},
	}
}

func (s *ProviderStep) Init() tea.Cmd { return nil }

func (s *ProviderStep) Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd) {
	if isEnter(msg) {
		state.Env["LLM_PROVIDER"] = s.choices[s.cursor]
		return nil, nil
	}
	s.cursor = moveCursor(msg, s.cursor, len(s.choices))
	return s, nil
}

func (s *ProviderStep) View(state *State) string {
	return choiceView("Select your AI provider:", s.choices, s.cursor)
}

// BaseURLStep asks for the server address of self-hosted providers.
type BaseURLStep struct {
	input  textinput.Model
	envKey string
}

func NewBaseURLStep() Step {
	return &BaseURLStep{}
}

func (s *BaseURLStep) Init() tea.Cmd { return nil }

func (s *BaseURLStep) Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd) {
	if s.envKey == "" {
		switch state.Env["LLM_PROVIDER"] {
		case config.ProviderOllama:
			s.envKey = "OLLAMA_BASE_URL"
			s.input = newInput("http://localhost:11434", false)
		case config.ProviderCustom:
			s.envKey = "CUSTOM_OPENAI_BASE_URL"
			s.input = newInput("http://localhost:8080", false)
		default:
			return nil, nil
		}
		return s, textinput.Blink
	}

	if isEnter(msg) {
		value := strings.TrimSpace(s.input.Value())
		if value == "" {
			value = s.input.Placeholder
		}
		state.Env[s.envKey] = value
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *BaseURLStep) View(state *State) string {
	return "Enter the server address (empty keeps the placeholder):\n\n" + s.input.View() + "\n"
}

// APIKeyStep collects the key of the chosen provider.
type APIKeyStep struct {
	input    textinput.Model
	envKey   string
	title    string
	optional bool
	err      string
}

func NewAPIKeyStep() Step {
	return &APIKeyStep{}
}

func (s *APIKeyStep) Init() tea.Cmd { return nil }

func (s *APIKeyStep) setup(provider string) bool {
	cfg := config.ProviderConfig{Provider: provider}
	s.envKey = cfg.APIKeyEnv()

	switch provider {
	case config.ProviderOpenAI:
		s.title = "OpenAI API key"
		s.input = newInput("sk-...", true)
	case config.ProviderOpenRouter:
		s.title = "OpenRouter API key"
		s.input = newInput("sk-or-v1-...", true)
	case config.ProviderOllama, config.ProviderCustom:
		s.title = "API key"
		s.optional = true
		s.input = newInput("optional, press enter to skip", true)
	default:
		return false
	}
	return true
}

func (s *APIKeyStep) Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd) {
	if s.envKey == "" {
		if !s.setup(state.Env["LLM_PROVIDER"]) {
			return nil, nil
		}
		return s, textinput.Blink
	}

	if isEnter(msg) {
		value := strings.TrimSpace(s.input.Value())
		if value == "" && !s.optional {
			s.err = "a key is required for this provider"
			return s, nil
		}
		state.Env[s.envKey] = value
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *APIKeyStep) View(state *State) string {
	v := fmt.Sprintf("Enter your %s:\n\n%s\n", s.title, s.input.View())
	if s.err != "" {
		v += "\n" + errorStyle.Render(s.err) + "\n"
	}
	return v
}

type item struct {
	id   string
	desc string
}

func (i item) Title() string       { return i.id }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.id }

type modelsMsg []core.Model
type fetchErrMsg struct{ err error }

// ModelStep picks LLM_MODEL from the provider's model list, falling back to
// free text when the list cannot be fetched.
type ModelStep struct {
	fetch    ModelFetcher
	list     list.Model
	input    textinput.Model
	fetching bool
	loaded   bool
	manual   bool
	err      error
}

func NewModelStep(fetch ModelFetcher) Step {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a model"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return &ModelStep{fetch: fetch, list: l}
}

func (s *ModelStep) Init() tea.Cmd { return nil }

func (s *ModelStep) toManual(state *State, err error) (Step, tea.Cmd) {
	s.manual = true
	s.err = err
	s.input = newInput(defaultModels[state.Env["LLM_PROVIDER"]], false)
	return s, textinput.Blink
}

func (s *ModelStep) Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd) {
	if !s.fetching {
		s.fetching = true
		if s.fetch == nil {
			return s.toManual(state, nil)
		}
		env := make(map[string]string, len(state.Env))
		for k, v := range state.Env {
			env[k] = v
		}
		fetch := s.fetch
		return s, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			models, err := fetch(ctx, env)
			if err != nil {
				return fetchErrMsg{err}
			}
			return modelsMsg(models)
		}
	}

	switch msg := msg.(type) {
	case fetchErrMsg:
		return s.toManual(state, msg.err)
	case modelsMsg:
		if len(msg) == 0 {
			return s.toManual(state, nil)
		}
		items := make([]list.Item, 0, len(msg))
		for _, m := range msg {
			desc := m.Name
			if m.ContextLength > 0 {
				desc = fmt.Sprintf("%s, %d tokens", m.Name, m.ContextLength)
			}
			items = append(items, item{id: m.ID, desc: desc})
		}
		s.loaded = true
		s.list.SetSize(width, max(height-6, 10))
		return s, s.list.SetItems(items)
	case tea.WindowSizeMsg:
		s.list.SetSize(msg.Width, max(msg.Height-6, 10))
	}

	if s.manual {
		if isEnter(msg) {
			value := strings.TrimSpace(s.input.Value())
			if value == "" {
				value = s.input.Placeholder
			}
			if value == "" {
				return s, nil
			}
			state.Env["LLM_MODEL"] = value
			return nil, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}

	if s.loaded && isEnter(msg) && s.list.FilterState() != list.Filtering {
		if it, ok := s.list.SelectedItem().(item); ok {
			state.Env["LLM_MODEL"] = it.id
			return nil, nil
		}
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(state *State) string {
	switch {
	case s.manual:
		v := "Enter the model id (empty keeps the placeholder):\n\n" + s.input.View() + "\n"
		if s.err != nil {
			v += "\n" + errorStyle.Render("could not list models: "+s.err.Error()) + "\n"
		}
		return v
	case !s.loaded:
		return "Fetching available models...\n"
	default:
		return s.list.View()
	}
}

// TelegramStep optionally enables the Telegram transport.
type TelegramStep struct {
	cursor  int
	enabled bool
	field   int
	inputs  [2]textinput.Model
}

var telegramKeys = [2]string{"TELEGRAM_TOKEN", "TELEGRAM_OWNER_ID"}

func NewTelegramStep() Step {
	return &TelegramStep{}
}

func (s *TelegramStep) Init() tea.Cmd { return nil }

func (s *TelegramStep) Update(msg tea.Msg, state *State, width, height int) (Step, tea.Cmd) {
	if !s.enabled {
		if isEnter(msg) {
			if s.cursor == 1 {
				return nil, nil
			}
			s.enabled = true
			s.inputs[0] = newInput("123456789:ABCDEF...", true)
			s.inputs[1] = newInput("your numeric user id", false)
			s.inputs[1].Blur()
			return s, textinput.Blink
		}
		s.cursor = moveCursor(msg, s.cursor, 2)
		return s, nil
	}

	if isEnter(msg) {
		value := strings.TrimSpace(s.inputs[s.field].Value())
		if value == "" {
			return s, nil
		}
		state.Env[telegramKeys[s.field]] = value
		if s.field == len(s.inputs)-1 {
			return nil, nil
		}
		s.inputs[s.field].Blur()
		s.field++
		return s, s.inputs[s.field].Focus()
	}

	var cmd tea.Cmd
	s.inputs[s.field], cmd = s.inputs[s.field].Update(msg)
	return s, cmd
}

func (s *TelegramStep) View(state *State) string {
	if !s.enabled {
		return choiceView("Answer in Telegram too?", []string{"Yes", "No"}, s.cursor)
	}
	return "Telegram bot token:\n" + s.inputs[0].View() + "\n\n" +
		"Telegram owner id:\n" + s.inputs[1].View() + "\n"
}
