package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
)

const sidebarWidth = 32

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(10)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// model is the root bubbletea model of the rule editor.
type model struct {
	configPath string
	result     *config.LoadResult
	loadErr    error
	ipcClient  *ipc.Client

	list   list.Model
	editor *ruleEditor

	// Preview context: the daemon's live snapshot, or a sample display.
	context       figures.Context
	contextSource string

	originalConfig *config.Config
	saveOverlay    SaveOverlay

	daemonConnected bool
	status          string

	width  int
	height int
}

func newModel(configPath string, client *ipc.Client) model {
	m := model{
		configPath: configPath,
		ipcClient:  client,
	}

	m.loadConfig()
	if m.result != nil {
		m.originalConfig = cloneConfig(m.result.Config)
	}
	m.refreshContext()

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(buildRuleItems(m.config()), delegate, 0, 0)
	l.Title = "Windows"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	m.list = l

	return m
}

func (m *model) loadConfig() {
	var res *config.LoadResult
	var err error

	if m.configPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(m.configPath)
	}
	if err != nil {
		m.loadErr = err
		return
	}
	m.result = res
}

func (m model) config() *config.Config {
	if m.result == nil {
		return nil
	}
	return m.result.Config
}

func (m model) savePath() string {
	if m.configPath != "" {
		return m.configPath
	}
	if m.result != nil {
		return m.result.Path
	}
	return ""
}

// refreshContext asks the daemon for the current figure context and falls
// back to the sample display when it is not running.
func (m *model) refreshContext() {
	if m.ipcClient != nil {
		if data, err := m.ipcClient.GetContext(); err == nil {
			m.daemonConnected = true
			m.context = figures.Context(data.Context)
			m.contextSource = data.Display.Name
			if m.contextSource == "" {
				m.contextSource = "current display"
			}
			return
		}
	}
	m.daemonConnected = false
	m.context = opener.SampleContext()
	m.contextSource = "sample 1920×1080"
}

func (m *model) syncList(selected int) {
	m.list.SetItems(buildRuleItems(m.config()))
	if selected >= 0 {
		m.list.Select(selected)
	}
}

func (m model) contentHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = ws.Width
		m.height = ws.Height
		m.list.SetSize(sidebarWidth, m.contentHeight())
	}

	if m.saveOverlay.Active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			if km.String() == "ctrl+c" {
				return m, tea.Quit
			}
			prevPhase := m.saveOverlay.phase
			m.saveOverlay = m.saveOverlay.Update(km, m.config(), m.savePath(), m.ipcClient, m.daemonConnected)
			if prevPhase == savePreview && m.saveOverlay.SaveSucceeded() {
				m.originalConfig = cloneConfig(m.config())
			}
		}
		return m, nil
	}

	// ctrl+s is available everywhere, including inside the form.
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+s" {
		if cfg := m.config(); cfg != nil {
			if err := cfg.Validate(); err != nil {
				m.status = "cannot save: " + err.Error()
				return m, nil
			}
			m.saveOverlay.Show(m.originalConfig, cfg)
		}
		return m, nil
	}

	if m.editor != nil {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.editor = nil
				return m, nil
			}
		}
		done, cmd := m.editor.Update(msg, m.config(), m.width-sidebarWidth)
		if done {
			idx := m.editor.index
			m.editor = nil
			m.syncList(idx)
			m.status = "rule updated (ctrl+s to save)"
		}
		return m, cmd
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		cfg := m.config()
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.refreshContext()
			return m, nil
		}
		if cfg == nil {
			return m, nil
		}

		idx := m.list.Index()
		switch km.String() {
		case "n":
			idx = addRule(cfg)
			m.syncList(idx)
			m.editor = newRuleEditor(cfg, idx, m.width-sidebarWidth)
			return m, m.editor.form.Init()
		case "enter", "e":
			if idx >= 0 && idx < len(cfg.Windows) {
				m.editor = newRuleEditor(cfg, idx, m.width-sidebarWidth)
				return m, m.editor.form.Init()
			}
			return m, nil
		case "d":
			if next, ok := duplicateRule(cfg, idx); ok {
				m.syncList(next)
				m.status = "rule duplicated"
			}
			return m, nil
		case "x":
			if next, ok := deleteRule(cfg, idx); ok {
				m.syncList(next)
				m.status = "rule deleted"
			}
			return m, nil
		case "*":
			if idx >= 0 && idx < len(cfg.Windows) {
				setDefault(cfg, idx)
				m.syncList(idx)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) selectedRule() (config.WindowRule, bool) {
	item, ok := m.list.SelectedItem().(ruleItem)
	if !ok {
		return config.WindowRule{}, false
	}
	return item.rule, true
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.daemonConnected, m.contextSource, m.status, m.width)
	helpBar := renderHelpBar(m.editor != nil, m.width)
	height := m.contentHeight()

	var content string
	switch {
	case m.loadErr != nil:
		content = lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			errorStyle.Render("Config error: "+m.loadErr.Error()))
	case m.saveOverlay.Active():
		content = m.saveOverlay.View(m.width, height)
	case m.editor != nil:
		content = lipgloss.NewStyle().Padding(0, 2).Render(m.editor.View())
	default:
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			m.list.View(),
			m.viewDetail(m.width-sidebarWidth, height),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, content, helpBar)
}

func (m model) viewDetail(width, height int) string {
	rule, ok := m.selectedRule()
	if !ok {
		return lipgloss.NewStyle().
			Width(width).
			Height(height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No windows configured. Press n to add one.")
	}

	p := previewRule(rule.Expressions, m.context)

	var b strings.Builder
	b.WriteString(titleStyle.Render(rule.Label()))
	b.WriteString("\n\n")
	for _, row := range [][2]string{
		{"URL", rule.URL},
		{"Type", rule.Type},
		{"Focused", fmt.Sprintf("%t", rule.Focused)},
	} {
		b.WriteString(labelStyle.Render(row[0]) + row[1] + "\n")
	}
	b.WriteString("\n")
	for _, f := range figures.Names {
		b.WriteString(labelStyle.Render(string(f)) + dimStyle.Render(rule.Expressions.Get(f)) + "\n")
	}
	b.WriteString("\n")
	for _, line := range figureLines(p) {
		b.WriteString(line + "\n")
	}

	summary := summarizePreview(p)
	if p.err == nil && len(p.failed) == 0 {
		summary = okStyle.Render(summary)
	} else {
		summary = errorStyle.Render(summary)
	}
	b.WriteString("\n" + summary + "\n\n")

	canvasW := width - 4
	canvasH := canvasW * 9 / 32
	if maxH := height - strings.Count(b.String(), "\n") - 1; canvasH > maxH {
		canvasH = maxH
	}
	b.WriteString(strings.Join(renderPlacement(p, canvasW, canvasH), "\n"))

	return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 2).Render(b.String())
}

func renderStatusBar(connected bool, contextSource, status string, width int) string {
	var dot string
	if connected {
		dot = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●") + " daemon connected"
	} else {
		dot = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●") + " daemon not running"
	}
	parts := []string{dot, "preview: " + contextSource}
	if status != "" {
		parts = append(parts, status)
	}

	return lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render(strings.Join(parts, "  "))
}

func renderHelpBar(editing bool, width int) string {
	help := "enter: edit  n: new  d: duplicate  x: delete  *: default  r: refresh  ctrl-s: save  q: quit"
	if editing {
		help = "tab: next field  enter: submit  esc: cancel  ctrl-s: save"
	}
	return lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1).
		Render(help)
}
