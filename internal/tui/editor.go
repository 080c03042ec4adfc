package tui

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
)

// ruleEditor edits one window rule in a huh form.
type ruleEditor struct {
	index int
	form  *huh.Form
	err   error

	// Form-bound values
	fName    string
	fURL     string
	fType    string
	fCommand string
	fFocused bool
	fDefault bool
	fLeft    string
	fTop     string
	fWidth   string
	fHeight  string
}

func newRuleEditor(cfg *config.Config, index int, width int) *ruleEditor {
	rule := cfg.Windows[index]
	e := &ruleEditor{
		index:    index,
		fName:    rule.Name,
		fURL:     rule.URL,
		fType:    rule.Type,
		fCommand: rule.Command,
		fFocused: rule.Focused,
		fDefault: rule.Default,
		fLeft:    rule.Left,
		fTop:     rule.Top,
		fWidth:   rule.Width,
		fHeight:  rule.Height,
	}
	if e.fType == "" {
		e.fType = config.WindowTypeNormal
	}
	e.buildForm(typeOptions(cfg), width)
	return e
}

func typeOptions(cfg *config.Config) []huh.Option[string] {
	kinds := make([]string, 0, len(cfg.OpenCommands))
	for kind := range cfg.OpenCommands {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	opts := make([]huh.Option[string], 0, len(kinds))
	for _, kind := range kinds {
		opts = append(opts, huh.NewOption(kind, kind))
	}
	return opts
}

// validateFigure reports syntax errors and unknown variables in one figure
// expression.
func validateFigure(s string) error {
	return figures.Check(s, config.ExpressionNames())
}

func (e *ruleEditor) buildForm(types []huh.Option[string], width int) {
	w := width - 4
	if w < 40 {
		w = 40
	}

	figure := func(key, title, desc string, value *string) *huh.Input {
		return huh.NewInput().
			Key(key).
			Title(title).
			Description(desc).
			Validate(validateFigure).
			Value(value)
	}

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&e.fName),
			huh.NewInput().
				Key("url").
				Title("URL").
				Description("Empty opens the blank page").
				Value(&e.fURL),
			huh.NewSelect[string]().
				Key("type").
				Title("Type").
				Options(types...).
				Value(&e.fType),
			huh.NewInput().
				Key("command").
				Title("Command").
				Description("Overrides the open command of the type; {{url}} is replaced").
				Value(&e.fCommand),
			huh.NewConfirm().
				Key("focused").
				Title("Focus after opening").
				Value(&e.fFocused),
			huh.NewConfirm().
				Key("default").
				Title("Default window").
				Value(&e.fDefault),
		),
		huh.NewGroup(
			figure("left", "Left", "Pixels from the left edge of the display", &e.fLeft),
			figure("top", "Top", "Pixels from the top edge of the display", &e.fTop),
			figure("width", "Width", "Empty keeps the size the window opened with", &e.fWidth),
			figure("height", "Height", "", &e.fHeight),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)
}

func (e *ruleEditor) expressions() figures.Expressions {
	return figures.Expressions{
		Left:   strings.TrimSpace(e.fLeft),
		Top:    strings.TrimSpace(e.fTop),
		Width:  strings.TrimSpace(e.fWidth),
		Height: strings.TrimSpace(e.fHeight),
	}
}

// Update forwards msg to the form. done is true once the form was submitted
// and the rule written back to cfg. A circular reference between figures
// keeps the editor open with a fresh form and the error shown.
func (e *ruleEditor) Update(msg tea.Msg, cfg *config.Config, width int) (done bool, cmd tea.Cmd) {
	form, cmd := e.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		e.form = f
	}
	if e.form.State != huh.StateCompleted {
		return false, cmd
	}

	if err := config.ValidateExpressions(e.expressions(), config.ExpressionNames()); err != nil {
		e.err = err
		e.buildForm(typeOptions(cfg), width)
		return false, e.form.Init()
	}
	e.err = nil
	e.apply(cfg)
	return true, nil
}

func (e *ruleEditor) apply(cfg *config.Config) {
	if e.index < 0 || e.index >= len(cfg.Windows) {
		return
	}
	rule := &cfg.Windows[e.index]
	rule.Name = strings.TrimSpace(e.fName)
	rule.URL = strings.TrimSpace(e.fURL)
	rule.Type = e.fType
	rule.Command = strings.TrimSpace(e.fCommand)
	rule.Focused = e.fFocused
	rule.Expressions = e.expressions()

	if e.fDefault {
		setDefault(cfg, e.index)
	} else {
		rule.Default = false
	}
}

func (e *ruleEditor) View() string {
	if e.err == nil {
		return e.form.View()
	}
	return errorStyle.Render("Error: "+e.err.Error()) + "\n\n" + e.form.View()
}
