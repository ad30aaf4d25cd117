package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// WizardResult carries the fields collected by the tenant setup wizard.
type WizardResult struct {
	Label       string
	DisplayName string
	Path        string
	Collection  string
	Accepted    bool
}

// field indexes into wizardModel.inputs.
const (
	fieldLabel = iota
	fieldDisplayName
	fieldPath
	fieldCollection
	fieldCount
)

type wizardModel struct {
	inputs  []textinput.Model
	focus   int
	styles  Styles
	done    bool
	aborted bool
}

func newWizardModel(defaults WizardResult, styles Styles) wizardModel {
	labels := []struct {
		prompt      string
		placeholder string
		value       string
	}{
		{"Label", "docs", defaults.Label},
		{"Display name", "Documentation", defaults.DisplayName},
		{"Project path", "/home/user/project", defaults.Path},
		{"Collection", "defaults to label", defaults.Collection},
	}

	inputs := make([]textinput.Model, fieldCount)
	for i, l := range labels {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = l.placeholder
		in.SetValue(l.value)
		in.CharLimit = 256
		inputs[i] = in
	}
	inputs[fieldLabel].Focus()

	return wizardModel{inputs: inputs, styles: styles}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.focus == fieldCount-1 {
				m.done = true
				return m, tea.Quit
			}
			return m.setFocus(m.focus + 1)
		case tea.KeyTab, tea.KeyDown:
			return m.setFocus((m.focus + 1) % fieldCount)
		case tea.KeyShiftTab, tea.KeyUp:
			return m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m wizardModel) setFocus(i int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m, m.inputs[m.focus].Focus()
}

func (m wizardModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Add tenant"))
	b.WriteString("\n\n")

	names := []string{"Label", "Display name", "Project path", "Collection"}
	for i, in := range m.inputs {
		marker := "  "
		style := m.styles.Blurred
		if i == m.focus {
			marker = "> "
			style = m.styles.Focused
		}
		b.WriteString(style.Render(marker + names[i]))
		b.WriteString("\n  ")
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Dim.Render("enter: next field  tab: move  esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m wizardModel) result() WizardResult {
	return WizardResult{
		Label:       strings.TrimSpace(m.inputs[fieldLabel].Value()),
		DisplayName: strings.TrimSpace(m.inputs[fieldDisplayName].Value()),
		Path:        strings.TrimSpace(m.inputs[fieldPath].Value()),
		Collection:  strings.TrimSpace(m.inputs[fieldCollection].Value()),
		Accepted:    m.done && !m.aborted,
	}
}

// RunTenantWizard runs the interactive form and returns the collected fields.
// Accepted is false when the user cancelled.
func RunTenantWizard(defaults WizardResult, noColor bool) (WizardResult, error) {
	p := tea.NewProgram(newWizardModel(defaults, GetStyles(noColor)))
	final, err := p.Run()
	if err != nil {
		return WizardResult{}, fmt.Errorf("run wizard: %w", err)
	}
	m, ok := final.(wizardModel)
	if !ok {
		return WizardResult{}, fmt.Errorf("unexpected wizard model type")
	}
	return m.result(), nil
}
