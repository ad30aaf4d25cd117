package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s950329/qmd-bridge/internal/tenant"
)

func TestIsTTY_NonFileWriter(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func typeString(m wizardModel, s string) wizardModel {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(wizardModel)
	}
	return m
}

func press(m wizardModel, k tea.KeyType) wizardModel {
	next, _ := m.Update(tea.KeyMsg{Type: k})
	return next.(wizardModel)
}

func TestWizard_CollectsFieldsInOrder(t *testing.T) {
	m := newWizardModel(WizardResult{}, NoColorStyles())

	m = typeString(m, "docs")
	m = press(m, tea.KeyEnter)
	m = typeString(m, "Docs")
	m = press(m, tea.KeyEnter)
	m = typeString(m, "/srv/docs")
	m = press(m, tea.KeyEnter)
	m = typeString(m, "docs-main")
	m = press(m, tea.KeyEnter)

	res := m.result()
	require.True(t, res.Accepted)
	assert.Equal(t, "docs", res.Label)
	assert.Equal(t, "Docs", res.DisplayName)
	assert.Equal(t, "/srv/docs", res.Path)
	assert.Equal(t, "docs-main", res.Collection)
}

func TestWizard_EscCancels(t *testing.T) {
	m := newWizardModel(WizardResult{}, NoColorStyles())
	m = typeString(m, "docs")
	m = press(m, tea.KeyEsc)

	assert.False(t, m.result().Accepted)
}

func TestWizard_TabWrapsFocus(t *testing.T) {
	m := newWizardModel(WizardResult{}, NoColorStyles())
	for i := 0; i < fieldCount; i++ {
		m = press(m, tea.KeyTab)
	}
	assert.Equal(t, 0, m.focus)
}

func TestWizard_DefaultsPrefilled(t *testing.T) {
	m := newWizardModel(WizardResult{Label: "docs", Path: "/srv/docs"}, NoColorStyles())
	m = press(m, tea.KeyEnter)
	m = press(m, tea.KeyEnter)
	m = press(m, tea.KeyEnter)
	m = press(m, tea.KeyEnter)

	res := m.result()
	require.True(t, res.Accepted)
	assert.Equal(t, "docs", res.Label)
	assert.Equal(t, "/srv/docs", res.Path)
}

func TestWizard_ViewShowsFields(t *testing.T) {
	m := newWizardModel(WizardResult{}, NoColorStyles())
	view := m.View()
	for _, want := range []string{"Add tenant", "Label", "Project path", "Collection"} {
		assert.Contains(t, view, want)
	}
}

func TestRenderTenantList_Empty(t *testing.T) {
	out := RenderTenantList(nil, NoColorStyles())
	assert.Contains(t, out, "no tenants configured")
}

func TestRenderTenantList_NeverShowsTokens(t *testing.T) {
	tenants := []tenant.Tenant{
		{Label: "docs", Collection: "docs", Path: "/srv/docs", Token: "supersecret"},
		{Label: "wiki", DisplayName: "Team Wiki", Collection: "wiki-main", Path: "/srv/wiki", Token: "alsosecret"},
	}
	out := RenderTenantList(tenants, NoColorStyles())

	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "wiki-main")
	assert.Contains(t, out, "Team Wiki")
	assert.NotContains(t, out, "supersecret")
	assert.NotContains(t, out, "alsosecret")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3, "header plus one line per tenant")
}
