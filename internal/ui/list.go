package ui

import (
	"fmt"
	"strings"

	"github.com/s950329/qmd-bridge/internal/tenant"
)

// RenderTenantList formats tenants as an aligned table. Tokens are never
// included; they are only shown once, at creation or rotation.
func RenderTenantList(tenants []tenant.Tenant, styles Styles) string {
	if len(tenants) == 0 {
		return styles.Dim.Render("no tenants configured") + "\n"
	}

	labelW, collW := len("LABEL"), len("COLLECTION")
	for _, t := range tenants {
		if len(t.Label) > labelW {
			labelW = len(t.Label)
		}
		if len(t.Collection) > collW {
			collW = len(t.Collection)
		}
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render(fmt.Sprintf("%-*s  %-*s  %s", labelW, "LABEL", collW, "COLLECTION", "PATH")))
	b.WriteString("\n")
	for _, t := range tenants {
		// Pad before styling so ANSI codes don't skew column widths.
		b.WriteString(styles.Value.Render(fmt.Sprintf("%-*s", labelW, t.Label)))
		b.WriteString("  ")
		b.WriteString(fmt.Sprintf("%-*s", collW, t.Collection))
		b.WriteString("  ")
		b.WriteString(styles.Label.Render(t.Path))
		if t.DisplayName != "" && t.DisplayName != t.Label {
			b.WriteString(styles.Dim.Render("  (" + t.DisplayName + ")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
