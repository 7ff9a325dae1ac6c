package handlers

import "strings"

// RenderDashboardHTML fills in the title of the embedded dashboard template.
func RenderDashboardHTML(templateHTML string) string {
	return strings.ReplaceAll(templateHTML, "{{.Title}}", "Jauge")
}
