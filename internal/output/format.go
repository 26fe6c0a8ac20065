// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/service"
)

// FormatItem formats one listed item.
// Format: "{N:>4}  [{x| }] {TITLE}{ (AUTHOR)}{ !PRIORITY}\n"
func FormatItem(w io.Writer, num int, item service.Item) {
	mark := " "
	if item.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s", num, mark, normalizeTitle(item.Title))
	if item.Author != "" {
		fmt.Fprintf(w, " (%s)", item.Author)
	}
	if item.Priority != "" && item.Priority != service.PriorityDefault {
		fmt.Fprintf(w, " !%s", item.Priority)
	}
	if service.IsPlaceholder(item.ID) {
		fmt.Fprint(w, " *")
	}
	fmt.Fprintln(w)
}

// FormatItemVerbose formats a listed item followed by its description and
// story fields, each indented under the title.
func FormatItemVerbose(w io.Writer, num int, item service.Item) {
	FormatItem(w, num, item)
	detail := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(w, "          %s: %s\n", label, normalizeTitle(value))
		}
	}
	detail("id", item.ID)
	detail("description", item.Description)
	detail("as a", item.Role)
	detail("i want", item.Capability)
	detail("so that", item.Benefit)
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
