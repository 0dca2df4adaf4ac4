// Package output provides styled terminal output helpers (success, error,
// warning, note formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/nt/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	stateStyles  = map[models.SyncState]lipgloss.Style{
		models.SyncStateSynced:        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncStatePendingUpload: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SyncStatePendingDelete: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		models.SyncStateConflict:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// NoteLine renders one note as a single list row.
func NoteLine(n models.Note) string {
	id := fmt.Sprintf("%d", n.ID)
	if n.LocalOnly {
		id = fmt.Sprintf("%d (local)", n.ID)
	}
	state := stateStyle(n.SyncState).Render(stateLabel(n))
	updated := subtleStyle.Render(relativeTime(n.UpdatedAt))
	return fmt.Sprintf("%-12s %s %s %s", id, titleStyle.Render(n.Title), state, updated)
}

// NoteDetail renders the full note.
func NoteDetail(n models.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(n.Title))
	fmt.Fprintf(&b, "%s\n\n", subtleStyle.Render(fmt.Sprintf("id %d · %s · updated %s",
		n.ID, stateLabel(n), time.UnixMilli(n.UpdatedAt).Local().Format("2006-01-02 15:04"))))
	b.WriteString(n.Body)
	return b.String()
}

func stateStyle(state models.SyncState) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return subtleStyle
}

func stateLabel(n models.Note) string {
	switch n.SyncState {
	case models.SyncStateSynced:
		return "synced"
	case models.SyncStatePendingUpload:
		return "pending"
	case models.SyncStatePendingDelete:
		return "deleting"
	case models.SyncStateConflict:
		return "conflict"
	}
	return string(n.SyncState)
}

// relativeTime formats a timestamp as a compact age like "3h" or "2d".
func relativeTime(ms int64) string {
	d := time.Since(time.UnixMilli(ms))
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
