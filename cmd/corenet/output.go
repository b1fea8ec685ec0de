package main

import (
	"fmt"
	"sort"
	"strings"

	"corenet/pkg/coordinator"
	"corenet/pkg/types"
	"corenet/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Style definitions
var (
	primaryColor   = lipgloss.Color("#FF79C6") // Pink
	secondaryColor = lipgloss.Color("#8BE9FD") // Cyan
	accentColor    = lipgloss.Color("#50FA7B") // Green
	warningColor   = lipgloss.Color("#FFB86C") // Orange
	dangerColor    = lipgloss.Color("#FF5555") // Red
	mutedColor     = lipgloss.Color("#6272A4") // Comment
	bgLightColor   = lipgloss.Color("#44475A") // Current Line
	fgColor        = lipgloss.Color("#F8F8F2") // Foreground

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	accentValueStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	warningValueStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	dangerValueStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			Background(bgLightColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	iconStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			MarginRight(1)
)

// createPanel creates a styled panel with title and content
func createPanel(title, icon, content string) string {
	titleLine := iconStyle.Render(icon) + titleStyle.Render(title)
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleLine, content))
}

type field struct {
	label string
	value string
	style lipgloss.Style
}

func renderFields(fields []field) string {
	var content strings.Builder
	for i, f := range fields {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(labelStyle.Render(f.label))
		content.WriteString(f.style.Render(f.value))
	}
	return content.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(bgLightColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return rowStyle.Foreground(fgColor)
		}).
		Headers(headers...)
}

func fulfilmentStyle(requested, got int) lipgloss.Style {
	switch {
	case got == 0:
		return dangerValueStyle
	case requested >= 0 && got < requested:
		return warningValueStyle
	default:
		return accentValueStyle
	}
}

func renderRequest(m types.Matcher, quantity int, extract bool, result *coordinator.Result) string {
	mode := "count"
	if extract {
		mode = "extract"
	}

	if result.Vetoed {
		return createPanel("REQUEST VETOED", "⛔", renderFields([]field{
			{"Matcher", m.String(), valueStyle},
			{"Requested", utils.FormatQuantity(quantity), valueStyle},
		}))
	}

	summary := renderFields([]field{
		{"Matcher", m.String(), valueStyle},
		{"Mode", mode, valueStyle},
		{"Requested", utils.FormatQuantity(quantity), valueStyle},
		{"Found", fmt.Sprintf("%d", result.Stats.Found), fulfilmentStyle(quantity, result.Stats.Found)},
		{"Extracted", fmt.Sprintf("%d", result.Stats.Extracted), valueStyle},
	})

	if len(result.Resources) == 0 {
		return createPanel("REQUEST", "📦", summary+"\n\n"+mutedStyle.Render("nothing matched"))
	}

	t := newTable("#", "TYPE", "NAME", "QUANTITY")
	for i, r := range result.Resources {
		t.Row(fmt.Sprintf("%d", i+1), r.Type, r.Name, fmt.Sprintf("%d", r.Quantity))
	}
	return createPanel("REQUEST", "📦", summary+"\n\n"+t.Render())
}

// renderRounds shows what the first request and each replay delivered.
func renderRounds(m types.Matcher, quantity int, delivered []int, left int) string {
	t := newTable("ROUND", "DELIVERED")
	for i, n := range delivered {
		round := "request"
		if i > 0 {
			round = fmt.Sprintf("replay %d", i)
		}
		t.Row(round, fulfilmentStyle(quantity, n).Render(fmt.Sprintf("%d", n)))
	}

	summary := renderFields([]field{
		{"Matcher", m.String(), valueStyle},
		{"Requested", utils.FormatQuantity(quantity), valueStyle},
		{"Left in network", fmt.Sprintf("%d", left), valueStyle},
	})
	return createPanel("REPLAY", "🔁", summary+"\n\n"+t.Render())
}

func renderLocations(m types.Matcher, found map[types.Location]int, owners func(types.Location) string) string {
	if len(found) == 0 {
		return createPanel("LOCATIONS", "📍", mutedStyle.Render("no location holds "+m.String()))
	}

	locs := make([]types.Location, 0, len(found))
	for loc := range found {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool {
		return locs[i].String() < locs[j].String()
	})

	t := newTable("LOCATION", "SPARK", "QUANTITY")
	for _, loc := range locs {
		t.Row(loc.String(), owners(loc), fmt.Sprintf("%d", found[loc]))
	}
	return createPanel("LOCATIONS", "📍", t.Render())
}

func renderCount(m types.Matcher, count, strength int) string {
	return createPanel("NETWORK COUNT", "🔢", renderFields([]field{
		{"Matcher", m.String(), valueStyle},
		{"Count", fmt.Sprintf("%d (%s)", count, utils.FormatQuantity(count)), fulfilmentStyle(-1, count)},
		{"Signal", renderSignal(strength), valueStyle},
	}))
}

// renderSignal draws a comparator-style meter for a 0-15 strength.
func renderSignal(strength int) string {
	const width = 15
	bar := lipgloss.NewStyle().Foreground(dangerColor).Render(strings.Repeat("█", strength))
	bar += lipgloss.NewStyle().Foreground(bgLightColor).Render(strings.Repeat("░", width-strength))
	return fmt.Sprintf("%s %d", bar, strength)
}
