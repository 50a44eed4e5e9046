/*
Package render builds the LINE message documents the bot replies with.

PURPOSE:
  Every function here is total and side-effect free: given domain values it
  returns a line.Message. No I/O, no clock reads; callers pass "today" and
  "year" explicitly so the output is deterministic.

LAYOUT:
  primitives.go: colors, info rows, headers, progress bars, buttons
  dialog.go:     leave application screens (carousel, pickers, reason)
  report.go:     balance, detail and monthly roster reports
  notice.go:     submission confirmation and reviewer notification
  misc.go:       bind prompt, help, plain text

SEE ALSO:
  - line/: the wire types produced here
  - i18n/: every label comes from the catalog
*/
package render

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
)

// =============================================================================
// COLORS
// =============================================================================

const (
	ColorFallback = "#9CA3AF"
	ColorAmber    = "#F59E0B"
	ColorRed      = "#EF4444"
	ColorGreen    = "#22C55E"
	ColorSuccess  = "#10B981"
	ColorDetail   = "#6366F1"
	ColorRoster   = "#8B5CF6"
	ColorUpdate   = "#3B82F6"
	ColorTrack    = "#E5E7EB"
	ColorRule     = "#F0F0F0"
	ColorLabel    = "#AAAAAA"
	ColorValue    = "#333333"
	ColorMuted    = "#555555"
	ColorSubtitle = "#FFFFFFCC"
)

var leaveTypeColors = map[string]string{
	"特休": "#3B82F6",
	"病假": "#EF4444",
	"事假": "#F59E0B",
	"婚假": "#8B5CF6",
	"產假": "#06B6D4",
	"喪假": "#6B7280",
}

// LeaveTypeColor returns the accent color of a leave type.
func LeaveTypeColor(leaveType string) string {
	if c, ok := leaveTypeColors[leaveType]; ok {
		return c
	}
	return ColorFallback
}

// UsageColor picks the progress bar color for a used/total ratio.
func UsageColor(leaveType string, used, total decimal.Decimal) string {
	if !total.IsPositive() {
		if used.IsPositive() {
			return ColorRed
		}
		return LeaveTypeColor(leaveType)
	}
	ratio := used.Div(total)
	switch {
	case ratio.GreaterThan(decimal.NewFromInt(1)):
		return ColorRed
	case ratio.GreaterThanOrEqual(decimal.RequireFromString("0.8")):
		return ColorAmber
	default:
		return LeaveTypeColor(leaveType)
	}
}

// =============================================================================
// PRIMITIVES
// =============================================================================

func flex(n int) *int { return &n }

// InfoRow is a "label  value" line.
func InfoRow(label, value string) line.Component {
	return line.Box{
		Layout: "horizontal",
		Margin: "md",
		Contents: []line.Component{
			line.Text{Text: label, Size: "sm", Color: ColorLabel, Flex: flex(2)},
			line.Text{Text: value, Size: "sm", Color: ColorValue, Weight: "bold", Flex: flex(5), Wrap: true},
		},
	}
}

func Separator() line.Component {
	return line.Separator{Margin: "md", Color: ColorRule}
}

// Header is a colored title block with an optional subtitle.
func Header(title, subtitle, color string) *line.Box {
	contents := []line.Component{
		line.Text{Text: title, Size: "xl", Color: "#FFFFFF", Weight: "bold", Wrap: true},
	}
	if subtitle != "" {
		contents = append(contents, line.Text{Text: subtitle, Size: "xs", Color: ColorSubtitle, Margin: "xs"})
	}
	return &line.Box{Layout: "vertical", Contents: contents, BackgroundColor: color, PaddingAll: "lg"}
}

// ProgressBar renders used/total as a filled track, clamped to 100%.
func ProgressBar(used, total decimal.Decimal, color string) line.Component {
	pct := int64(0)
	if total.IsPositive() {
		pct = used.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	} else if used.IsPositive() {
		pct = 100
	}
	pct = max(0, min(pct, 100))

	fill := line.Box{Layout: "vertical", Width: fmt.Sprintf("%d%%", pct), Height: "6px", BackgroundColor: color, CornerRadius: "3px"}
	if pct == 0 {
		fill.BackgroundColor = ColorTrack
	}
	return line.Box{
		Layout:          "vertical",
		Margin:          "sm",
		Height:          "6px",
		BackgroundColor: ColorTrack,
		CornerRadius:    "3px",
		Contents:        []line.Component{fill},
	}
}

// Pill is a small rounded status label.
func Pill(label, color string) line.Component {
	return line.Box{
		Layout:          "vertical",
		BackgroundColor: color,
		CornerRadius:    "12px",
		PaddingAll:      "xs",
		Flex:            flex(0),
		Contents:        []line.Component{line.Text{Text: label, Size: "xxs", Color: "#FFFFFF", Align: "center"}},
	}
}

func PrimaryButton(action line.Action, color string) line.Component {
	return line.Button{Action: action, Style: "primary", Color: color, Height: "sm"}
}

func SecondaryButton(action line.Action) line.Component {
	return line.Button{Action: action, Style: "secondary", Height: "sm"}
}

func footer(buttons ...line.Component) *line.Box {
	return &line.Box{Layout: "vertical", Spacing: "sm", PaddingAll: "sm", Contents: buttons}
}

func body(contents ...line.Component) *line.Box {
	return &line.Box{Layout: "vertical", PaddingAll: "lg", Contents: contents}
}

func bubbleMessage(alt string, b line.Bubble) line.FlexMessage {
	return line.FlexMessage{AltText: alt, Contents: b}
}

// hoursLabel renders "12h（1d 4h）".
func hoursLabel(hours, daily decimal.Decimal) string {
	return fmt.Sprintf("%sh（%s）", hours.String(), leave.FormatHours(hours, daily))
}
