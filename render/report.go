package render

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
)

// =============================================================================
// BALANCE
// =============================================================================

// BalanceRow is one leave type's yearly usage, in hours.
type BalanceRow struct {
	LeaveType string
	Total     decimal.Decimal
	Used      decimal.Decimal
	Daily     decimal.Decimal
}

func (r BalanceRow) Remaining() decimal.Decimal {
	return r.Total.Sub(r.Used)
}

// BalanceReport renders used vs. entitled hours per type. The default view
// hides unused types and offers a postback to reveal them.
func BalanceReport(rows []BalanceRow, showAll bool, year int) line.Message {
	visible := rows
	if !showAll {
		visible = nil
		for _, r := range rows {
			if r.Used.IsPositive() {
				visible = append(visible, r)
			}
		}
	}

	showAllButton := PrimaryButton(
		line.PostbackAction(i18n.T("button.show_all_balance"), conversation.Encode(conversation.ShowAllBalance{}), ""),
		ColorDetail,
	)
	header := Header(i18n.T("balance.title"), i18n.T("balance.year", map[string]any{"Year": year}), "#0EA5E9")

	if len(visible) == 0 {
		b := line.Bubble{
			Header: header,
			Body:   body(line.Text{Text: i18n.T("balance.empty"), Size: "md", Color: "#4CAF50", Align: "center", Margin: "xl"}),
		}
		if !showAll {
			b.Footer = footer(showAllButton)
		}
		return bubbleMessage(i18n.T("balance.alt"), b)
	}

	contents := make([]line.Component, 0, len(visible)*2)
	for i, r := range visible {
		if i > 0 {
			contents = append(contents, Separator())
		}
		contents = append(contents, balanceRow(r))
	}

	b := line.Bubble{Header: header, Body: body(contents...)}
	if !showAll {
		b.Footer = footer(showAllButton)
	}
	return bubbleMessage(i18n.T("balance.alt"), b)
}

func balanceRow(r BalanceRow) line.Component {
	color := UsageColor(r.LeaveType, r.Used, r.Total)
	remaining := r.Remaining()
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return line.Box{
		Layout: "vertical",
		Margin: "md",
		Contents: []line.Component{
			line.Box{
				Layout: "horizontal",
				Contents: []line.Component{
					line.Text{Text: r.LeaveType, Size: "sm", Color: ColorValue, Weight: "bold", Flex: flex(3)},
					line.Text{
						Text: i18n.T("balance.remaining", map[string]any{
							"Remaining": leave.FormatHours(remaining, r.Daily),
							"Total":     leave.FormatHours(r.Total, r.Daily),
						}),
						Size:  "xs",
						Color: "#666666",
						Align: "end",
						Flex:  flex(4),
					},
				},
			},
			ProgressBar(r.Used, r.Total, color),
			line.Text{Text: i18n.T("balance.used", map[string]any{"Used": leave.FormatHours(r.Used, r.Daily)}), Size: "xxs", Color: "#999999", Margin: "xs"},
		},
	}
}

// =============================================================================
// DETAIL
// =============================================================================

var statusColors = map[leave.Status]string{
	leave.StatusPending:  ColorAmber,
	leave.StatusApproved: ColorGreen,
	leave.StatusRejected: ColorRed,
}

// StatusLabel returns the display label of a request status.
func StatusLabel(s leave.Status) string {
	switch s {
	case leave.StatusPending, leave.StatusApproved, leave.StatusRejected:
		return i18n.T("status." + string(s))
	}
	return string(s)
}

// LeaveDetail lists the year's requests in the given order.
func LeaveDetail(records []leave.Request, year int, daily decimal.Decimal) line.Message {
	alt := i18n.T("detail.alt", map[string]any{"Year": year})
	if len(records) == 0 {
		return bubbleMessage(alt, line.Bubble{
			Header: Header(i18n.T("detail.title"), i18n.T("balance.year", map[string]any{"Year": year}), ColorDetail),
			Body:   body(line.Text{Text: i18n.T("balance.empty"), Size: "md", Color: "#4CAF50", Align: "center", Margin: "xl"}),
		})
	}

	contents := make([]line.Component, 0, len(records)*2)
	for i, r := range records {
		if i > 0 {
			contents = append(contents, Separator())
		}
		contents = append(contents, detailRow(r, daily))
	}

	return bubbleMessage(alt, line.Bubble{
		Header: Header(i18n.T("detail.title"), i18n.T("detail.year_count", map[string]any{"Year": year, "Count": len(records)}), ColorDetail),
		Body:   body(contents...),
	})
}

func detailRow(r leave.Request, daily decimal.Decimal) line.Component {
	color, ok := statusColors[r.Status]
	if !ok {
		color = ColorFallback
	}

	title := line.Box{
		Layout: "horizontal",
		Contents: []line.Component{
			line.Text{Text: r.LeaveType, Size: "sm", Color: LeaveTypeColor(r.LeaveType), Weight: "bold", Flex: flex(3)},
			Pill(StatusLabel(r.Status), color),
		},
	}
	when := r.DateLabel()
	if r.Hours.Valid && r.Hours.Decimal.IsPositive() {
		when += " · " + leave.FormatHours(r.Hours.Decimal, daily)
	}

	contents := []line.Component{
		title,
		line.Text{Text: when, Size: "xs", Color: "#666666", Margin: "xs"},
	}
	if r.StartTime != "" && r.EndTime != "" {
		contents = append(contents, line.Text{Text: r.StartTime + " ~ " + r.EndTime, Size: "xxs", Color: ColorLabel, Margin: "xs"})
	}
	if r.Reason != "" {
		contents = append(contents, line.Text{Text: i18n.T("detail.reason", map[string]any{"Reason": r.Reason}), Size: "xxs", Color: ColorLabel, Margin: "xs", Wrap: true})
	}
	return line.Box{Layout: "vertical", Margin: "md", Contents: contents}
}

// =============================================================================
// MONTHLY ROSTER
// =============================================================================

// MonthlyRoster lists approved leave overlapping a month across all accounts.
func MonthlyRoster(entries []leave.RosterEntry, monthLabel string) line.Message {
	var contents []line.Component
	if len(entries) == 0 {
		contents = []line.Component{line.Text{Text: i18n.T("roster.empty"), Size: "md", Color: "#4CAF50", Align: "center", Margin: "xl"}}
	}
	for i, e := range entries {
		if i > 0 {
			contents = append(contents, Separator())
		}
		contents = append(contents, rosterRow(e))
	}

	return bubbleMessage(i18n.T("roster.alt", map[string]any{"Month": monthLabel}), line.Bubble{
		Header: Header(i18n.T("roster.title"), monthLabel, ColorRoster),
		Body:   body(contents...),
		Footer: &line.Box{
			Layout:     "vertical",
			PaddingAll: "md",
			Contents:   []line.Component{line.Text{Text: i18n.T("roster.total", map[string]any{"Count": strconv.Itoa(len(entries))}), Size: "xs", Color: ColorLabel, Align: "end"}},
		},
	})
}

func rosterRow(e leave.RosterEntry) line.Component {
	return line.Box{
		Layout: "horizontal",
		Margin: "md",
		Contents: []line.Component{
			line.Box{
				Layout: "vertical",
				Flex:   flex(5),
				Contents: []line.Component{
					line.Text{Text: displayName(e.Name, e.Department), Size: "sm", Color: ColorValue, Weight: "bold", Wrap: true},
					line.Text{Text: leave.RangeLabel(e.StartDate, e.EndDate), Size: "xs", Color: "#666666", Margin: "xs"},
				},
			},
			Pill(e.LeaveType, LeaveTypeColor(e.LeaveType)),
		},
	}
}

// displayName renders "name (department)", or the unknown label.
func displayName(name, department string) string {
	if name == "" {
		name = i18n.T("label.unknown_name")
	}
	if department != "" {
		return name + " (" + department + ")"
	}
	return name
}
