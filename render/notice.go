package render

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
)

// SubmitSuccess confirms a stored request to the applicant.
func SubmitSuccess(req leave.Request, daily decimal.Decimal) line.Message {
	rows := []line.Component{
		InfoRow(i18n.T("label.type"), req.LeaveType),
		Separator(),
		InfoRow(i18n.T("label.start"), leave.FormatDate(req.StartDate)),
		Separator(),
		InfoRow(i18n.T("label.end"), leave.FormatDate(req.EndDate)),
	}
	rows = append(rows, windowRows(req, daily)...)
	if req.Reason != "" {
		rows = append(rows, Separator(), InfoRow(i18n.T("label.reason"), req.Reason))
	}

	return bubbleMessage(i18n.T("submit.alt"), line.Bubble{
		Header: Header(i18n.T("submit.title"), i18n.T("submit.subtitle"), ColorSuccess),
		Body:   body(rows...),
		Footer: &line.Box{
			Layout:     "vertical",
			PaddingAll: "md",
			Contents:   []line.Component{line.Text{Text: i18n.T("submit.footer"), Size: "xs", Color: ColorAmber, Align: "center"}},
		},
	})
}

// ReviewerNotice summarizes a new request for the reviewer.
func ReviewerNotice(who leave.Identity, req leave.Request) line.Message {
	daily := who.DailyHours(0)
	rows := []line.Component{
		InfoRow(i18n.T("label.employee"), displayName(who.DisplayName, who.Department)),
		Separator(),
		InfoRow(i18n.T("label.type"), req.LeaveType),
		Separator(),
		InfoRow(i18n.T("label.date"), req.DateLabel()),
	}
	rows = append(rows, windowRows(req, daily)...)
	if req.Reason != "" {
		rows = append(rows, Separator(), InfoRow(i18n.T("label.reason"), req.Reason))
	}

	name := who.DisplayName
	if name == "" {
		name = i18n.T("label.unknown_name")
	}
	return bubbleMessage(i18n.T("notify.alt", map[string]any{"Name": name, "Type": req.LeaveType}), line.Bubble{
		Header: Header(i18n.T("notify.title"), "", LeaveTypeColor(req.LeaveType)),
		Body:   body(rows...),
		Footer: &line.Box{
			Layout:     "vertical",
			PaddingAll: "md",
			Contents:   []line.Component{line.Text{Text: i18n.T("notify.footer"), Size: "xs", Color: ColorAmber, Align: "center"}},
		},
	})
}

// StatusUpdateNotice tells the applicant that a reviewer decided on their
// request. at is shown as the update time.
func StatusUpdateNotice(req leave.Request, daily decimal.Decimal, at time.Time) line.Message {
	status := StatusLabel(req.Status)
	color, ok := statusColors[req.Status]
	if !ok {
		color = ColorFallback
	}

	rows := []line.Component{
		InfoRow(i18n.T("label.type"), req.LeaveType),
		Separator(),
		InfoRow(i18n.T("label.date"), req.DateLabel()),
	}
	rows = append(rows, windowRows(req, daily)...)
	rows = append(rows,
		Separator(),
		line.Box{
			Layout: "horizontal",
			Margin: "md",
			Contents: []line.Component{
				line.Text{Text: i18n.T("label.status"), Size: "sm", Color: ColorLabel, Flex: flex(2)},
				line.Text{Text: status, Size: "sm", Color: color, Weight: "bold", Flex: flex(5)},
			},
		},
		Separator(),
		InfoRow(i18n.T("label.updated_at"), at.Format("2006-01-02 15:04")),
	)

	return bubbleMessage(i18n.T("update.alt", map[string]any{"Status": status}), line.Bubble{
		Header: Header(i18n.T("update.title"), i18n.T("update.subtitle"), ColorUpdate),
		Body:   body(rows...),
		Footer: &line.Box{
			Layout:     "vertical",
			PaddingAll: "md",
			Contents:   []line.Component{line.Text{Text: i18n.T("update.footer"), Size: "xs", Color: ColorLabel, Align: "center"}},
		},
	})
}
