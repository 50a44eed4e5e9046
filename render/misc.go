package render

import (
	"strings"

	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/line"
)

// Command keywords recognised in free text.
const (
	CommandApply   = "申請休假"
	CommandBalance = "查詢休假"
	CommandDetail  = "休假明細"
	CommandRoster  = "當月休假"
	CommandCancel  = "取消"
	CommandBind    = "綁定"
)

// Text is a plain text reply.
func Text(s string) line.Message {
	return line.TextMessage{Text: s}
}

// BindPrompt asks an unbound user for their company email.
func BindPrompt() line.Message {
	return bubbleMessage(i18n.T("bind.alt"), line.Bubble{
		Header: Header(i18n.T("bind.title"), i18n.T("bind.subtitle"), ColorAmber),
		Body: body(
			line.Text{Text: i18n.T("bind.prompt"), Size: "sm", Color: ColorMuted},
			line.Box{
				Layout:          "vertical",
				Margin:          "md",
				PaddingAll:      "md",
				BackgroundColor: "#FEF3C7",
				CornerRadius:    "8px",
				Contents:        []line.Component{line.Text{Text: i18n.T("bind.example"), Size: "sm", Color: "#D97706"}},
			},
		),
	})
}

// Help lists the commands as quick replies and links the web form.
func Help(appURL string) line.Message {
	actions := []line.Action{
		line.MessageAction(i18n.T("help.apply"), CommandApply),
		line.MessageAction(i18n.T("help.balance"), CommandBalance),
		line.MessageAction(i18n.T("help.detail"), CommandDetail),
		line.MessageAction(i18n.T("help.roster"), CommandRoster),
	}
	if appURL != "" {
		actions = append(actions, line.URIAction(i18n.T("help.web"), strings.TrimRight(appURL, "/")+"/request-leave"))
	}
	return line.TextMessage{Text: i18n.T("help.text"), QuickReply: line.NewQuickReply(actions...)}
}
