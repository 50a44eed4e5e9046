package render

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/i18n"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
)

// MaxCarouselCards is the platform limit on bubbles per carousel.
const MaxCarouselCards = 10

// TimeKind selects which end of the window a TimePrompt asks for.
type TimeKind int

const (
	TimeStart TimeKind = iota
	TimeEnd
)

func cancelButton(labelID string) line.Component {
	return SecondaryButton(line.PostbackAction(i18n.T(labelID), conversation.Encode(conversation.Cancel{}), ""))
}

// =============================================================================
// LEAVE TYPE CAROUSEL
// =============================================================================

// LeaveTypeCarousel renders the first page of leave-type cards. When there are
// more than MaxCarouselCards types the last slot becomes a "more" card.
func LeaveTypeCarousel(policies []leave.Policy, annualDays *int) line.Message {
	return leaveTypePage(policies, annualDays, 0, i18n.T("carousel.alt"))
}

// AllLeaveTypesCarousel renders the page of cards starting at offset.
func AllLeaveTypesCarousel(policies []leave.Policy, annualDays *int, offset int) line.Message {
	return leaveTypePage(policies, annualDays, offset, i18n.T("carousel.alt_all"))
}

func leaveTypePage(policies []leave.Policy, annualDays *int, offset int, alt string) line.Message {
	if offset < 0 || offset >= len(policies) {
		offset = 0
	}
	rest := policies[offset:]

	cards := make([]line.Bubble, 0, MaxCarouselCards)
	if len(rest) <= MaxCarouselCards {
		for _, p := range rest {
			cards = append(cards, leaveTypeCard(p, annualDays))
		}
	} else {
		shown := rest[:MaxCarouselCards-1]
		for _, p := range shown {
			cards = append(cards, leaveTypeCard(p, annualDays))
		}
		cards = append(cards, moreTypesCard(len(rest)-len(shown), offset+len(shown)))
	}
	return line.FlexMessage{AltText: alt, Contents: line.Carousel{Contents: cards}}
}

func leaveTypeCard(p leave.Policy, annualDays *int) line.Bubble {
	days := p.DefaultAnnualDays
	if p.LeaveType == leave.AnnualLeaveType && annualDays != nil {
		days = *annualDays
	}

	contents := []line.Component{}
	if p.Description != "" {
		contents = append(contents, line.Text{Text: p.Description, Size: "xs", Color: "#888888", Wrap: true})
	}
	contents = append(contents, line.Text{
		Text:   i18n.T("carousel.annual_days", map[string]any{"Days": days}),
		Size:   "sm",
		Color:  ColorValue,
		Weight: "bold",
		Margin: "md",
	})

	choose := line.PostbackAction(i18n.T("button.select"), conversation.Encode(conversation.SelectLeave{Type: p.LeaveType}), p.LeaveType)
	return line.Bubble{
		Size:   "micro",
		Header: Header(p.LeaveType, "", LeaveTypeColor(p.LeaveType)),
		Body:   body(contents...),
		Footer: footer(PrimaryButton(choose, LeaveTypeColor(p.LeaveType))),
	}
}

func moreTypesCard(remaining, nextOffset int) line.Bubble {
	more := line.PostbackAction(i18n.T("button.more"), conversation.Encode(conversation.ShowOtherTypes{Offset: nextOffset}), "")
	return line.Bubble{
		Size: "micro",
		Header: &line.Box{
			Layout:          "vertical",
			BackgroundColor: ColorFallback,
			PaddingAll:      "lg",
			Contents:        []line.Component{line.Text{Text: i18n.T("carousel.more_title"), Size: "lg", Color: "#FFFFFF", Weight: "bold", Align: "center"}},
		},
		Body:   body(line.Text{Text: i18n.T("carousel.more_body", map[string]any{"Count": remaining}), Size: "xs", Color: "#888888", Wrap: true}),
		Footer: footer(PrimaryButton(more, ColorFallback)),
	}
}

// =============================================================================
// DATE PROMPTS
// =============================================================================

// StartDatePrompt asks for the first day; the picker cannot go before today.
func StartDatePrompt(leaveType string, today time.Time) line.Message {
	t := map[string]any{"Type": leaveType}
	d := leave.FormatDate(today)
	picker := line.DatetimePickerAction(i18n.T("button.pick_start_date"), conversation.Encode(conversation.PickStartDate{}), "date", d, d, "")

	return bubbleMessage(i18n.T("start_date.alt", t), line.Bubble{
		Header: Header("📅 "+leaveType, i18n.T("start_date.subtitle"), LeaveTypeColor(leaveType)),
		Body: body(
			line.Text{Text: i18n.T("start_date.prompt"), Size: "sm", Color: ColorMuted},
			line.Text{Text: i18n.T("start_date.hint"), Size: "xxs", Color: ColorLabel, Margin: "sm"},
		),
		Footer: footer(
			PrimaryButton(picker, LeaveTypeColor(leaveType)),
			cancelButton("button.cancel_leave"),
		),
	})
}

// EndDatePrompt asks for the last day, with a shortcut for single-day leave.
func EndDatePrompt(leaveType string, start time.Time) line.Message {
	t := map[string]any{"Type": leaveType}
	s := leave.FormatDate(start)
	picker := line.DatetimePickerAction(i18n.T("button.pick_end_date"), conversation.Encode(conversation.PickEndDate{}), "date", s, s, "")
	sameDay := line.PostbackAction(i18n.T("button.same_day"), conversation.Encode(conversation.SameDay{}), "")

	return bubbleMessage(i18n.T("end_date.alt", t), line.Bubble{
		Header: Header("📅 "+leaveType, i18n.T("end_date.subtitle"), LeaveTypeColor(leaveType)),
		Body: body(
			line.Text{Text: i18n.T("end_date.start", map[string]any{"Start": s}), Size: "sm", Color: ColorValue, Weight: "bold"},
			line.Text{Text: i18n.T("end_date.prompt"), Size: "sm", Color: ColorMuted, Margin: "md"},
		),
		Footer: footer(
			PrimaryButton(picker, LeaveTypeColor(leaveType)),
			SecondaryButton(sameDay),
			cancelButton("button.cancel"),
		),
	})
}

// FullDayPrompt offers full-day leave or a custom time window.
func FullDayPrompt(leaveType string, start, end time.Time) line.Message {
	t := map[string]any{"Type": leaveType}
	days := leave.InclusiveDays(start, end)

	return bubbleMessage(i18n.T("full_day.alt", t), line.Bubble{
		Header: Header("⏰ "+leaveType, i18n.T("full_day.subtitle"), LeaveTypeColor(leaveType)),
		Body: body(
			InfoRow(i18n.T("label.date"), leave.RangeLabel(start, end)),
			Separator(),
			InfoRow(i18n.T("label.days"), i18n.T("full_day.days", map[string]any{"Days": days})),
			line.Text{Text: i18n.T("full_day.prompt"), Size: "sm", Color: ColorMuted, Margin: "lg"},
		),
		Footer: footer(
			PrimaryButton(line.PostbackAction(i18n.T("button.full_day"), conversation.Encode(conversation.FullDay{}), ""), ColorSuccess),
			PrimaryButton(line.PostbackAction(i18n.T("button.pick_time"), conversation.Encode(conversation.PickTime{}), ""), LeaveTypeColor(leaveType)),
			cancelButton("button.cancel"),
		),
	})
}

// =============================================================================
// TIME PROMPT
// =============================================================================

// HourlySlots lists whole-hour "HH:00" values from from to to inclusive.
func HourlySlots(from, to string) []string {
	f, err1 := leave.ParseClock(from)
	t, err2 := leave.ParseClock(to)
	if err1 != nil || err2 != nil {
		return nil
	}
	var slots []string
	for h := f.Ceil().IntPart(); h <= t.Floor().IntPart(); h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// TimePrompt asks for a start or end time. It carries a time picker plus
// quick-reply shortcuts for the given slots. For the end time of a same-day
// window only slots after chosenStart are offered; a window spanning several
// days ends on a later date, so every slot is valid. The item count never
// exceeds the platform limit.
func TimePrompt(kind TimeKind, chosenStart string, sameDay bool, slots []string) line.Message {
	var (
		text   string
		picker line.Action
		encode func(string) string
	)
	switch kind {
	case TimeEnd:
		text = i18n.T("time.end_prompt", map[string]any{"Start": chosenStart})
		lo := ""
		if sameDay {
			lo = chosenStart
		}
		picker = line.DatetimePickerAction(i18n.T("button.pick_end_time"), conversation.Encode(conversation.SetEndTime{}), "time", chosenStart, lo, "")
		encode = func(s string) string { return conversation.Encode(conversation.SetEndTime{Time: s}) }
	default:
		text = i18n.T("time.start_prompt")
		picker = line.DatetimePickerAction(i18n.T("button.pick_start_time"), conversation.Encode(conversation.SetStartTime{}), "time", leave.DefaultWorkStart, "", "")
		encode = func(s string) string { return conversation.Encode(conversation.SetStartTime{Time: s}) }
	}

	actions := []line.Action{picker}
	floor := decimal.NewFromInt(-1)
	if kind == TimeEnd && sameDay {
		if v, err := leave.ParseClock(chosenStart); err == nil {
			floor = v
		}
	}
	for _, s := range slots {
		if len(actions) == line.MaxQuickReplyItems-1 {
			break
		}
		v, err := leave.ParseClock(s)
		if err != nil || !v.GreaterThan(floor) {
			continue
		}
		actions = append(actions, line.PostbackAction(s, encode(s), s))
	}
	actions = append(actions, line.PostbackAction(i18n.T("button.cancel"), conversation.Encode(conversation.Cancel{}), ""))

	return line.TextMessage{Text: text, QuickReply: line.NewQuickReply(actions...)}
}

// =============================================================================
// REASON PROMPT
// =============================================================================

// ReasonPrompt summarizes the draft and asks for a free-text reason.
func ReasonPrompt(draft leave.Request, daily decimal.Decimal) line.Message {
	t := map[string]any{"Type": draft.LeaveType}

	rows := []line.Component{
		InfoRow(i18n.T("label.start"), leave.FormatDate(draft.StartDate)),
		Separator(),
		InfoRow(i18n.T("label.end"), leave.FormatDate(draft.EndDate)),
	}
	rows = append(rows, windowRows(draft, daily)...)
	rows = append(rows,
		Separator(),
		line.Text{Text: i18n.T("reason.prompt"), Size: "sm", Color: ColorMuted, Margin: "lg"},
		line.Text{Text: i18n.T("reason.hint"), Size: "xxs", Color: ColorLabel, Margin: "xs"},
	)

	skip := line.PostbackAction(i18n.T("button.skip_reason"), conversation.Encode(conversation.SkipReason{}), "")
	return bubbleMessage(i18n.T("reason.alt", t), line.Bubble{
		Header: Header(i18n.T("reason.title", t), "", LeaveTypeColor(draft.LeaveType)),
		Body:   body(rows...),
		Footer: footer(PrimaryButton(skip, ColorSuccess), cancelButton("button.cancel")),
	})
}

// windowRows renders the optional time window and hours rows.
func windowRows(r leave.Request, daily decimal.Decimal) []line.Component {
	var rows []line.Component
	if r.StartTime != "" && r.EndTime != "" {
		rows = append(rows, Separator(), InfoRow(i18n.T("label.window"), r.StartTime+" ~ "+r.EndTime))
	}
	if r.Hours.Valid && r.Hours.Decimal.IsPositive() {
		rows = append(rows, Separator(), InfoRow(i18n.T("label.hours"), hoursLabel(r.Hours.Decimal, daily)))
	}
	return rows
}
