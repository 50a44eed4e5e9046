package conversation

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrUnknownAction is returned for postback data that names no known action.
var ErrUnknownAction = errors.New("unknown postback action")

// Postback kinds as they appear in the "action" field.
const (
	KindSelectLeave    = "select_leave"
	KindShowOtherTypes = "show_other_types"
	KindShowAllBalance = "show_all_balance"
	KindPickStartDate  = "pick_start_date"
	KindPickEndDate    = "pick_end_date"
	KindSameDay        = "same_day"
	KindFullDay        = "full_day"
	KindPickTime       = "pick_time"
	KindSetStartTime   = "set_start_time"
	KindSetEndTime     = "set_end_time"
	KindSkipReason     = "skip_reason"
	KindCancel         = "cancel_leave"
)

// Action is the decoded form of a postback. The set of implementations is
// closed; dispatch switches on the concrete type.
type Action interface {
	Kind() string
	values() url.Values
}

type (
	SelectLeave    struct{ Type string }
	ShowOtherTypes struct{ Offset int }
	ShowAllBalance struct{}
	PickStartDate  struct{ Date string }
	PickEndDate    struct{ Date string }
	SameDay        struct{}
	FullDay        struct{}
	PickTime       struct{}
	SetStartTime   struct{ Time string }
	SetEndTime     struct{ Time string }
	SkipReason     struct{}
	Cancel         struct{}
)

func (SelectLeave) Kind() string    { return KindSelectLeave }
func (ShowOtherTypes) Kind() string { return KindShowOtherTypes }
func (ShowAllBalance) Kind() string { return KindShowAllBalance }
func (PickStartDate) Kind() string  { return KindPickStartDate }
func (PickEndDate) Kind() string    { return KindPickEndDate }
func (SameDay) Kind() string        { return KindSameDay }
func (FullDay) Kind() string        { return KindFullDay }
func (PickTime) Kind() string       { return KindPickTime }
func (SetStartTime) Kind() string   { return KindSetStartTime }
func (SetEndTime) Kind() string     { return KindSetEndTime }
func (SkipReason) Kind() string     { return KindSkipReason }
func (Cancel) Kind() string         { return KindCancel }

func (a SelectLeave) values() url.Values { return url.Values{"type": {a.Type}} }
func (a ShowOtherTypes) values() url.Values {
	if a.Offset == 0 {
		return nil
	}
	return url.Values{"offset": {strconv.Itoa(a.Offset)}}
}
func (ShowAllBalance) values() url.Values  { return nil }
func (a PickStartDate) values() url.Values { return optional("date", a.Date) }
func (a PickEndDate) values() url.Values   { return optional("date", a.Date) }
func (SameDay) values() url.Values         { return nil }
func (FullDay) values() url.Values         { return nil }
func (PickTime) values() url.Values        { return nil }
func (a SetStartTime) values() url.Values  { return optional("time", a.Time) }
func (a SetEndTime) values() url.Values    { return optional("time", a.Time) }
func (SkipReason) values() url.Values      { return nil }
func (Cancel) values() url.Values          { return nil }

func optional(key, v string) url.Values {
	if v == "" {
		return nil
	}
	return url.Values{key: {v}}
}

// Params carries the picker values the platform sends alongside postback data.
type Params struct {
	Date string
	Time string
}

// Encode renders an action as postback data: "action=<kind>&k=v".
func Encode(a Action) string {
	v := a.values()
	if v == nil {
		v = url.Values{}
	}
	v.Set("action", a.Kind())
	return v.Encode()
}

// Decode parses postback data. Picker values from params take precedence over
// the ones embedded in data.
func Decode(data string, params Params) (Action, error) {
	v, err := url.ParseQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAction, err)
	}
	date := first(params.Date, v.Get("date"))
	clock := first(params.Time, v.Get("time"))

	switch kind := v.Get("action"); kind {
	case KindSelectLeave:
		if v.Get("type") == "" {
			return nil, fmt.Errorf("%w: %s without type", ErrUnknownAction, kind)
		}
		return SelectLeave{Type: v.Get("type")}, nil
	case KindShowOtherTypes:
		off, _ := strconv.Atoi(v.Get("offset"))
		return ShowOtherTypes{Offset: max(0, off)}, nil
	case KindShowAllBalance:
		return ShowAllBalance{}, nil
	case KindPickStartDate:
		return PickStartDate{Date: date}, nil
	case KindPickEndDate:
		return PickEndDate{Date: date}, nil
	case KindSameDay:
		return SameDay{}, nil
	case KindFullDay:
		return FullDay{}, nil
	case KindPickTime:
		return PickTime{}, nil
	case KindSetStartTime:
		return SetStartTime{Time: clock}, nil
	case KindSetEndTime:
		return SetEndTime{Time: clock}, nil
	case KindSkipReason:
		return SkipReason{}, nil
	case KindCancel:
		return Cancel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

func first(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ExpectedStep returns the step a dialog action belongs to. ok is false for
// actions that are valid from any state.
func ExpectedStep(a Action) (step Step, ok bool) {
	switch a.(type) {
	case PickStartDate:
		return StepAwaitStartDate, true
	case PickEndDate, SameDay:
		return StepAwaitEndDate, true
	case FullDay, PickTime:
		return StepAwaitFullDay, true
	case SetStartTime:
		return StepAwaitStartTime, true
	case SetEndTime:
		return StepAwaitEndTime, true
	case SkipReason:
		return StepAwaitReason, true
	}
	return "", false
}
