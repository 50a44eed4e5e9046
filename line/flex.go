package line

import "encoding/json"

// =============================================================================
// FLEX COMPONENTS
// =============================================================================

// Component is any node of a Flex tree. Each type marshals its own "type" tag.
type Component interface {
	flexType() string
}

// Container is a top-level Flex document (Bubble or Carousel).
type Container interface {
	Component
	container()
}

type Bubble struct {
	Size   string `json:"size,omitempty"`
	Header *Box   `json:"header,omitempty"`
	Hero   *Box   `json:"hero,omitempty"`
	Body   *Box   `json:"body,omitempty"`
	Footer *Box   `json:"footer,omitempty"`
}

type Carousel struct {
	Contents []Bubble `json:"contents"`
}

type Box struct {
	Layout          string      `json:"layout"`
	Contents        []Component `json:"contents"`
	Spacing         string      `json:"spacing,omitempty"`
	Margin          string      `json:"margin,omitempty"`
	PaddingAll      string      `json:"paddingAll,omitempty"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	CornerRadius    string      `json:"cornerRadius,omitempty"`
	Width           string      `json:"width,omitempty"`
	Height          string      `json:"height,omitempty"`
	Flex            *int        `json:"flex,omitempty"`
	Action          *Action     `json:"action,omitempty"`
}

type Text struct {
	Text   string `json:"text"`
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
	Color  string `json:"color,omitempty"`
	Align  string `json:"align,omitempty"`
	Margin string `json:"margin,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
	Flex   *int   `json:"flex,omitempty"`
}

type Button struct {
	Action Action `json:"action"`
	Style  string `json:"style,omitempty"`
	Color  string `json:"color,omitempty"`
	Height string `json:"height,omitempty"`
	Margin string `json:"margin,omitempty"`
}

type Separator struct {
	Margin string `json:"margin,omitempty"`
	Color  string `json:"color,omitempty"`
}

type Filler struct{}

func (Bubble) flexType() string    { return "bubble" }
func (Carousel) flexType() string  { return "carousel" }
func (Box) flexType() string       { return "box" }
func (Text) flexType() string      { return "text" }
func (Button) flexType() string    { return "button" }
func (Separator) flexType() string { return "separator" }
func (Filler) flexType() string    { return "filler" }

func (Bubble) container()   {}
func (Carousel) container() {}

func (c Bubble) MarshalJSON() ([]byte, error) {
	type alias Bubble
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Carousel) MarshalJSON() ([]byte, error) {
	type alias Carousel
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Box) MarshalJSON() ([]byte, error) {
	type alias Box
	if c.Contents == nil {
		c.Contents = []Component{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Button) MarshalJSON() ([]byte, error) {
	type alias Button
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Separator) MarshalJSON() ([]byte, error) {
	type alias Separator
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.flexType(), alias(c)})
}

func (c Filler) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{c.flexType()})
}

// =============================================================================
// ACTIONS
// =============================================================================

// Action is a button or quick-reply action. Unused fields are omitted.
type Action struct {
	Type        string `json:"type"`
	Label       string `json:"label,omitempty"`
	Data        string `json:"data,omitempty"`
	DisplayText string `json:"displayText,omitempty"`
	Text        string `json:"text,omitempty"`
	URI         string `json:"uri,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Initial     string `json:"initial,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

func PostbackAction(label, data, displayText string) Action {
	return Action{Type: "postback", Label: label, Data: data, DisplayText: displayText}
}

func MessageAction(label, text string) Action {
	return Action{Type: "message", Label: label, Text: text}
}

func URIAction(label, uri string) Action {
	return Action{Type: "uri", Label: label, URI: uri}
}

// DatetimePickerAction builds a picker; mode is "date", "time" or "datetime".
func DatetimePickerAction(label, data, mode, initial, lo, hi string) Action {
	return Action{Type: "datetimepicker", Label: label, Data: data, Mode: mode, Initial: initial, Min: lo, Max: hi}
}
