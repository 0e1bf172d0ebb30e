package render

import (
	"strings"

	"tasklist/internal/annotate"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	// ActionOpenURL opens Value in the system browser.
	ActionOpenURL
	// ActionMailto opens Value (a mailto: URL) in the mail client.
	ActionMailto
	// ActionFilter narrows the task list to tasks carrying Value.
	ActionFilter
)

func (k ActionKind) String() string {
	switch k {
	case ActionOpenURL:
		return "open"
	case ActionMailto:
		return "mailto"
	case ActionFilter:
		return "filter"
	default:
		return "none"
	}
}

// Action is what activating a display target asks the host to do. Any action other
// than ActionNone replaces the row's default behavior.
type Action struct {
	Kind   ActionKind
	Value  string
	Entity annotate.Segment
}

// Display is the read-only surface of one task's text.
type Display struct {
	text    string
	segs    []annotate.Segment
	targets []int
}

func NewDisplay(text string) *Display {
	d := &Display{text: text, segs: annotate.Annotate(text)}
	for i, seg := range d.segs {
		if seg.Kind.Interactive() {
			d.targets = append(d.targets, i)
		}
	}
	return d
}

func (d *Display) Text() string { return d.text }

// Targets returns the interactive segments in text order.
func (d *Display) Targets() []annotate.Segment {
	out := make([]annotate.Segment, 0, len(d.targets))
	for _, i := range d.targets {
		out = append(out, d.segs[i])
	}
	return out
}

func (d *Display) NumTargets() int { return len(d.targets) }

// Render draws the text wrapped at width (no wrap when width <= 0). Target number
// active is highlighted; pass -1 for none.
func (d *Display) Render(width, active int, p Palette) string {
	activeSeg := -1
	if active >= 0 && active < len(d.targets) {
		activeSeg = d.targets[active]
	}
	var b strings.Builder
	for i, seg := range d.segs {
		st := p.Style(seg.Kind)
		if i == activeSeg {
			st = p.Active.Inherit(st)
		}
		b.WriteString(paint(st, seg.Text))
	}
	return wrap(b.String(), width)
}

// Activate resolves target i to an action. Out-of-range targets yield ActionNone.
func (d *Display) Activate(i int) Action {
	if i < 0 || i >= len(d.targets) {
		return Action{Kind: ActionNone}
	}
	return ActionFor(d.segs[d.targets[i]])
}

// ActionFor maps an entity segment to its activation behavior.
// Openable kinds leave the app; the other interactive kinds filter the list.
func ActionFor(seg annotate.Segment) Action {
	switch {
	case !seg.Kind.Interactive():
		return Action{Kind: ActionNone}
	case !seg.Kind.Openable():
		return Action{Kind: ActionFilter, Value: seg.Text, Entity: seg}
	case seg.Kind == annotate.Email:
		return Action{Kind: ActionMailto, Value: "mailto:" + seg.Text, Entity: seg}
	default:
		return Action{Kind: ActionOpenURL, Value: Href(seg.Text), Entity: seg}
	}
}

// Href turns a link entity into an openable URL; bare www. hosts get https://.
func Href(link string) string {
	if strings.HasPrefix(strings.ToLower(link), "www.") {
		return "https://" + link
	}
	return link
}
