// Package annotate splits free-form task text into typed segments: plain text and
// the entities the UI highlights (emails, links, @mentions and #hashtags).
//
// Annotate is total over all strings and has no side effects. Offsets are byte
// offsets into the input, so input[s.Start:s.End] == s.Text for every segment and
// the segments of one call tile the input exactly.
//
// All functions are safe for concurrent use.
package annotate

import (
	"regexp"
	"sort"
	"strings"
)

// Segment is a typed, half-open slice [Start, End) of the annotated input.
type Segment struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (s Segment) Len() int { return s.End - s.Start }

type grammar struct {
	kind Kind
	re   *regexp.Regexp
	// group selects the submatch that forms the span; 0 is the whole match.
	group int
}

// space is every rune counted as whitespace: ASCII whitespace, vertical tab, the
// Unicode separators (NBSP, U+3000, line and paragraph separators) and the BOM.
const space = `\s\v\p{Z}\x{FEFF}`

// Grammars are listed in tie-break priority order. Mentions and hashtags must start
// the input or follow whitespace; that whitespace stays outside the entity span.
var grammars = []grammar{
	{kind: Email, re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{kind: Link, re: regexp.MustCompile(`(?:https?|ftp)://[^` + space + `<]+|www\.[^` + space + `<]+\.[^` + space + `<]+`)},
	{kind: Mention, re: regexp.MustCompile(`(?:^|[` + space + `])(@[^` + space + `]+)`), group: 1},
	{kind: Hashtag, re: regexp.MustCompile(`(?:^|[` + space + `])(#[^` + space + `]+)`), group: 1},
}

type candidate struct {
	kind     Kind
	priority int
	start    int
	end      int
}

// Annotate returns the ordered, contiguous segments of input. An empty input
// yields an empty (non-nil) slice.
func Annotate(input string) []Segment {
	segs := make([]Segment, 0, 4)
	if input == "" {
		return segs
	}

	last := 0
	for _, c := range resolve(scan(input)) {
		if c.start > last {
			segs = append(segs, Segment{Kind: Plain, Text: input[last:c.start], Start: last, End: c.start})
		}
		segs = append(segs, Segment{Kind: c.kind, Text: input[c.start:c.end], Start: c.start, End: c.end})
		last = c.end
	}
	if last < len(input) {
		segs = append(segs, Segment{Kind: Plain, Text: input[last:], Start: last, End: len(input)})
	}
	return segs
}

// Entities returns only the non-plain segments of input.
func Entities(input string) []Segment {
	var out []Segment
	for _, s := range Annotate(input) {
		if s.Kind != Plain {
			out = append(out, s)
		}
	}
	return out
}

// Join concatenates segment texts in order.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// scan runs every grammar over the whole input independently. Candidates of
// different kinds may overlap.
func scan(input string) []candidate {
	var out []candidate
	for prio, g := range grammars {
		for _, loc := range g.re.FindAllStringSubmatchIndex(input, -1) {
			start, end := loc[2*g.group], loc[2*g.group+1]
			if start < 0 || start >= end {
				continue
			}
			out = append(out, candidate{kind: g.kind, priority: prio, start: start, end: end})
		}
	}
	return out
}

// resolve orders candidates by start (ties by grammar priority) and keeps each one
// only if it begins at or after the end of the last kept candidate. Rejected
// candidates are dropped, not trimmed.
func resolve(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].priority < cands[j].priority
	})

	kept := cands[:0]
	lastEnd := 0
	for _, c := range cands {
		if c.start < lastEnd {
			continue
		}
		kept = append(kept, c)
		lastEnd = c.end
	}
	return kept
}
