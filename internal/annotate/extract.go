package annotate

import (
	"errors"
	"fmt"
	"strings"
)

// Extracted groups entity texts by kind. Mentions and hashtags drop their sigil.
type Extracted struct {
	Mentions []string `json:"mentions"`
	Hashtags []string `json:"hashtags"`
	Emails   []string `json:"emails"`
	Links    []string `json:"links"`
}

// Extract collects the entities Annotate accepts for input. Every list is non-nil.
func Extract(input string) Extracted {
	out := Extracted{
		Mentions: []string{},
		Hashtags: []string{},
		Emails:   []string{},
		Links:    []string{},
	}
	for _, s := range Entities(input) {
		switch s.Kind {
		case Mention:
			out.Mentions = append(out.Mentions, strings.TrimPrefix(s.Text, "@"))
		case Hashtag:
			out.Hashtags = append(out.Hashtags, strings.TrimPrefix(s.Text, "#"))
		case Email:
			out.Emails = append(out.Emails, s.Text)
		case Link:
			out.Links = append(out.Links, s.Text)
		}
	}
	return out
}

var errEmptySegment = errors.New("empty segment")

// Validate checks that segs tile input: ordered, contiguous, non-empty, lossless,
// with no two plain segments next to each other.
func Validate(input string, segs []Segment) error {
	if input == "" {
		if len(segs) != 0 {
			return fmt.Errorf("empty input produced %d segments", len(segs))
		}
		return nil
	}
	if len(segs) == 0 {
		return errors.New("no segments for non-empty input")
	}

	pos := 0
	for i, s := range segs {
		if s.Start != pos {
			return fmt.Errorf("segment %d starts at %d, want %d", i, s.Start, pos)
		}
		if s.End <= s.Start {
			return fmt.Errorf("segment %d [%d,%d): %w", i, s.Start, s.End, errEmptySegment)
		}
		if s.End > len(input) {
			return fmt.Errorf("segment %d ends at %d past input length %d", i, s.End, len(input))
		}
		if input[s.Start:s.End] != s.Text {
			return fmt.Errorf("segment %d text %q does not match input[%d:%d]", i, s.Text, s.Start, s.End)
		}
		if i > 0 && s.Kind == Plain && segs[i-1].Kind == Plain {
			return fmt.Errorf("segments %d and %d are both plain", i-1, i)
		}
		pos = s.End
	}
	if pos != len(input) {
		return fmt.Errorf("segments cover %d of %d bytes", pos, len(input))
	}
	return nil
}
