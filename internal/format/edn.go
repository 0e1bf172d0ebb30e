package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes v as EDN. Values go through JSON first, so json tags decide the
// field names; map keys become keywords with underscores turned into dashes
// (raw_text -> :raw-text). Integral numbers print without a fraction.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return err
	}

	out := appendEDN(nil, x, pretty, 0)
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

const ednIndent = "  "

func appendEDN(dst []byte, v any, pretty bool, level int) []byte {
	switch t := v.(type) {
	case nil:
		return append(dst, "nil"...)
	case bool:
		return strconv.AppendBool(dst, t)
	case string:
		return strconv.AppendQuote(dst, t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.AppendInt(dst, i, 10)
		}
		return append(dst, t.String()...)
	case []any:
		return appendColl(dst, '[', ']', len(t), pretty, level, func(dst []byte, i int) []byte {
			return appendEDN(dst, t[i], pretty, level+1)
		})
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return appendColl(dst, '{', '}', len(keys), pretty, level, func(dst []byte, i int) []byte {
			dst = append(dst, ':')
			dst = append(dst, ednKeyword(keys[i])...)
			dst = append(dst, ' ')
			return appendEDN(dst, t[keys[i]], pretty, level+1)
		})
	default:
		return strconv.AppendQuote(dst, fmt.Sprint(v))
	}
}

// appendColl writes n elements between start and end, one per line when pretty.
func appendColl(dst []byte, start, end byte, n int, pretty bool, level int, elem func([]byte, int) []byte) []byte {
	dst = append(dst, start)
	if n == 0 {
		return append(dst, end)
	}
	for i := 0; i < n; i++ {
		switch {
		case pretty:
			dst = append(dst, '\n')
			dst = append(dst, strings.Repeat(ednIndent, level+1)...)
		case i > 0:
			dst = append(dst, ' ')
		}
		dst = elem(dst, i)
	}
	if pretty {
		dst = append(dst, '\n')
		dst = append(dst, strings.Repeat(ednIndent, level)...)
	}
	return append(dst, end)
}

func ednKeyword(s string) string {
	s = strings.TrimSpace(s)
	lead := len(s) - len(strings.TrimLeft(s, "_"))
	rest := strings.NewReplacer("_", "-", " ", "-").Replace(s[lead:])
	return s[:lead] + rest
}
