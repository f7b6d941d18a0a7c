package recovery

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	shortColor  = regexp.MustCompile(`("color"\s*:\s*"#?)([0-9A-Fa-f]{1,5})("|$)`)
	danglingKey = regexp.MustCompile(`(\{|,)\s*"(?:[^"\\]|\\.)*"\s*$`)
)

// scanState is what is left open at the end of a piece of JSON text.
type scanState struct {
	inString bool
	escaped  bool   // last byte inside the open string was a lone backslash
	stack    []byte // open '{' and '[' in order
}

func scan(s string) scanState {
	var st scanState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case st.escaped:
				st.escaped = false
			case c == '\\':
				st.escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}', ']':
			if n := len(st.stack); n > 0 {
				st.stack = st.stack[:n-1]
			}
		}
	}
	return st
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// RepairWhitespace escapes raw control characters inside strings and folds
// line breaks that follow ':' or ',' outside strings into a single space.
func RepairWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var last byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			case c < 0x20:
				fmt.Fprintf(&b, `\u%04x`, c)
			default:
				b.WriteByte(c)
			}
			continue
		}

		if isSpace(c) {
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			run := s[i:j]
			if (last == ':' || last == ',') && strings.ContainsAny(run, "\r\n") {
				b.WriteByte(' ')
			} else {
				b.WriteString(run)
			}
			i = j - 1
			continue
		}

		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
		last = c
	}
	return b.String()
}

// RepairTruncation completes JSON that was cut off mid-stream: it pads short
// hex colours, closes an open string, drops a key that never got its value,
// appends the missing closers and removes trailing commas.
func RepairTruncation(s string) string {
	s = padHexColors(s)
	s = closeOpenString(s)
	s = dropDanglingMember(s)
	s = closeStructures(s)
	return stripTrailingCommas(s)
}

func padHexColors(s string) string {
	return shortColor.ReplaceAllStringFunc(s, func(m string) string {
		sub := shortColor.FindStringSubmatch(m)
		return sub[1] + sub[2] + strings.Repeat("0", 6-len(sub[2])) + sub[3]
	})
}

func closeOpenString(s string) string {
	st := scan(s)
	if !st.inString {
		return s
	}
	if st.escaped {
		s = s[:len(s)-1]
	}
	cut := len(s)
	for cut > 0 && strings.IndexByte("}], \t\r\n", s[cut-1]) >= 0 {
		cut--
	}
	return s[:cut] + `"` + s[cut:]
}

func dropDanglingMember(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, ":") {
		return trimmed + "null"
	}

	st := scan(trimmed)
	if st.inString || len(st.stack) == 0 || st.stack[len(st.stack)-1] != '{' {
		return s
	}
	loc := danglingKey.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return s
	}
	// Keep an opening brace, drop a separating comma.
	if trimmed[loc[2]:loc[3]] == "{" {
		return trimmed[:loc[3]]
	}
	return trimmed[:loc[2]]
}

func closeStructures(s string) string {
	st := scan(s)
	if st.inString || len(st.stack) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
