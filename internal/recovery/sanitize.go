// Package recovery turns raw oracle output into a parsed JSON value.
//
// Sanitize isolates the JSON-looking span of a response. Engine then runs an
// ordered chain of repair stages over it until one of them yields text that
// encoding/json accepts.
package recovery

import (
	"regexp"
	"strings"
)

var (
	jsonFence = regexp.MustCompile("(?s)```[ \\t]*(?:json|JSON)[ \\t]*\\r?\\n?(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")
)

// Sanitize strips markdown fences and chatter around a JSON object.
//
// A fence labelled json wins over an unlabelled one. A response that opens a
// fence but never closes it loses the fence line. The result is the span from
// the first '{' to the last '}', or to the end of the text when the object was
// cut off. Text without any '{' is returned trimmed.
func Sanitize(text string) string {
	s := strings.TrimSpace(text)

	if m := jsonFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	} else if m := anyFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	} else if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimLeft(s, "`")
		}
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "json") || strings.HasPrefix(s, "JSON") {
		s = strings.TrimSpace(s[len("json"):])
	}

	return braceSpan(s)
}

// braceSpan returns s from its first '{' to its last '}'. Without a closing
// brace after the opening one the span runs to the end of s.
func braceSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}
