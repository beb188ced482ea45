package aksara

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlock matches the first markdown code fence, with an optional
// language tag on the opening line.
var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)```")

// reasoningTags are the recognized open/close reasoning markers. Everything
// up to and including the close tag is discarded; an unmatched open tag
// discards nothing (the content may still hold the answer).
var reasoningTags = []struct{ open, close string }{
	{"<think>", "</think>"},
	{"<reasoning>", "</reasoning>"},
}

// Extract parses raw model output into an AnswerPayload. It never fails:
// the result degrades monotonically structured → text-only → empty sentinel,
// so callers are branch-free on the happy path.
//
// Ordered attempts, first success wins:
//  1. strip a leading reasoning preamble (think/reasoning tags, or a leading
//     "think:" line);
//  2. take the first fenced block as the candidate, else the whole text;
//  3. strict JSON parse for an object with an "answer" field;
//  4. relaxed parse of the first '{' … last '}' substring, for answers
//     wrapped in prose;
//  5. candidate text verbatim with empty sources;
//  6. empty sentinel when nothing remains.
func Extract(raw string) AnswerPayload {
	text := stripReasoning(raw)

	candidate := text
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	candidate = strings.TrimSpace(candidate)

	if candidate == "" {
		return AnswerPayload{Answer: "", Sources: []Source{}}
	}

	if p, ok := parseStructured(candidate); ok {
		return p
	}

	// Models sometimes wrap the JSON object in prose. Try the outermost
	// braces before giving up on structure.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if p, ok := parseStructured(candidate[start : end+1]); ok {
			return p
		}
	}

	return AnswerPayload{Answer: candidate, Sources: []Source{}}
}

// parseStructured attempts a strict JSON parse of candidate. Success requires
// an object with an "answer" field; a missing sources field yields an empty
// slice.
func parseStructured(candidate string) (AnswerPayload, bool) {
	var parsed struct {
		Answer  *string  `json:"answer"`
		Sources []Source `json:"sources"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil || parsed.Answer == nil {
		return AnswerPayload{}, false
	}
	sources := parsed.Sources
	if sources == nil {
		sources = []Source{}
	}
	return AnswerPayload{Answer: *parsed.Answer, Sources: sources}, true
}

// stripReasoning removes a leading reasoning preamble and returns the rest.
func stripReasoning(text string) string {
	s := strings.TrimSpace(text)
	for _, tag := range reasoningTags {
		// The close tag alone is enough: some models emit the preamble
		// without the opening marker.
		if idx := strings.Index(s, tag.close); idx >= 0 {
			s = s[idx+len(tag.close):]
			continue
		}
		if strings.HasPrefix(s, tag.open) {
			// Unclosed reasoning tag: drop just the marker.
			s = s[len(tag.open):]
		}
	}

	// A leading "think:" line is also a recognized preamble.
	if line, rest, found := strings.Cut(s, "\n"); found &&
		strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "think:") {
		s = rest
	}
	return strings.TrimSpace(s)
}
