package agent

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ExtractThink returns the contents of every <think>...</think> span in
// text, in order. An unterminated <think> captures through the end of
// the text, since models are routinely cut off mid-thought.
func ExtractThink(text string) []string {
	var spans []string
	for {
		start := strings.Index(text, thinkOpen)
		if start == -1 {
			return spans
		}
		rest := text[start+len(thinkOpen):]
		end := strings.Index(rest, thinkClose)
		if end == -1 {
			if span := strings.TrimSpace(rest); span != "" {
				spans = append(spans, span)
			}
			return spans
		}
		if span := strings.TrimSpace(rest[:end]); span != "" {
			spans = append(spans, span)
		}
		text = rest[end+len(thinkClose):]
	}
}

// StripThink removes every <think>...</think> span from text. The
// cleaned text is what the end user sees; reasoning only travels
// through the private channel.
func StripThink(text string) string {
	for {
		start := strings.Index(text, thinkOpen)
		if start == -1 {
			return strings.TrimSpace(text)
		}
		rest := text[start+len(thinkOpen):]
		end := strings.Index(rest, thinkClose)
		if end == -1 {
			return strings.TrimSpace(text[:start])
		}
		text = text[:start] + rest[end+len(thinkClose):]
	}
}
