package relay

import "strings"

// StripCodeFence removes an optional Markdown code fence around the model's
// reply. Gemini often wraps JSON output as ```json ... ``` even when asked
// for JSON only; the fence and its language label must go before parsing.
// Text without a leading fence is returned trimmed but otherwise untouched.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop a language label such as "json" directly after the fence.
		i := 0
		for i < len(s) && isLabelByte(s[i]) {
			i++
		}
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

func isLabelByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
