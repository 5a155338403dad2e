package util

import "strings"

var honorifics = map[string]struct{}{
	"MR": {}, "MS": {}, "MRS": {}, "MSTR": {}, "MISS": {}, "DR": {},
}

// NormalizeTicketName converts ticket-style names ("SAINI / VIKAS MR") into
// the canonical "MR VIKAS SAINI" form. Blank input yields the fallback; names
// without a slash are already canonical and pass through verbatim. Extra
// slashes beyond the first are unsupported input: only the first two segments
// are used.
func NormalizeTicketName(raw, fallback string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fallback
	}
	if !strings.Contains(name, "/") {
		return name
	}

	segments := strings.Split(name, "/")
	lastPart := strings.TrimSpace(segments[0])
	rest := strings.TrimSpace(segments[1])

	tokens := strings.Fields(rest)
	title := ""
	if len(tokens) > 1 {
		if _, ok := honorifics[strings.ToUpper(tokens[len(tokens)-1])]; ok {
			title = strings.ToUpper(tokens[len(tokens)-1])
			tokens = tokens[:len(tokens)-1]
		}
	}

	parts := make([]string, 0, len(tokens)+2)
	if title != "" {
		parts = append(parts, title)
	}
	parts = append(parts, tokens...)
	if lastPart != "" {
		parts = append(parts, lastPart)
	}
	return strings.Join(parts, " ")
}
