package batch

import "strings"

// requestMarker introduces one identifier's section in a combined
// response. The expected format is a line of exactly
// "### Request: <identifier>" followed by that identifier's content up to
// the next marker or end of text.
const requestMarker = "### Request:"

// FallbackSectionKey is the reserved key under which the entire response
// text is returned when no markers are present. The fallback is documented
// behavior, not an error: every identifier in the batch then receives the
// full text.
const FallbackSectionKey = "full_response"

// SplitResponseSections splits a combined response into per-identifier
// sections.
func SplitResponseSections(content string) map[string]string {
	sections := make(map[string]string)

	var (
		currentID string
		body      []string
	)
	flush := func() {
		if currentID != "" {
			sections[currentID] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		if id, ok := parseMarker(line); ok {
			flush()
			currentID = id
			continue
		}
		body = append(body, line)
	}
	flush()

	if len(sections) == 0 {
		sections[FallbackSectionKey] = content
	}
	return sections
}

func parseMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, requestMarker) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(trimmed, requestMarker))
	if id == "" {
		return "", false
	}
	return id, true
}
