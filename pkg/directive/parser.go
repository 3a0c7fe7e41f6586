package directive

import (
	"regexp"
	"strings"
)

const (
	fenceDelimiter = "```"
	runPrefix      = "run"
)

// Compile patterns once at package level.
var (
	branchTokenRegex = regexp.MustCompile(`(?:^|[\s,])branch\s*=\s*([^\s,]+)`)
	pathTokenRegex   = regexp.MustCompile(`(?:^|[\s,])path\s*=\s*([^\s,]+)`)
	summaryRegex     = regexp.MustCompile(`(?m)^[ \t]*summary[ \t]*=[ \t]*(.*)$`)

	// headerKeyRegex matches a value that is really the next header token,
	// as in "branch= path=a.txt"
	headerKeyRegex = regexp.MustCompile(`^(?:branch|path)\s*=`)
)

// segment is the text between one pair of fence delimiters.
type segment struct {
	header string
	body   string
}

// Parse extracts directives and the summary trailer from a response.
// It is a pure function of text and never fails: segments it cannot
// classify are dropped.
func Parse(text string) Result {
	var result Result

	for _, seg := range splitSegments(text) {
		if d, ok := classify(seg); ok {
			result.Directives = append(result.Directives, d)
		}
	}

	result.Summary, result.HasSummary = ExtractSummary(text)
	return result
}

// ExtractSummary returns the remainder of the first summary trailer line
// found anywhere in text, fenced or not.
func ExtractSummary(text string) (string, bool) {
	m := summaryRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// splitSegments pairs delimiters in order of appearance. A trailing
// delimiter without a partner leaves the rest of the text unfenced.
func splitSegments(text string) []segment {
	var segments []segment

	rest := text
	for {
		open := strings.Index(rest, fenceDelimiter)
		if open < 0 {
			break
		}
		rest = rest[open+len(fenceDelimiter):]

		end := strings.Index(rest, fenceDelimiter)
		if end < 0 {
			break
		}
		segments = append(segments, newSegment(rest[:end]))
		rest = rest[end+len(fenceDelimiter):]
	}

	return segments
}

// newSegment splits raw fence content into header and body. Leading blank
// space before the header is dropped; the body is kept byte for byte.
func newSegment(raw string) segment {
	raw = strings.TrimLeft(raw, " \t\r\n")

	header, body, found := strings.Cut(raw, "\n")
	if !found {
		return segment{header: strings.TrimSpace(raw)}
	}
	return segment{header: strings.TrimSpace(header), body: body}
}

// classify maps a segment to a directive by its header.
func classify(seg segment) (Directive, bool) {
	if strings.HasPrefix(seg.header, runPrefix) {
		commands := strings.TrimSpace(seg.body)
		if commands == "" {
			return nil, false
		}
		return RunRequest{Commands: commands}, true
	}

	branch, ok := headerToken(branchTokenRegex, seg.header)
	if !ok {
		return nil, false
	}
	path, ok := headerToken(pathTokenRegex, seg.header)
	if !ok {
		return nil, false
	}

	return FileChange{Branch: branch, Path: path, Content: seg.body}, true
}

// headerToken returns the value of one key=value token. An empty value
// never borrows the following token.
func headerToken(re *regexp.Regexp, header string) (string, bool) {
	m := re.FindStringSubmatchIndex(header)
	if m == nil {
		return "", false
	}
	if headerKeyRegex.MatchString(header[m[2]:]) {
		return "", false
	}
	value := strings.TrimSpace(header[m[2]:m[3]])
	return value, value != ""
}
