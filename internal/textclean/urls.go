package textclean

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	basicURLRe    = regexp.MustCompile(`https?://[^\s)<>"']+`)
	markdownURLRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^\s)]+)\)`)
	bracketURLRe  = regexp.MustCompile(`\[([^\]]*)(https?://[^\s\]]+)([^\]]*)\]`)
	parenURLRe    = regexp.MustCompile(`\(([^)]*)(https?://[^\s)]+)([^)]*)\)`)

	trailingPunctRe = regexp.MustCompile(`[,."':;]+$`)

	referenceHeaderRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)references:?\s*\n([\s\S]+)$`),
		regexp.MustCompile(`(?i)sources:?\s*\n([\s\S]+)$`),
		regexp.MustCompile(`(?i)bibliography:?\s*\n([\s\S]+)$`),
	}
	bracketNumberRe = regexp.MustCompile(`\[\d+\]`)
	anyURLRe        = regexp.MustCompile(`https?://`)

	numberedCitationRe = regexp.MustCompile(`\[(\d+)\]\s*([^\[.]+)(?:\.|$)`)
	referenceMarkerRe  = regexp.MustCompile(`\[\s*(\d+)\s*\]`)
	referenceURLRe     = regexp.MustCompile(`https?://[^\s,]+`)
	trailingURLLabelRe = regexp.MustCompile(`(?i)\s*URL:?\s*$`)

	titleBeforeRe = regexp.MustCompile(`(?:["“”']([^"“”']+)["“”']|([^,.;:]+))\s*(?::|–|-|,|\.)\s*$`)
)

// referenceTailLines is how many trailing lines are inspected when content
// has no explicit references header.
const referenceTailLines = 15

// titleWindow is how many bytes before a URL are searched for its title.
const titleWindow = 100

// ExtractURLs returns every http(s) URL mentioned in content, including
// markdown links and URLs wrapped in brackets or parentheses. Trailing
// punctuation is trimmed and duplicates removed in first-seen order.
func ExtractURLs(content string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		u = trailingPunctRe.ReplaceAllString(u, "")
		if !strings.HasPrefix(u, "http") || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	for _, u := range basicURLRe.FindAllString(content, -1) {
		add(u)
	}
	for _, m := range markdownURLRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range bracketURLRe.FindAllStringSubmatch(content, -1) {
		add(m[2])
	}
	for _, m := range parenURLRe.FindAllStringSubmatch(content, -1) {
		add(m[2])
	}
	return out
}

// ReferencesSection returns the text after the first "references:",
// "sources:" or "bibliography:" header. Without a header, the last 15 lines
// are returned when they contain both a [n] marker and a URL. Otherwise "".
func ReferencesSection(content string) string {
	for _, re := range referenceHeaderRes {
		if m := re.FindStringSubmatch(content); m != nil && m[1] != "" {
			return m[1]
		}
	}

	lines := strings.Split(content, "\n")
	tail := strings.Join(lines[max(0, len(lines)-referenceTailLines):], "\n")
	if bracketNumberRe.MatchString(tail) && anyURLRe.MatchString(tail) {
		return tail
	}
	return ""
}

// HasNumberedCitations reports whether content carries "[n] Text" citations.
func HasNumberedCitations(content string) bool {
	return numberedCitationRe.MatchString(content)
}

// Reference is a single "[n] Title. Publisher. URL: ..." entry.
type Reference struct {
	Num   int
	Title string
	URL   string
}

// ParseReferences splits a references section into its numbered entries.
// An entry's text runs to the next marker or the first '[' after it. URL is
// the first http(s) link in the entry and Title is the rest of the text.
func ParseReferences(section string) []Reference {
	marks := referenceMarkerRe.FindAllStringSubmatchIndex(section, -1)
	var out []Reference
	for i, m := range marks {
		end := len(section)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		text := section[m[1]:end]
		if j := strings.IndexByte(text, '['); j >= 0 {
			text = text[:j]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		num, _ := strconv.Atoi(section[m[2]:m[3]])
		ref := Reference{Num: num, Title: text}
		if u := referenceURLRe.FindString(text); u != "" {
			ref.Title = strings.TrimSpace(strings.Replace(text, u, "", 1))
			ref.Title = trailingURLLabelRe.ReplaceAllString(ref.Title, "")
			ref.URL = strings.TrimRight(u, `.;:)'"`)
		}
		out = append(out, ref)
	}
	return out
}

// TitleBefore looks at the text just before the first mention of url and
// returns the quoted phrase or trailing clause that introduces it, or "".
func TitleBefore(content, url string) string {
	idx := strings.Index(content, url)
	if idx <= 0 {
		return ""
	}
	start := max(0, idx-titleWindow)
	for start < idx && !utf8.RuneStart(content[start]) {
		start++
	}

	m := titleBeforeRe.FindStringSubmatch(content[start:idx])
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}
