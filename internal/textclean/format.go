// Package textclean holds the heuristics that turn raw provider and LLM text
// into readable signal bullets and noise paragraphs.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const bullet = "• "

var (
	statPrefixRe     = regexp.MustCompile(`(?m)^Statistical Analysis:\s*`)
	citationMarkerRe = regexp.MustCompile(`\[\d+\]\s*`)
	lineSplitRe      = regexp.MustCompile(`[\n\r]+`)
	urlLineRe        = regexp.MustCompile(`^https?://`)
	confidenceLineRe = regexp.MustCompile(`^Confidence: \d+%$`)
	bulletPrefixRe   = regexp.MustCompile(`^[•\-*]\s*`)

	placeholderURLRe  = regexp.MustCompile(`https?://[^\s.]+\.\S+`)
	trailerSectionRes = []*regexp.Regexp{
		regexp.MustCompile(`\n+Sources:[\s\S]*$`),
		regexp.MustCompile(`\n+References:[\s\S]*$`),
		regexp.MustCompile(`\n+URLs?:[\s\S]*$`),
	}
	referencedAsRe      = regexp.MustCompile(`Referenced as (?:\[\d+\]|[^.]+) in the analysis\.\s*`)
	referencedEmptyRe   = regexp.MustCompile(`Referenced as in the analysis\.\s*`)
	confidenceRe        = regexp.MustCompile(`Confidence: \d+%\s*`)
	lineBulletRe        = regexp.MustCompile(`(?m)^[•\-*]\s*`)
	paragraphSplitRe    = regexp.MustCompile(`\n{2,}`)
	multiSpaceRe        = regexp.MustCompile(`\s{2,}`)
	ellipsisMarkerRe    = regexp.MustCompile(`\[\s*(?:\.\.\.|…)\s*\]`)
	spaceBeforePeriodRe = regexp.MustCompile(`[ \t]+\.`)
	doublePeriodRe      = regexp.MustCompile(`\.[ \t]+\.`)
	spaceRunRe          = regexp.MustCompile(`[ \t]{2,}`)
)

// Placeholder text written by the Exa fetcher for sources it could not read.
const (
	unavailableMarker = "Content summary not available for this resource"
	visitMarker       = "Please visit the source directly:"
)

// FormatSignal rewrites content as a list of "• " bullets, one per line.
func FormatSignal(content string) string {
	if content == "" {
		return ""
	}

	content = statPrefixRe.ReplaceAllString(content, "")
	content = citationMarkerRe.ReplaceAllString(content, "")

	if strings.ContainsAny(content, "•-*") {
		return formatBulletLines(content)
	}

	var bullets []string
	for _, paragraph := range lineSplitRe.Split(content, -1) {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(paragraph) < 100 {
			bullets = append(bullets, Terminate(bullet+Capitalize(trimmed)))
			continue
		}
		for _, sentence := range SplitSentences(paragraph) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			bullets = append(bullets, Terminate(bullet+Capitalize(sentence)))
		}
	}
	return strings.Join(bullets, "\n")
}

func formatBulletLines(content string) string {
	var out []string
	for _, line := range lineSplitRe.Split(content, -1) {
		line = strings.TrimSpace(line)
		if line == "" || urlLineRe.MatchString(line) || confidenceLineRe.MatchString(line) {
			continue
		}

		if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			text := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(line, ""))
			if text == "" {
				continue
			}
			line = bullet + Capitalize(text)
			if utf8.RuneCountInString(line) > 10 {
				line = Terminate(line)
			}
		} else if utf8.RuneCountInString(line) > 10 {
			line = Terminate(bullet + Capitalize(line))
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// FormatNoise reflows content into plain paragraphs with citation debris,
// repeated sentences and bullet markers removed.
func FormatNoise(content string) string {
	if content == "" {
		return ""
	}

	if strings.Contains(content, unavailableMarker) || strings.Contains(content, visitMarker) {
		url := placeholderURLRe.FindString(content)
		return "This resource requires direct access to view its content. You can find it at: " + url
	}

	for _, re := range trailerSectionRes {
		content = re.ReplaceAllString(content, "")
	}
	content = citationMarkerRe.ReplaceAllString(content, "")
	content = referencedAsRe.ReplaceAllString(content, "")
	content = referencedEmptyRe.ReplaceAllString(content, "")
	content = confidenceRe.ReplaceAllString(content, "")

	for {
		next := CollapseRepeats(content)
		if next == content {
			break
		}
		content = next
	}

	content = lineBulletRe.ReplaceAllString(content, "")

	var paragraphs []string
	for _, p := range paragraphSplitRe.Split(content, -1) {
		p = strings.TrimSpace(p)
		if p == "" || urlLineRe.MatchString(p) {
			continue
		}
		p = multiSpaceRe.ReplaceAllString(p, " ")
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if utf8.RuneCountInString(p) < 10 {
			continue
		}
		paragraphs = append(paragraphs, Terminate(Capitalize(p)))
	}

	var combined []string
	current := ""
	for _, p := range paragraphs {
		if utf8.RuneCountInString(p) < 60 && current != "" &&
			!strings.HasSuffix(current, ":") && !strings.Contains(p, "http") {
			current += " " + p
			continue
		}
		if current != "" {
			combined = append(combined, current)
		}
		current = p
	}
	if current != "" {
		combined = append(combined, current)
	}

	if len(combined) == 0 {
		var kept []string
		for _, s := range SplitSentences(strings.ReplaceAll(content, "\n", " ")) {
			s = strings.TrimSpace(s)
			if utf8.RuneCountInString(s) <= 15 {
				continue
			}
			kept = append(kept, Terminate(Capitalize(s)))
		}
		return strings.Join(kept, " ")
	}

	out := strings.Join(combined, "\n\n")
	out = ellipsisMarkerRe.ReplaceAllString(out, "")
	out = spaceBeforePeriodRe.ReplaceAllString(out, ".")
	out = doublePeriodRe.ReplaceAllString(out, ".")
	return spaceRunRe.ReplaceAllString(out, " ")
}

// CollapseRepeats replaces a sentence immediately followed by an identical
// copy of itself with a single occurrence. A candidate starts at an ASCII
// letter and runs to the next sentence terminator, with at least ten
// characters between the two.
func CollapseRepeats(s string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); i++ {
		if !isASCIILetter(s[i]) {
			continue
		}
		end := strings.IndexAny(s[i+1:], ".!?")
		if end < 0 {
			break
		}
		end += i + 1
		if utf8.RuneCountInString(s[i+1:end]) < 10 {
			continue
		}
		phrase := s[i : end+1]

		k := end + 1
		for k < len(s) && isSpace(s[k]) {
			k++
		}
		if k == end+1 || !strings.HasPrefix(s[k:], phrase) {
			continue
		}

		b.WriteString(s[last:i])
		b.WriteString(phrase)
		last = k + len(phrase)
		i = last - 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// SplitSentences splits after every '.', '!' or '?' that is followed by
// whitespace. The whitespace is dropped; the punctuation stays.
func SplitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '.' && s[i] != '!' && s[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		out = append(out, s[start:i+1])
		start = j
		i = j - 1
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Capitalize upper-cases the first letter of s, skipping a leading bullet.
func Capitalize(s string) string {
	prefix := ""
	if strings.HasPrefix(s, bullet) {
		prefix, s = bullet, s[len(bullet):]
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return prefix
	}
	return prefix + string(unicode.ToUpper(r)) + s[size:]
}

// Terminate appends a period unless s already ends with '.', '!' or '?'.
func Terminate(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
