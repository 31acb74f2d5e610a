package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/signal-research/internal/model"
)

type replacement struct {
	re   *regexp.Regexp
	with string
}

func applyAll(s string, rules []replacement) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.with)
	}
	return s
}

func drop(pattern string) replacement {
	return replacement{re: regexp.MustCompile(pattern)}
}

func swap(pattern, with string) replacement {
	return replacement{re: regexp.MustCompile(pattern), with: with}
}

var terminalRe = regexp.MustCompile(`[.!?]$`)

var (
	connectiveRule = drop(`(?i)(?:additionally|furthermore|moreover|in addition|besides),?\s+`)
	emphasisRule   = drop(`(?i)(?:specifically|particularly|especially|in particular),?\s+`)
	frequencyRule  = drop(`(?i)(?:generally|typically|usually|commonly|frequently|often),?\s+`)
	noteworthyRule = drop(`(?i)it is (?:important|worth noting|notable|significant) (?:that|to note)?,?\s*`)
	summaryRules   = []replacement{
		drop(`(?i)notably,?\s*`),
		drop(`(?i)in conclusion,?\s*`),
		drop(`(?i)to summarize,?\s*`),
		drop(`(?i)in summary,?\s*`),
	}
)

var polishRules = append([]replacement{connectiveRule, emphasisRule, frequencyRule, noteworthyRule}, summaryRules...)

// Polish removes filler connectives and makes sure the text ends with
// terminal punctuation.
func Polish(content string) string {
	out := applyAll(content, polishRules)
	if !terminalRe.MatchString(out) {
		out += "."
	}
	return out
}

var displayRules = append(append([]replacement{
	drop(`(?i)sources:?\s*perplexity`),
	drop(`(?i)sources:?\s*exa`),
	drop(`(?i)according to perplexity,?\s*`),
	drop(`(?i)according to exa,?\s*`),
	drop(`(?i)perplexity (?:reports|indicates|states|says|suggests|notes),?\s*`),
	drop(`(?i)exa (?:reports|indicates|states|says|suggests|notes),?\s*`),
	drop(`(?i)research (?:shows|indicates|suggests|demonstrates|reveals),?\s*`),
	drop(`(?i)studies (?:show|indicate|suggest|demonstrate|reveal),?\s*`),
	noteworthyRule,
}, summaryRules...),
	drop(`\*\*`),
	drop(`\*`),
	drop(`#{1,6}\s`),
	drop("`"),
)

var (
	newlinesRe      = regexp.MustCompile(`\n+`)
	displayBulletRe = regexp.MustCompile(`^\s*[-•*]\s`)
	fragmentSplitRe = regexp.MustCompile(`[;,]\s+`)
)

// DisplayBullets prepares content for terminal output: provider mentions,
// filler phrases and markdown markers are removed and every substantive
// line becomes a "• " bullet. Long single-paragraph content is broken at
// commas and semicolons.
func DisplayBullets(content string) []string {
	if content == "" {
		return nil
	}
	cleaned := applyAll(content, displayRules)

	var bullets []string
	for _, p := range newlinesRe.Split(cleaned, -1) {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "* ") {
			text := strings.TrimSpace(displayBulletRe.ReplaceAllString(p, ""))
			if text != "" {
				bullets = append(bullets, bullet+Terminate(text))
			}
			continue
		}
		if utf8.RuneCountInString(trimmed) > 10 {
			bullets = append(bullets, bullet+Terminate(trimmed))
		}
	}

	if len(bullets) <= 1 && utf8.RuneCountInString(cleaned) > 100 {
		fragments := fragmentSplitRe.Split(cleaned, -1)
		if len(fragments) > 1 {
			var out []string
			for _, f := range fragments {
				f = strings.TrimSpace(f)
				if utf8.RuneCountInString(f) > 15 {
					out = append(out, bullet+Terminate(Capitalize(f)))
				}
			}
			return out
		}
	}
	return bullets
}

var condenseRules = []replacement{
	drop(`(?i)(?:it is|there is|there are) (?:important|worth noting|notable|significant) that\s+`),
	drop(`(?i)it (?:can|should|may|might|could) be noted that\s+`),
	connectiveRule,
	emphasisRule,
	frequencyRule,
	drop(`(?i)(?:for example|for instance|such as),?\s+`),
	drop(`(?i)\b(?:very|extremely|significantly|substantially|considerably)\s+`),
	swap(`(?i)\bin order to\b`, "to"),
	swap(`(?i)\bin the context of\b`, "in"),
	swap(`(?i)\bwith (?:regards|respect) to\b`, "regarding"),
	swap(`(?i)\bon the (?:basis|grounds) of\b`, "based on"),
	swap(`(?i)\bat this (?:time|point in time|moment|juncture)\b`, "now"),
	swap(`(?i)\bin the event that\b`, "if"),
	swap(`(?i)\bin spite of the fact that\b`, "although"),
	swap(`(?i)\bdue to the fact that\b`, "because"),
	swap(`(?i)\bin the near future\b`, "soon"),
}

const condenseLimit = 130

// Condense shortens a bullet with plain-language substitutions and cuts it
// near 130 characters at a sentence or clause boundary.
func Condense(text string) string {
	out := applyAll(text, condenseRules)

	if len(out) > condenseLimit {
		cut := max(
			lastIndexBefore(out, ". ", condenseLimit),
			lastIndexBefore(out, "? ", condenseLimit),
			lastIndexBefore(out, "! ", condenseLimit),
			lastIndexBefore(out, ", ", 120),
		)
		switch {
		case cut > 60 && out[cut] == '.':
			out = out[:cut+1]
		case cut > 60:
			out = out[:cut+1] + "..."
		default:
			out = truncateRunes(out, condenseLimit) + "..."
		}
	}

	if !terminalRe.MatchString(out) {
		out += "."
	}
	return out
}

// lastIndexBefore returns the last index of sep that starts at or before pos.
func lastIndexBefore(s, sep string, pos int) int {
	end := min(len(s), pos+len(sep))
	return strings.LastIndex(s[:end], sep)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var providerTitleRes = map[model.Provider]*regexp.Regexp{
	model.ProviderPerplexity: regexp.MustCompile(`(?i)\b(?:perplexity\.ai|perplexity\s+ai|perplexity)\b`),
	model.ProviderExa:        regexp.MustCompile(`(?i)\b(?:exa\.ai|exa\s+ai|exa\s+search|exa)\b`),
}

// CleanTitle replaces mentions of the provider's own name with "Research".
func CleanTitle(title string, provider model.Provider) string {
	re, ok := providerTitleRes[provider]
	if !ok {
		return title
	}
	return re.ReplaceAllString(title, "Research")
}
