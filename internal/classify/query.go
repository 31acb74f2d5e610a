package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/signal-research/internal/model"
)

var nonWordRe = regexp.MustCompile(`\W+`)

var stopWords = map[string]bool{
	"about": true, "there": true, "their": true, "would": true,
	"should": true, "could": true, "while": true, "these": true,
	"those": true, "have": true, "this": true, "that": true,
}

// DeriveQuery guesses a topic from the five most frequent content words.
// Ties keep first-appearance order. It returns "" when there is nothing to
// go on.
func DeriveQuery(items []model.ResearchItem) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		for _, w := range nonWordRe.Split(strings.ToLower(it.Content), -1) {
			if len(w) <= 3 || stopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	if len(order) == 0 {
		return ""
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 5 {
		order = order[:5]
	}
	return "Latest market trends about " + strings.Join(order, " ")
}
