package source

import (
	"fmt"
	"time"

	"github.com/sells-group/signal-research/internal/model"
)

type mockEntry struct {
	source     string
	template   string
	confidence float64
	url        string
}

var perplexityMocks = []mockEntry{
	{
		source:     "Market Trends Analysis",
		template:   `Market analysis for "%s" shows promising growth trends in the next quarter. Consumer research indicates a 23%% increase in adoption rates across key demographics. The market valuation is currently estimated at $3.7B with projected YoY growth of 17.4%%. Leading industry analysts predict continued expansion driven by technological advances and shifting consumer preferences toward sustainable solutions.`,
		confidence: 0.85,
		url:        "https://example.com/market-report",
	},
	{
		source:     "Competitive Landscape Report",
		template:   `Competitor landscape for "%s" is becoming more consolidated with 3 major players dominating 62%% of market share. Emerging startups are disrupting traditional business models through innovative approaches to distribution and customer engagement. Venture capital investment in the sector reached $1.2B in Q2, a 34%% increase from the previous year. Regional analysis shows particularly strong growth in APAC markets at 28%% CAGR.`,
		confidence: 0.76,
		url:        "https://example.com/research/market-trends",
	},
	{
		source:     "Industry Innovation Review",
		template:   `A comprehensive analysis of "%s" reveals significant innovation across the value chain. Technology adoption has increased 34%% YoY, with AI implementations showing the strongest growth at 42%%. Market leaders are investing an average of 11.2%% of revenue in R&D, compared to the industry average of 7.6%%. These investments are primarily directed toward sustainability initiatives and digital transformation projects.`,
		confidence: 0.82,
		url:        "https://example.com/industry-innovation",
	},
	{
		source:     "Consumer Behavior Insights",
		template:   `Recent survey data on "%s" indicates a significant shift in consumer preferences. 68%% of respondents prioritize sustainable practices when making purchasing decisions, up from 53%% last year. Brand loyalty metrics show that companies perceived as industry leaders in sustainability enjoy 2.4x higher retention rates. The 18-34 demographic shows the strongest alignment with these values, representing a critical target market for future growth.`,
		confidence: 0.79,
		url:        "https://example.com/consumer-insights",
	},
	{
		source:     "Regulatory Landscape Overview",
		template:   `The regulatory environment surrounding "%s" continues to evolve rapidly. New legislation in key markets will impact operational standards by Q3. Compliance requirements are expected to increase by 28%%, with particular focus on environmental impact reporting. Forward-thinking organizations are already implementing governance frameworks that exceed minimum standards, positioning them advantageously for upcoming regulatory changes.`,
		confidence: 0.81,
		url:        "https://example.com/regulatory-trends",
	},
}

var exaMocks = []mockEntry{
	{
		source:     "Industry Research Report",
		template:   `Primary research indicates "%s" market size is approximately $4.2B with CAGR of 14.5%%. The industry has seen significant growth in adoption across retail, manufacturing, and service sectors, with sustainability metrics showing positive impact on both cost reduction and consumer perception. Leading organizations implementing these practices have reported 15-20%% improvements in resource utilization.`,
		confidence: 0.92,
		url:        "https://www.example.com/market-research",
	},
	{
		source:     "Customer Satisfaction Survey",
		template:   `Recent survey data shows customer satisfaction for "%s" products has increased by 12%% YoY. Consumer preference studies indicate that 68%% of respondents consider sustainability practices a "very important" factor in purchasing decisions. Brand loyalty among environmentally conscious consumers shows 2.3x higher retention rates compared to the general market.`,
		confidence: 0.78,
		url:        "https://www.example.com/market-research/customer-satisfaction",
	},
	{
		source:     "Technology Innovation Report",
		template:   `Industry analysts predict "%s" sector disruption due to emerging technologies in Q3. Machine learning applications are revolutionizing how companies approach resource optimization, with early adopters reporting 30%% efficiency improvements. Blockchain solutions for supply chain transparency have reached market maturity, with implementation costs dropping 45%% over the past 18 months.`,
		confidence: 0.65,
		url:        "https://www.example.com/industry-analysis/tech-disruption",
	},
}

// MockPerplexity returns the five canned Perplexity items for query.
func MockPerplexity(query string, now time.Time) []model.ResearchItem {
	return mockItems(perplexityMocks, model.ProviderPerplexity, query, now)
}

// MockExa returns the three canned Exa items for query.
func MockExa(query string, now time.Time) []model.ResearchItem {
	return mockItems(exaMocks, model.ProviderExa, query, now)
}

func mockItems(entries []mockEntry, provider model.Provider, query string, now time.Time) []model.ResearchItem {
	items := make([]model.ResearchItem, len(entries))
	for i, e := range entries {
		items[i] = model.ResearchItem{
			Source:     e.source,
			Content:    fmt.Sprintf(e.template, query),
			Confidence: e.confidence,
			Timestamp:  now.UTC(),
			URL:        e.url,
			FetchedBy:  provider,
		}
	}
	return items
}
