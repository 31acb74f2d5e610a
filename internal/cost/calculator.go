// Package cost estimates the USD spend of a research run from provider
// request counts and LLM token usage.
package cost

import (
	"context"
	"sync"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Models     map[string]ModelRate `yaml:"models" mapstructure:"models"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
	Exa        ExaRate              `yaml:"exa" mapstructure:"exa"`
}

// ModelRate is LLM token pricing in USD per million tokens.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityRate is the flat price of one chat completion.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// ExaRate prices searches and content fetches separately.
type ExaRate struct {
	PerSearch  float64 `yaml:"per_search" mapstructure:"per_search"`
	PerContent float64 `yaml:"per_content" mapstructure:"per_content"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of one LLM call. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// ExaSearch returns the cost of one Exa search.
func (c *Calculator) ExaSearch() float64 {
	return c.rates.Exa.PerSearch
}

// ExaContents returns the cost of fetching n pages of content.
func (c *Calculator) ExaContents(n int) float64 {
	return float64(n) * c.rates.Exa.PerContent
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Exa:        ExaRate{PerSearch: 0.005, PerContent: 0.001},
	}
}

// Ledger accumulates spend across concurrent calls within a run.
type Ledger struct {
	calc *Calculator

	mu    sync.Mutex
	total float64
}

// NewLedger creates an empty ledger priced by calc.
func NewLedger(calc *Calculator) *Ledger {
	return &Ledger{calc: calc}
}

// AddTokens records one LLM call and returns its cost.
func (l *Ledger) AddTokens(model string, input, output int) float64 {
	amount := l.calc.Tokens(model, input, output)
	l.Add(amount)
	return amount
}

// Add records an already-priced amount.
func (l *Ledger) Add(amount float64) {
	l.mu.Lock()
	l.total += amount
	l.mu.Unlock()
}

// Calculator exposes the pricing used by the ledger.
func (l *Ledger) Calculator() *Calculator {
	return l.calc
}

// Total returns the accumulated spend.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

type ledgerKey struct{}

// WithLedger attaches l to ctx so calls made on behalf of a run can charge it.
func WithLedger(ctx context.Context, l *Ledger) context.Context {
	return context.WithValue(ctx, ledgerKey{}, l)
}

// LedgerFrom returns the ledger attached to ctx, or nil.
func LedgerFrom(ctx context.Context) *Ledger {
	l, _ := ctx.Value(ledgerKey{}).(*Ledger)
	return l
}

// Charge adds amount to the ledger on ctx, if any.
func Charge(ctx context.Context, amount float64) {
	if l := LedgerFrom(ctx); l != nil {
		l.Add(amount)
	}
}
