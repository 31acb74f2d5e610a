package cost

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gpt-4o": {Input: 2.50, Output: 10.00},
			"haiku":  {Input: 0.80, Output: 4.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Exa:        ExaRate{PerSearch: 0.005, PerContent: 0.001},
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int
		output int
		want   float64
	}{
		{"gpt-4o", "gpt-4o", 1_000_000, 100_000, 2.50 + 1.00},
		{"haiku", "haiku", 500_000, 50_000, 0.40 + 0.20},
		{"unknown model", "mystery", 1_000_000, 1_000_000, 0},
		{"zero tokens", "gpt-4o", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Tokens(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestFlatRates(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.005, calc.PerplexityQuery(), 1e-9)
	assert.InDelta(t, 0.005, calc.ExaSearch(), 1e-9)
	assert.InDelta(t, 0.015, calc.ExaContents(15), 1e-9)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()
	assert.Contains(t, rates.Models, "gpt-4o")
	assert.Contains(t, rates.Models, "claude-haiku-4-5-20251001")
	assert.Greater(t, rates.Perplexity.PerQuery, 0.0)
	assert.Greater(t, rates.Exa.PerSearch, 0.0)
}

func TestLedger_ConcurrentAdds(t *testing.T) {
	t.Parallel()
	l := NewLedger(NewCalculator(testRates()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddTokens("gpt-4o", 1_000_000, 0)
			l.Add(l.Calculator().PerplexityQuery())
		}()
	}
	wg.Wait()

	assert.InDelta(t, 50*(2.50+0.005), l.Total(), 1e-6)
}

func TestLedgerContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, LedgerFrom(ctx))
	Charge(ctx, 1.0) // no ledger, no panic

	l := NewLedger(NewCalculator(testRates()))
	ctx = WithLedger(ctx, l)
	assert.Same(t, l, LedgerFrom(ctx))

	Charge(ctx, 0.25)
	Charge(ctx, 0.25)
	assert.InDelta(t, 0.5, l.Total(), 1e-9)
}
