package engine

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendorbill/internal/pricing"
)

// Rounded returns a copy with every amount rounded to money scale. Totals are
// re-summed from the rounded lines so the breakdown adds up on screen.
func (r Result) Rounded() Result {
	out := Result{
		Lines: lo.Map(r.Lines, func(line Line, _ int) Line {
			line.Amount = pricing.Round(line.Amount)
			return line
		}),
		TaxAmount:       decimal.Zero,
		InclusiveAmount: decimal.Zero,
		Exempted:        r.Exempted,
	}
	for _, line := range out.Lines {
		if line.IsInclusive {
			out.InclusiveAmount = out.InclusiveAmount.Add(line.Amount)
		} else {
			out.TaxAmount = out.TaxAmount.Add(line.Amount)
		}
	}
	return out
}

// Merge folds several line results into one document-level result, keeping
// one breakdown line per tax rate.
func Merge(results ...Result) Result {
	merged := Result{}
	index := map[string]int{}
	for _, r := range results {
		for _, line := range r.Lines {
			key := line.TaxRateID.String() + "/" + line.Rate.String()
			if i, ok := index[key]; ok {
				merged.Lines[i].Amount = merged.Lines[i].Amount.Add(line.Amount)
				continue
			}
			index[key] = len(merged.Lines)
			merged.Lines = append(merged.Lines, line)
		}
		merged.TaxAmount = merged.TaxAmount.Add(r.TaxAmount)
		merged.InclusiveAmount = merged.InclusiveAmount.Add(r.InclusiveAmount)
		merged.Exempted = append(merged.Exempted, r.Exempted...)
	}
	merged.Exempted = lo.Uniq(merged.Exempted)
	if merged.Lines == nil {
		merged.Lines = []Line{}
	}
	return merged
}
