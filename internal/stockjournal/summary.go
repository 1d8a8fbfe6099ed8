package stockjournal

// VariantSummary is the monthly roll-up for one variant: stockStart from
// the first entry in range, stockEnd from the last, totals per direction.
type VariantSummary struct {
	ProductVariantID string `json:"productVariantId"`
	ProductName      string `json:"productName"`
	VariantName      string `json:"variantName"`
	StockStart       int64  `json:"stockStart"`
	TotalIn          int64  `json:"totalIn"`
	TotalOut         int64  `json:"totalOut"`
	StockEnd         int64  `json:"stockEnd"`
}

// Summarize folds time-ascending journal entries into per-variant
// summaries, preserving first-seen variant order. It is a pure reduction;
// nothing is materialized in storage.
func Summarize(entries []Entry) []VariantSummary {
	index := make(map[string]int)
	var out []VariantSummary
	for _, e := range entries {
		i, ok := index[e.ProductVariantID]
		if !ok {
			i = len(out)
			index[e.ProductVariantID] = i
			out = append(out, VariantSummary{
				ProductVariantID: e.ProductVariantID,
				ProductName:      e.ProductName,
				VariantName:      e.VariantName,
				StockStart:       e.StockBefore,
			})
		}
		if e.Type == TypeIn {
			out[i].TotalIn += e.Quantity
		} else {
			out[i].TotalOut += e.Quantity
		}
		out[i].StockEnd = e.StockAfter
	}
	return out
}
