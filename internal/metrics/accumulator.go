package metrics

import "github.com/sparkdata/sparkdata-go/internal/models"

// maxRecords caps how many per-row normalized views a summary carries.
// Rows past the cap still count toward totals; the cap bounds response
// size, it does not drop data.
const maxRecords = 25

// Accumulator folds paginated chunks of raw rows into running totals.
// Feed it chunks in arrival order with AddChunk, then call Summarize
// once the stream is exhausted. Memory use is bounded by the current
// chunk, the totals, and the capped record list.
type Accumulator struct {
	impressions int64
	clicks      int64
	spendUSD    float64
	conversions float64
	records     []models.NormalizedMetricRow
}

func NewAccumulator() *Accumulator {
	return &Accumulator{records: make([]models.NormalizedMetricRow, 0, maxRecords)}
}

// AddChunk normalizes each row of one upstream chunk and folds it into
// the running totals. Spend accumulates the per-row rounded value so
// totals agree with the records shown.
func (a *Accumulator) AddChunk(rows []models.RawMetricRow) {
	for _, r := range rows {
		n := Normalize(r)
		a.impressions += r.Impressions
		a.clicks += r.Clicks
		a.spendUSD += n.SpendUSD
		a.conversions += r.Conversions
		if len(a.records) < maxRecords {
			a.records = append(a.records, n)
		}
	}
}

// Records returns the retained per-row views, at most maxRecords.
func (a *Accumulator) Records() []models.NormalizedMetricRow {
	return a.records
}

// Summarize computes aggregate ratios from the totals rather than by
// averaging per-row ratios, which would weight sparse days incorrectly.
// ROAS is set only when both adSpend and totalRevenue are supplied and
// adSpend is positive.
func (a *Accumulator) Summarize(adSpend, totalRevenue *float64) models.AggregateSummary {
	s := models.AggregateSummary{
		Impressions: a.impressions,
		Clicks:      a.clicks,
		SpendUSD:    round2(a.spendUSD),
		Conversions: a.conversions,
	}
	if a.impressions > 0 {
		s.CTR = round2(float64(a.clicks) / float64(a.impressions) * 100)
		s.CPM = round2(a.spendUSD / float64(a.impressions) * 1000)
	}
	if a.clicks > 0 {
		s.CPC = round2(a.spendUSD / float64(a.clicks))
	}
	if adSpend != nil && totalRevenue != nil && *adSpend > 0 {
		roas := round2(*totalRevenue / *adSpend)
		s.ROAS = &roas
	}
	return s
}
