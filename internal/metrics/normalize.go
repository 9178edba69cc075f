package metrics

import "github.com/sparkdata/sparkdata-go/internal/models"

// microsPerUSD converts Ads API cost_micros to dollars.
const microsPerUSD = 1_000_000

// Normalize derives spend and efficiency ratios for one raw row. Every
// division is guarded: a ratio whose denominator is zero comes back as
// 0, whether the metric was truly zero or simply unreported. That
// conflation matches the upstream reporting contract.
func Normalize(r models.RawMetricRow) models.NormalizedMetricRow {
	spendUSD := round2(float64(r.CostMicros) / microsPerUSD)

	n := models.NormalizedMetricRow{
		Date:        r.Date,
		Impressions: r.Impressions,
		Clicks:      r.Clicks,
		Conversions: r.Conversions,
		SpendUSD:    spendUSD,
	}
	if r.Impressions > 0 {
		n.CTR = round2(float64(r.Clicks) / float64(r.Impressions) * 100)
		n.CPM = round2(spendUSD / float64(r.Impressions) * 1000)
	}
	if r.Clicks > 0 {
		n.CPC = round2(spendUSD / float64(r.Clicks))
	}
	return n
}

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
