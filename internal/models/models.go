package models

// LeadRecord is one lead row supplied in an ROI analysis request or
// read from the cached upload. Revenue defaults to 0 when omitted.
type LeadRecord struct {
	Email   string  `json:"email"`
	Revenue float64 `json:"revenue"`
}

// AnalyzeRequest is the input-sourced ROI payload.
type AnalyzeRequest struct {
	AdSpend float64      `json:"ad_spend"`
	Leads   []LeadRecord `json:"leads"`
}

// MatchPair links an ads-side email to a CRM-side email. Score is the
// similarity ratio rounded to two decimals for presentation.
type MatchPair struct {
	AdEmail  string  `json:"ad_email"`
	CRMEmail string  `json:"crm_email"`
	Score    float64 `json:"match_score"`
}

// RawMetricRow is one performance record as delivered by the Ads API.
// Absent fields decode to zero.
type RawMetricRow struct {
	Date        string
	Impressions int64
	Clicks      int64
	CostMicros  int64
	Conversions float64
}

// NormalizedMetricRow is a RawMetricRow with derived ratios. A ratio is
// zero when its denominator is zero; never NaN or infinity.
type NormalizedMetricRow struct {
	Date        string  `json:"date"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
	Conversions float64 `json:"conversions"`
	SpendUSD    float64 `json:"spend_usd"`
}

// AggregateSummary holds totals over every folded row plus ratios
// computed from the totals. ROAS is nil unless both financial inputs
// were supplied with a positive spend.
type AggregateSummary struct {
	Impressions int64    `json:"impressions"`
	Clicks      int64    `json:"clicks"`
	CTR         float64  `json:"ctr"`
	CPC         float64  `json:"cpc"`
	CPM         float64  `json:"cpm"`
	SpendUSD    float64  `json:"spend_usd"`
	Conversions float64  `json:"conversions"`
	ROAS        *float64 `json:"roas"`
}
