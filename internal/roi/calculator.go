package roi

import (
	"github.com/rotisserie/eris"

	"github.com/sparkdata/sparkdata-go/internal/dataset"
	"github.com/sparkdata/sparkdata-go/internal/models"
	"github.com/sparkdata/sparkdata-go/internal/store"
)

var (
	// ErrNoData: cache-sourced computation requested but nothing has
	// been uploaded yet.
	ErrNoData = eris.New("no data provided and no cached upload found")
	// ErrMissingColumns: the cached dataset lacks the email/revenue
	// columns the calculation needs.
	ErrMissingColumns = eris.New("cached data missing required columns: email, revenue")
)

// cacheAdSpend is the placeholder spend for the cache-sourced branch.
// Real spend is not yet wired to the upload path; callers who need an
// accurate ratio supply a payload instead.
const cacheAdSpend = 1000.0

// Result is a computed ROI tagged with where its inputs came from.
type Result struct {
	Source       string  `json:"source"`
	AdSpend      float64 `json:"ad_spend"`
	TotalRevenue float64 `json:"total_revenue"`
	ROI          float64 `json:"roi"`
}

// Calculator computes revenue/spend ratios from either a request
// payload or the cached upload.
type Calculator struct {
	uploads *store.Slot[*dataset.Dataset]
}

func NewCalculator(uploads *store.Slot[*dataset.Dataset]) *Calculator {
	return &Calculator{uploads: uploads}
}

// FromPayload computes ROI over the leads supplied in the request.
// Non-positive ad spend yields roi 0 rather than an error, keeping the
// computation total.
func (c *Calculator) FromPayload(req models.AnalyzeRequest) Result {
	var totalRevenue float64
	for _, lead := range req.Leads {
		totalRevenue += lead.Revenue
	}
	var r float64
	if req.AdSpend > 0 {
		r = totalRevenue / req.AdSpend
	}
	return Result{
		Source:       "input",
		AdSpend:      req.AdSpend,
		TotalRevenue: totalRevenue,
		ROI:          round2(r),
	}
}

// FromCache computes ROI over the latest cached upload, summing its
// revenue column against the placeholder spend.
func (c *Calculator) FromCache() (Result, error) {
	ds, ok := c.uploads.Get()
	if !ok {
		return Result{}, ErrNoData
	}
	if !ds.HasColumns("email", "revenue") {
		return Result{}, ErrMissingColumns
	}
	totalRevenue := ds.SumFloat("revenue")
	return Result{
		Source:       "cache",
		AdSpend:      cacheAdSpend,
		TotalRevenue: totalRevenue,
		ROI:          round2(totalRevenue / cacheAdSpend),
	}, nil
}

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
