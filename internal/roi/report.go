package roi

import (
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrNonPositiveSpend rejects report requests where a ratio is
// undefined.
var ErrNonPositiveSpend = eris.New("ad spend must be greater than zero")

// Report is the /report response: the ratio plus a client-facing
// sentence.
type Report struct {
	AdSpend      float64 `json:"ad_spend"`
	TotalRevenue float64 `json:"total_revenue"`
	ROI          float64 `json:"roi"`
	Summary      string  `json:"summary"`
}

var usd = message.NewPrinter(language.English)

// BuildReport validates the inputs and renders the summary sentence
// with grouped dollar amounts.
func BuildReport(adSpend, totalRevenue float64) (Report, error) {
	if adSpend <= 0 {
		return Report{}, ErrNonPositiveSpend
	}
	r := totalRevenue / adSpend
	summary := usd.Sprintf(
		"Your total revenue of $%.2f generated an ROI of %.2fx based on an ad spend of $%.2f.",
		totalRevenue, r, adSpend)
	return Report{
		AdSpend:      adSpend,
		TotalRevenue: totalRevenue,
		ROI:          round2(r),
		Summary:      summary,
	}, nil
}
