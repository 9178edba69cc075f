package match

import "github.com/sparkdata/sparkdata-go/internal/models"

// Resolve scores the full cross-product of ads-side against CRM-side
// emails and returns every pair above the match threshold, ads-outer /
// crm-inner order. The output is deliberately many-to-many: one email
// may appear in several pairs, and downstream consumers reconcile
// conflicts. Candidate lists are assumed small, so no indexing is done.
func Resolve(ads, crm []string) []models.MatchPair {
	pairs := []models.MatchPair{}
	for _, adEmail := range ads {
		for _, crmEmail := range crm {
			ratio := Score(adEmail, crmEmail)
			if ratio > Threshold {
				pairs = append(pairs, models.MatchPair{
					AdEmail:  adEmail,
					CRMEmail: crmEmail,
					Score:    round2(ratio),
				})
			}
		}
	}
	return pairs
}

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
