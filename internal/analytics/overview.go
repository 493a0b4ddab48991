// Package analytics derives dashboard counters from a snapshot of bins and reports.
package analytics

import (
	"github.com/shopspring/decimal"

	"wastewatch-backend/internal/models"
)

// Overview is the response for GET /api/analytics/overview
type Overview struct {
	ActiveBins           int     `json:"active_bins"`
	HighPriorityBins     int     `json:"high_priority_bins"`
	TotalReports         int     `json:"total_reports"`
	ResolvedReports      int     `json:"resolved_reports"`
	PendingReports       int     `json:"pending_reports"`
	CollectionEfficiency float64 `json:"collection_efficiency"` // percentage, one decimal place
}

var hundred = decimal.NewFromInt(100)

// Compute summarises bins and reports. It has no side effects.
func Compute(bins []models.Bin, reports []models.Report) Overview {
	o := Overview{
		ActiveBins:   len(bins),
		TotalReports: len(reports),
	}

	for i := range bins {
		if bins[i].IsHighPriority() {
			o.HighPriorityBins++
		}
	}
	for i := range reports {
		if reports[i].Status == models.ReportStatusResolved {
			o.ResolvedReports++
		}
	}
	o.PendingReports = o.TotalReports - o.ResolvedReports
	o.CollectionEfficiency = Efficiency(o.ResolvedReports, o.TotalReports)

	return o
}

// Efficiency returns resolved/total as a percentage rounded to one decimal
// place, or 0 when there are no reports.
func Efficiency(resolved, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(resolved)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), 4).
		Round(1)
	f, _ := pct.Float64()
	return f
}
