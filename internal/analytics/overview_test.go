package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wastewatch-backend/internal/models"
)

func reportsWithStatus(resolved, open int) []models.Report {
	var out []models.Report
	for i := 0; i < resolved; i++ {
		out = append(out, models.Report{Status: models.ReportStatusResolved})
	}
	for i := 0; i < open; i++ {
		status := models.ReportStatusReported
		if i%2 == 1 {
			status = models.ReportStatusInProgress
		}
		out = append(out, models.Report{Status: status})
	}
	return out
}

func TestComputeTenReportsFourResolved(t *testing.T) {
	o := Compute(nil, reportsWithStatus(4, 6))

	assert.Equal(t, 10, o.TotalReports)
	assert.Equal(t, 4, o.ResolvedReports)
	assert.Equal(t, 6, o.PendingReports)
	assert.Equal(t, 40.0, o.CollectionEfficiency)
}

func TestComputeEmpty(t *testing.T) {
	o := Compute(nil, nil)

	assert.Equal(t, Overview{}, o)
}

func TestComputeBins(t *testing.T) {
	bins := []models.Bin{
		{CurrentLevel: 0},
		{CurrentLevel: 79},
		{CurrentLevel: 80},
		{CurrentLevel: 100},
	}

	o := Compute(bins, nil)

	assert.Equal(t, 4, o.ActiveBins)
	assert.Equal(t, 2, o.HighPriorityBins)
}

func TestEfficiencyRounding(t *testing.T) {
	tests := []struct {
		resolved, total int
		want            float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{7, 7, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Efficiency(tt.resolved, tt.total), "%d/%d", tt.resolved, tt.total)
	}
}
