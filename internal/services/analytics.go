package services

import (
	"context"

	"wastewatch-backend/internal/analytics"
	"wastewatch-backend/internal/store"
)

// AnalyticsService loads a snapshot of bins and reports and summarises it.
// Nothing is cached; every call reads the stores.
type AnalyticsService struct {
	bins    store.BinStore
	reports store.ReportStore
}

func NewAnalyticsService(bins store.BinStore, reports store.ReportStore) *AnalyticsService {
	return &AnalyticsService{bins: bins, reports: reports}
}

func (s *AnalyticsService) Overview(ctx context.Context) (analytics.Overview, error) {
	bins, err := s.bins.ListBins(ctx, store.BinFilter{})
	if err != nil {
		return analytics.Overview{}, storeError(err, "bins", "")
	}
	reports, err := s.reports.ListReports(ctx, store.ReportFilter{})
	if err != nil {
		return analytics.Overview{}, storeError(err, "reports", "")
	}
	return analytics.Compute(bins, reports), nil
}
