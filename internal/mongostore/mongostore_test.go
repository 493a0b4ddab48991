package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

func TestReportQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter store.ReportFilter
		want   bson.M
	}{
		{"empty", store.ReportFilter{}, bson.M{}},
		{"by user", store.ReportFilter{UserID: "u1"}, bson.M{"user_id": "u1"}},
		{"by status", store.ReportFilter{Status: models.ReportStatusReported}, bson.M{"status": models.ReportStatusReported}},
		{
			"excluding resolved",
			store.ReportFilter{ExcludeStatus: models.ReportStatusResolved},
			bson.M{"status": bson.M{"$ne": models.ReportStatusResolved}},
		},
		{
			"user and status",
			store.ReportFilter{UserID: "u1", Status: models.ReportStatusInProgress},
			bson.M{"user_id": "u1", "status": models.ReportStatusInProgress},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportQuery(tt.filter))
		})
	}
}

func TestBinQuery(t *testing.T) {
	level := 60
	assert.Equal(t, bson.M{}, binQuery(store.BinFilter{}))
	assert.Equal(t,
		bson.M{"waste_type": models.WasteOrganic, "current_level": bson.M{"$gte": 60}},
		binQuery(store.BinFilter{WasteType: models.WasteOrganic, MinLevel: &level}))
}

func TestDriverQuery(t *testing.T) {
	available := false
	assert.Equal(t,
		bson.M{"availability": false, "shift": models.ShiftNight},
		driverQuery(store.DriverFilter{Available: &available, Shift: models.ShiftNight}))
}

func TestReportSortBreaksTiesByInsertSequence(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}, reportSort())
}

func TestVersionedUpdates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	replaced := func(n int32) bson.D {
		return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
	}
	counted := func(mt *mtest.T, n int32) bson.D {
		ns := mt.DB.Name() + "." + reportsCollection
		if n == 0 {
			return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
		}
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
	}

	mt.Run("matching version advances", func(mt *mtest.T) {
		s := New(mt.Client, mt.DB)
		mt.AddMockResponses(replaced(1))

		r := &models.Report{ID: "r1", Status: models.ReportStatusInProgress, Version: 3}
		require.NoError(t, s.UpdateReport(ctx, r))
		assert.Equal(t, int64(4), r.Version)
	})

	mt.Run("stale version conflicts", func(mt *mtest.T) {
		s := New(mt.Client, mt.DB)
		mt.AddMockResponses(replaced(0), counted(mt, 1))

		r := &models.Report{ID: "r1", Status: models.ReportStatusInProgress, Version: 3}
		assert.ErrorIs(t, s.UpdateReport(ctx, r), store.ErrVersionConflict)
		assert.Equal(t, int64(3), r.Version)
	})

	mt.Run("missing document", func(mt *mtest.T) {
		s := New(mt.Client, mt.DB)
		mt.AddMockResponses(replaced(0), counted(mt, 0))

		b := &models.Bin{ID: "b1", CurrentLevel: 40, Version: 2}
		assert.ErrorIs(t, s.UpdateBin(ctx, b), store.ErrNotFound)
		assert.Equal(t, int64(2), b.Version)
	})

	mt.Run("driver conflict", func(mt *mtest.T) {
		s := New(mt.Client, mt.DB)
		mt.AddMockResponses(replaced(0), counted(mt, 1))

		d := &models.Driver{ID: "d1", Availability: false, Version: 5}
		assert.ErrorIs(t, s.UpdateDriver(ctx, d), store.ErrVersionConflict)
		assert.Equal(t, int64(5), d.Version)
	})
}

func TestCreateReportAssignsSequence(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("sequence set on insert", func(mt *mtest.T) {
		s := New(mt.Client, mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		first := &models.Report{ID: "r1", CreatedAt: 1700000000}
		second := &models.Report{ID: "r2", CreatedAt: 1700000000}
		require.NoError(t, s.CreateReport(context.Background(), first))
		require.NoError(t, s.CreateReport(context.Background(), second))

		assert.NotZero(t, first.Seq)
		assert.Greater(t, second.Seq, first.Seq)
	})
}
