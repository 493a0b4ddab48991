package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/store/memory"
)

const testSecret = "handler-test-secret"

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
}

type fixedLimiter struct {
	allowed bool
}

func (l fixedLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.allowed, time.Hour, nil
}

func newTestServer(t *testing.T, opts ...func(*Deps)) *testServer {
	t.Helper()
	s := memory.New()
	d := Deps{
		Identity:  services.NewIdentityService(s, nil),
		Reports:   services.NewReportService(s, s),
		Fleet:     services.NewFleetService(s, s, nil),
		Analytics: services.NewAnalyticsService(s, s),
		JWTSecret: testSecret,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &testServer{t: t, router: NewRouter(d), store: s}
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// login returns the user id and token for email/role.
func (ts *testServer) login(email, role string) (string, string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "role": role})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(ts.t, resp.Token)
	return resp.User.ID, resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) apperrors.Kind {
	t.Helper()
	var body struct {
		Success bool           `json:"success"`
		Kind    apperrors.Kind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.False(t, body.Success)
	return body.Kind
}

func reportBody(creatorID string) map[string]interface{} {
	return map[string]interface{}{
		"title":       "Overflow",
		"description": "Bin overflowing onto the sidewalk",
		"wasteType":   "general",
		"location":    "5th St",
		"creatorId":   creatorID,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	t.Run("creates user on first login", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": " Resident@Demo.com ", "role": "citizen"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[LoginResponse](t, rec)
		assert.Equal(t, "resident@demo.com", resp.User.Email)
		assert.Equal(t, models.RoleCitizen, resp.User.Role)
		assert.Equal(t, 0, resp.User.EcoPoints)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@demo.com", "role": "superuser"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.KindInvalidRole, errorKind(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.KindValidation, errorKind(t, rec))
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportLifecycle(t *testing.T) {
	ts := newTestServer(t)
	citizenID, citizen := ts.login("resident@demo.com", "citizen")
	workerID, worker := ts.login("worker@demo.com", "worker")
	_, otherWorker := ts.login("worker2@demo.com", "worker")

	rec := ts.do(http.MethodPost, "/api/reports", citizen, reportBody(""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.ReportResponse](t, rec)
	assert.Equal(t, models.ReportStatusReported, created.Status)
	assert.Equal(t, citizenID, created.UserID)

	rec = ts.do(http.MethodPut, "/api/reports/"+created.ID+"/status", worker, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[models.ReportResponse](t, rec)
	require.NotNil(t, started.AssignedWorker)
	assert.Equal(t, workerID, *started.AssignedWorker)

	rec = ts.do(http.MethodPut, "/api/reports/"+created.ID+"/status", otherWorker, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.KindAlreadyAssigned, errorKind(t, rec))

	rec = ts.do(http.MethodPut, "/api/reports/"+created.ID+"/status", worker, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decode[models.ReportResponse](t, rec)
	assert.Equal(t, models.ReportStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	rec = ts.do(http.MethodPut, "/api/reports/"+created.ID+"/status", worker, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.KindInvalidTransition, errorKind(t, rec))

	// the resolved report drops out of the worker's default list
	rec = ts.do(http.MethodGet, "/api/reports", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.ReportResponse](t, rec))

	rec = ts.do(http.MethodGet, "/api/reports/"+created.ID, worker, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/reports/"+created.ID, citizen, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	user, err := ts.store.GetUser(context.Background(), citizenID)
	require.NoError(t, err)
	assert.Equal(t, 30, user.EcoPoints)
}

func TestCitizenReportAccess(t *testing.T) {
	ts := newTestServer(t)
	_, alice := ts.login("alice@demo.com", "citizen")
	bobID, bob := ts.login("bob@demo.com", "citizen")

	rec := ts.do(http.MethodPost, "/api/reports", bob, reportBody(""))
	require.Equal(t, http.StatusCreated, rec.Code)
	bobReport := decode[models.ReportResponse](t, rec)

	t.Run("cannot file for someone else", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/reports", alice, reportBody(bobID))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperrors.KindUnauthorized, errorKind(t, rec))
	})

	t.Run("cannot read another citizen's report", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/reports/"+bobReport.ID, alice, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cannot list another citizen's reports", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/reports?userId="+bobID, alice, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("default list is own reports", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/reports", bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]models.ReportResponse](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, bobReport.ID, list[0].ID)

		rec = ts.do(http.MethodGet, "/api/reports", alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("cannot change status", func(t *testing.T) {
		rec := ts.do(http.MethodPut, "/api/reports/"+bobReport.ID+"/status", bob, map[string]string{"status": "in_progress"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("blank title", func(t *testing.T) {
		body := reportBody("")
		body["title"] = "   "
		rec := ts.do(http.MethodPost, "/api/reports", bob, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.KindValidation, errorKind(t, rec))
	})
}

func TestWorkerReportRules(t *testing.T) {
	ts := newTestServer(t)
	_, citizen := ts.login("resident@demo.com", "citizen")
	workerID, worker := ts.login("worker@demo.com", "worker")
	_, w2 := ts.login("worker2@demo.com", "worker")

	rec := ts.do(http.MethodPost, "/api/reports", citizen, reportBody(""))
	require.Equal(t, http.StatusCreated, rec.Code)
	report := decode[models.ReportResponse](t, rec)

	rec = ts.do(http.MethodPost, "/api/reports", worker, reportBody(workerID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/reports?status=resolved", worker, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/reports?status=bogus", worker, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a worker cannot act on behalf of another worker
	rec = ts.do(http.MethodPut, "/api/reports/"+report.ID+"/status", w2, map[string]string{"status": "in_progress", "workerId": workerID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPut, "/api/reports/missing/status", worker, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/api/reports/"+report.ID+"/status", worker, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.KindInvalidTransition, errorKind(t, rec))
}

func TestReportRateLimit(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.ReportLimiter = fixedLimiter{allowed: false} })
	_, citizen := ts.login("resident@demo.com", "citizen")

	rec := ts.do(http.MethodPost, "/api/reports", citizen, reportBody(""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	// only report creation is limited
	rec = ts.do(http.MethodGet, "/api/reports", citizen, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBinsAndDrivers(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.login("admin@city.gov", "admin")
	_, citizen := ts.login("resident@demo.com", "citizen")

	rec := ts.do(http.MethodPost, "/api/bins", admin, map[string]interface{}{
		"location": "Main St", "capacity": 240, "current_level": 70, "waste_type": "recyclable",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bin := decode[models.BinResponse](t, rec)

	rec = ts.do(http.MethodGet, "/api/bins", citizen, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/bins/alerts", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.BinResponse](t, rec), 1)

	rec = ts.do(http.MethodGet, "/api/bins?minLevel=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/bins/"+bin.ID+"/level", admin, map[string]int{"level": 101})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.KindOutOfRange, errorKind(t, rec))

	rec = ts.do(http.MethodPut, "/api/bins/"+bin.ID+"/level", admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/bins/"+bin.ID+"/collect", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.BinResponse](t, rec).CurrentLevel)

	rec = ts.do(http.MethodPut, "/api/bins/missing/collect", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/drivers", admin, map[string]string{
		"name": "Robert", "phone": "555-0100", "vehicle_number": "TRK-7", "shift": "morning",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	driver := decode[models.DriverResponse](t, rec)
	assert.True(t, driver.Availability)
	_, err := time.Parse(time.RFC3339, driver.CreatedAt)
	assert.NoError(t, err, "created_at is ISO 8601")

	rec = ts.do(http.MethodPut, "/api/drivers/"+driver.ID+"/assign", admin, map[string]string{"routeId": "route-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPut, "/api/drivers/"+driver.ID+"/assign", admin, map[string]string{"route_id": "route-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.KindNotAvailable, errorKind(t, rec))

	rec = ts.do(http.MethodGet, "/api/drivers?available=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.DriverResponse](t, rec))

	rec = ts.do(http.MethodPut, "/api/drivers/"+driver.ID+"/release", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.DriverResponse](t, rec).Availability)

	rec = ts.do(http.MethodGet, "/api/drivers?shift=morning&available=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.DriverResponse](t, rec), 1)

	rec = ts.do(http.MethodGet, "/api/drivers?available=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsOverview(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.login("admin@city.gov", "admin")
	_, citizen := ts.login("resident@demo.com", "citizen")

	rec := ts.do(http.MethodPost, "/api/reports", citizen, reportBody(""))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/analytics/overview", citizen, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/analytics/overview", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 1, overview["total_reports"])
	assert.EqualValues(t, 1, overview["pending_reports"])
	assert.EqualValues(t, 0, overview["collection_efficiency"])
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.login("admin@city.gov", "admin")
	citizenID, citizen := ts.login("resident@demo.com", "citizen")
	workerID, _ := ts.login("worker@demo.com", "worker")

	rec := ts.do(http.MethodGet, "/api/users/"+citizenID, citizen, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resident@demo.com", decode[models.UserResponse](t, rec).Email)

	rec = ts.do(http.MethodGet, "/api/users/"+workerID, citizen, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/users/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	newUser := map[string]string{"email": "crew@city.gov", "name": "Crew", "role": "worker"}
	rec = ts.do(http.MethodPost, "/api/users", citizen, newUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/users", admin, newUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.RoleWorker, decode[models.UserResponse](t, rec).Role)

	rec = ts.do(http.MethodPost, "/api/users", admin, newUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/users/me/device-token", citizen, map[string]string{"token": "fcm-abc", "deviceType": "android"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tokens, err := ts.store.ListDeviceTokens(context.Background(), citizenID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "fcm-abc", tokens[0].Token)

	rec = ts.do(http.MethodPost, "/api/users/me/device-token", citizen, map[string]string{"token": "fcm-abc", "deviceType": "pager"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(_ context.Context, address string) (*services.Address, error) {
	if address == "nowhere" {
		return nil, errors.New("ZERO_RESULTS")
	}
	return &services.Address{
		FormattedAddress: address + ", Springfield",
		Coordinates:      services.Coordinates{Lat: 39.78, Lng: -89.65},
	}, nil
}

func TestGeocode(t *testing.T) {
	t.Run("route absent without geocoder", func(t *testing.T) {
		ts := newTestServer(t)
		_, citizen := ts.login("resident@demo.com", "citizen")
		rec := ts.do(http.MethodPost, "/api/geocoding/forward", citizen, GeocodeRequest{Address: "5th St"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	ts := newTestServer(t, func(d *Deps) { d.Geocoder = fakeGeocoder{} })
	_, citizen := ts.login("resident@demo.com", "citizen")

	rec := ts.do(http.MethodPost, "/api/geocoding/forward", citizen, GeocodeRequest{Address: "5th St"})
	require.Equal(t, http.StatusOK, rec.Code)
	addr := decode[services.Address](t, rec)
	assert.Equal(t, "5th St, Springfield", addr.FormattedAddress)
	assert.InDelta(t, 39.78, addr.Coordinates.Lat, 0.0001)

	rec = ts.do(http.MethodPost, "/api/geocoding/forward", citizen, GeocodeRequest{Address: "nowhere"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/geocoding/forward", citizen, GeocodeRequest{Address: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/geocoding/forward", "", GeocodeRequest{Address: "5th St"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
