// Package memory is an in-process Store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

type reportEntry struct {
	seq    int64
	report models.Report
}

// Store keeps every entity in maps guarded by one mutex. Values are copied in
// and out so callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	users   map[string]models.User
	emails  map[string]string // normalised email -> user id
	reports map[string]reportEntry
	bins    map[string]models.Bin
	drivers map[string]models.Driver
	tokens  map[string]models.DeviceToken
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]models.User),
		emails:  make(map[string]string),
		reports: make(map[string]reportEntry),
		bins:    make(map[string]models.Bin),
		drivers: make(map[string]models.Driver),
		tokens:  make(map[string]models.DeviceToken),
	}
}

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(u.Email)
	if _, exists := s.emails[email]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.users[u.ID]; exists {
		return store.ErrDuplicate
	}
	s.users[u.ID] = copyUser(*u)
	s.emails[email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyUser(u)
	return &out, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyUser(s.users[id])
	return &out, nil
}

func (s *Store) SetUserPassword(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.Password != nil {
		return store.ErrVersionConflict
	}
	u.Password = &hash
	s.users[id] = u
	return nil
}

func (s *Store) AddEcoPoints(ctx context.Context, id string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.EcoPoints += delta
	s.users[id] = u
	return nil
}

func (s *Store) SaveDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[t.Token]; ok {
		t.CreatedAt = existing.CreatedAt
	}
	s.tokens[t.Token] = *t
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DeviceToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (s *Store) DeleteDeviceToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return store.ErrDuplicate
	}
	s.seq++
	s.reports[r.ID] = reportEntry{seq: s.seq, report: copyReport(*r)}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyReport(e.report)
	return &out, nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]reportEntry, 0, len(s.reports))
	for _, e := range s.reports {
		if f.Matches(&e.report) {
			entries = append(entries, e)
		}
	}
	// Newest first; insertion order breaks ties within the same second.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].report.CreatedAt != entries[j].report.CreatedAt {
			return entries[i].report.CreatedAt > entries[j].report.CreatedAt
		}
		return entries[i].seq > entries[j].seq
	})

	out := make([]models.Report, len(entries))
	for i, e := range entries {
		out[i] = copyReport(e.report)
	}
	return out, nil
}

func (s *Store) UpdateReport(ctx context.Context, r *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reports[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	if e.report.Version != r.Version {
		return store.ErrVersionConflict
	}
	r.Version++
	e.report = copyReport(*r)
	s.reports[r.ID] = e
	return nil
}

// Bins

func (s *Store) CreateBin(ctx context.Context, b *models.Bin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bins[b.ID]; exists {
		return store.ErrDuplicate
	}
	s.bins[b.ID] = copyBin(*b)
	return nil
}

func (s *Store) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bins[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyBin(b)
	return &out, nil
}

func (s *Store) ListBins(ctx context.Context, f store.BinFilter) ([]models.Bin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Bin, 0, len(s.bins))
	for _, b := range s.bins {
		if f.Matches(&b) {
			out = append(out, copyBin(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return strings.ToLower(out[i].Location) < strings.ToLower(out[j].Location)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateBin(ctx context.Context, b *models.Bin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.bins[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != b.Version {
		return store.ErrVersionConflict
	}
	b.Version++
	s.bins[b.ID] = copyBin(*b)
	return nil
}

// Drivers

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drivers[d.ID]; exists {
		return store.ErrDuplicate
	}
	s.drivers[d.ID] = copyDriver(*d)
	return nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drivers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyDriver(d)
	return &out, nil
}

func (s *Store) ListDrivers(ctx context.Context, f store.DriverFilter) ([]models.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		if f.Matches(&d) {
			out = append(out, copyDriver(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateDriver(ctx context.Context, d *models.Driver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.drivers[d.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != d.Version {
		return store.ErrVersionConflict
	}
	d.Version++
	s.drivers[d.ID] = copyDriver(*d)
	return nil
}

// Pointer fields are cloned so stored values never alias caller memory.

func copyUser(u models.User) models.User {
	u.Password = cloneString(u.Password)
	return u
}

func copyReport(r models.Report) models.Report {
	r.Latitude = cloneFloat(r.Latitude)
	r.Longitude = cloneFloat(r.Longitude)
	r.ImageURL = cloneString(r.ImageURL)
	r.AssignedWorker = cloneString(r.AssignedWorker)
	r.ResolvedAt = cloneInt64(r.ResolvedAt)
	return r
}

func copyBin(b models.Bin) models.Bin {
	b.Latitude = cloneFloat(b.Latitude)
	b.Longitude = cloneFloat(b.Longitude)
	b.LastCollected = cloneInt64(b.LastCollected)
	return b
}

func copyDriver(d models.Driver) models.Driver {
	d.CurrentRoute = cloneString(d.CurrentRoute)
	return d
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
