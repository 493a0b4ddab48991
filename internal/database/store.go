package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

const uniqueViolation = "23505"

// Store is the Postgres implementation of store.Store.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

const userColumns = `id, email, password, name, phone, role, eco_points, created_at, updated_at`

const reportColumns = `id, user_id, title, description, waste_type, location, latitude, longitude,
	image_url, status, assigned_worker, created_at, updated_at, resolved_at, version`

const binColumns = `id, location, latitude, longitude, capacity, current_level, waste_type,
	last_collected, created_at, updated_at, version`

const driverColumns = `id, name, phone, vehicle_number, shift, availability, current_route,
	created_at, updated_at, version`

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// checkConditional turns a zero-row conditional UPDATE into ErrNotFound or
// ErrVersionConflict.
func (s *Store) checkConditional(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := s.db.GetContext(ctx, &exists, query, id); err != nil {
		return fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrVersionConflict
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	query := `INSERT INTO users (` + userColumns + `)
	          VALUES (:id, :email, :password, :name, :phone, :role, :eco_points, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, u); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) SetUserPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $1, updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		 WHERE id = $2 AND password IS NULL`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return s.checkConditional(ctx, res, "users", id)
}

func (s *Store) AddEcoPoints(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET eco_points = eco_points + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to add eco points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	query := `INSERT INTO device_tokens (token, user_id, device_type, created_at, updated_at)
	          VALUES (:token, :user_id, :device_type, :created_at, :updated_at)
	          ON CONFLICT (token) DO UPDATE
	          SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	var tokens []models.DeviceToken
	err := s.db.SelectContext(ctx, &tokens,
		`SELECT token, user_id, device_type, created_at, updated_at FROM device_tokens WHERE user_id = $1 ORDER BY token`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	return tokens, nil
}

func (s *Store) DeleteDeviceToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	query := `INSERT INTO reports (` + reportColumns + `)
	          VALUES (:id, :user_id, :title, :description, :waste_type, :location, :latitude, :longitude,
	                  :image_url, :status, :assigned_worker, :created_at, :updated_at, :resolved_at, :version)`
	if _, err := s.db.NamedExecContext(ctx, query, r); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := s.db.GetContext(ctx, &r, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ExcludeStatus != "" {
		args = append(args, f.ExcludeStatus)
		where = append(where, fmt.Sprintf("status <> $%d", len(args)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	reports := []models.Report{}
	if err := s.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *Store) UpdateReport(ctx context.Context, r *models.Report) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports
		 SET status = $1, assigned_worker = $2, updated_at = $3, resolved_at = $4,
		     latitude = $5, longitude = $6, version = version + 1
		 WHERE id = $7 AND version = $8`,
		r.Status, r.AssignedWorker, r.UpdatedAt, r.ResolvedAt, r.Latitude, r.Longitude, r.ID, r.Version)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if err := s.checkConditional(ctx, res, "reports", r.ID); err != nil {
		return err
	}
	r.Version++
	return nil
}

// Bins

func (s *Store) CreateBin(ctx context.Context, b *models.Bin) error {
	query := `INSERT INTO bins (` + binColumns + `)
	          VALUES (:id, :location, :latitude, :longitude, :capacity, :current_level, :waste_type,
	                  :last_collected, :created_at, :updated_at, :version)`
	if _, err := s.db.NamedExecContext(ctx, query, b); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create bin: %w", err)
	}
	return nil
}

func (s *Store) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	var b models.Bin
	if err := s.db.GetContext(ctx, &b, `SELECT `+binColumns+` FROM bins WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) ListBins(ctx context.Context, f store.BinFilter) ([]models.Bin, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.WasteType != "" {
		args = append(args, f.WasteType)
		where = append(where, fmt.Sprintf("waste_type = $%d", len(args)))
	}
	if f.MinLevel != nil {
		args = append(args, *f.MinLevel)
		where = append(where, fmt.Sprintf("current_level >= $%d", len(args)))
	}

	query := `SELECT ` + binColumns + ` FROM bins`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY LOWER(location), id`

	bins := []models.Bin{}
	if err := s.db.SelectContext(ctx, &bins, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

func (s *Store) UpdateBin(ctx context.Context, b *models.Bin) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bins
		 SET current_level = $1, last_collected = $2, updated_at = $3, version = version + 1
		 WHERE id = $4 AND version = $5`,
		b.CurrentLevel, b.LastCollected, b.UpdatedAt, b.ID, b.Version)
	if err != nil {
		return fmt.Errorf("failed to update bin: %w", err)
	}
	if err := s.checkConditional(ctx, res, "bins", b.ID); err != nil {
		return err
	}
	b.Version++
	return nil
}

// Drivers

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	query := `INSERT INTO drivers (` + driverColumns + `)
	          VALUES (:id, :name, :phone, :vehicle_number, :shift, :availability, :current_route,
	                  :created_at, :updated_at, :version)`
	if _, err := s.db.NamedExecContext(ctx, query, d); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	var d models.Driver
	if err := s.db.GetContext(ctx, &d, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) ListDrivers(ctx context.Context, f store.DriverFilter) ([]models.Driver, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Available != nil {
		args = append(args, *f.Available)
		where = append(where, fmt.Sprintf("availability = $%d", len(args)))
	}
	if f.Shift != "" {
		args = append(args, f.Shift)
		where = append(where, fmt.Sprintf("shift = $%d", len(args)))
	}

	query := `SELECT ` + driverColumns + ` FROM drivers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY LOWER(name), id`

	drivers := []models.Driver{}
	if err := s.db.SelectContext(ctx, &drivers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	return drivers, nil
}

func (s *Store) UpdateDriver(ctx context.Context, d *models.Driver) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drivers
		 SET availability = $1, current_route = $2, updated_at = $3, version = version + 1
		 WHERE id = $4 AND version = $5`,
		d.Availability, d.CurrentRoute, d.UpdatedAt, d.ID, d.Version)
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}
	if err := s.checkConditional(ctx, res, "drivers", d.ID); err != nil {
		return err
	}
	d.Version++
	return nil
}
