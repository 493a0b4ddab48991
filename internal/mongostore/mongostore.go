// Package mongostore is the MongoDB implementation of store.Store. Each entity
// lives in its own collection keyed by the entity id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

const (
	usersCollection        = "users"
	reportsCollection      = "reports"
	binsCollection         = "bins"
	driversCollection      = "drivers"
	deviceTokensCollection = "device_tokens"
)

// caseInsensitive sorts location and name the same way the Postgres store does.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	reports      *mongo.Collection
	bins         *mongo.Collection
	drivers      *mongo.Collection
	deviceTokens *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect opens a client, verifies it with a ping and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	log.Println("✅ Connected to MongoDB!")

	s := New(client, client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:       client,
		users:        db.Collection(usersCollection),
		reports:      db.Collection(reportsCollection),
		bins:         db.Collection(binsCollection),
		drivers:      db.Collection(driversCollection),
		deviceTokens: db.Collection(deviceTokensCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on. Safe to call repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.reports, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}}},
		{s.reports, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}}},
		{s.bins, mongo.IndexModel{Keys: bson.D{{Key: "current_level", Value: 1}}}},
		{s.deviceTokens, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func findOne(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find in %s: %w", coll.Name(), err)
	}
	return nil
}

// replaceVersioned replaces the document with the given id only if its stored
// version matches. doc must already carry the incremented version.
func replaceVersioned(ctx context.Context, coll *mongo.Collection, id string, version int64, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check %s existence: %w", coll.Name(), err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrVersionConflict
}

func insert(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	return insert(ctx, s.users, u)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := findOne(ctx, s.users, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := findOne(ctx, s.users, bson.M{"email": models.NormalizeEmail(email)}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetUserPassword(ctx context.Context, id, hash string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "password": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().Unix()}})
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return store.ErrVersionConflict
}

func (s *Store) AddEcoPoints(ctx context.Context, id string, delta int) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"eco_points": delta}})
	if err != nil {
		return fmt.Errorf("failed to add eco points: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	_, err := s.deviceTokens.UpdateOne(ctx,
		bson.M{"_id": t.Token},
		bson.M{
			"$set":         bson.M{"user_id": t.UserID, "device_type": t.DeviceType, "updated_at": t.UpdatedAt},
			"$setOnInsert": bson.M{"created_at": t.CreatedAt},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	cur, err := s.deviceTokens.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer cur.Close(ctx)

	var tokens []models.DeviceToken
	if err := cur.All(ctx, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode device tokens: %w", err)
	}
	return tokens, nil
}

func (s *Store) DeleteDeviceToken(ctx context.Context, token string) error {
	if _, err := s.deviceTokens.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}

// Reports

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if r.Seq == 0 {
		r.Seq = time.Now().UnixNano()
	}
	return insert(ctx, s.reports, r)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := findOne(ctx, s.reports, bson.M{"_id": id}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// reportQuery builds the Mongo filter for f.
func reportQuery(f store.ReportFilter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	switch {
	case f.Status != "" && f.ExcludeStatus != "":
		q["status"] = bson.M{"$eq": f.Status, "$ne": f.ExcludeStatus}
	case f.Status != "":
		q["status"] = f.Status
	case f.ExcludeStatus != "":
		q["status"] = bson.M{"$ne": f.ExcludeStatus}
	}
	return q
}

// reportSort orders newest first. created_at has one-second resolution, so
// ties fall back to the insert sequence.
func reportSort() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	opts := options.Find().SetSort(reportSort())
	cur, err := s.reports.Find(ctx, reportQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cur.Close(ctx)

	reports := []models.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, nil
}

func (s *Store) UpdateReport(ctx context.Context, r *models.Report) error {
	next := *r
	next.Version++
	if err := replaceVersioned(ctx, s.reports, r.ID, r.Version, &next); err != nil {
		return err
	}
	r.Version = next.Version
	return nil
}

// Bins

func (s *Store) CreateBin(ctx context.Context, b *models.Bin) error {
	return insert(ctx, s.bins, b)
}

func (s *Store) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	var b models.Bin
	if err := findOne(ctx, s.bins, bson.M{"_id": id}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func binQuery(f store.BinFilter) bson.M {
	q := bson.M{}
	if f.WasteType != "" {
		q["waste_type"] = f.WasteType
	}
	if f.MinLevel != nil {
		q["current_level"] = bson.M{"$gte": *f.MinLevel}
	}
	return q
}

func (s *Store) ListBins(ctx context.Context, f store.BinFilter) ([]models.Bin, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "location", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(caseInsensitive)
	cur, err := s.bins.Find(ctx, binQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	defer cur.Close(ctx)

	bins := []models.Bin{}
	if err := cur.All(ctx, &bins); err != nil {
		return nil, fmt.Errorf("failed to decode bins: %w", err)
	}
	return bins, nil
}

func (s *Store) UpdateBin(ctx context.Context, b *models.Bin) error {
	next := *b
	next.Version++
	if err := replaceVersioned(ctx, s.bins, b.ID, b.Version, &next); err != nil {
		return err
	}
	b.Version = next.Version
	return nil
}

// Drivers

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	return insert(ctx, s.drivers, d)
}

func (s *Store) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	var d models.Driver
	if err := findOne(ctx, s.drivers, bson.M{"_id": id}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func driverQuery(f store.DriverFilter) bson.M {
	q := bson.M{}
	if f.Available != nil {
		q["availability"] = *f.Available
	}
	if f.Shift != "" {
		q["shift"] = f.Shift
	}
	return q
}

func (s *Store) ListDrivers(ctx context.Context, f store.DriverFilter) ([]models.Driver, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(caseInsensitive)
	cur, err := s.drivers.Find(ctx, driverQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer cur.Close(ctx)

	drivers := []models.Driver{}
	if err := cur.All(ctx, &drivers); err != nil {
		return nil, fmt.Errorf("failed to decode drivers: %w", err)
	}
	return drivers, nil
}

func (s *Store) UpdateDriver(ctx context.Context, d *models.Driver) error {
	next := *d
	next.Version++
	if err := replaceVersioned(ctx, s.drivers, d.ID, d.Version, &next); err != nil {
		return err
	}
	d.Version = next.Version
	return nil
}
