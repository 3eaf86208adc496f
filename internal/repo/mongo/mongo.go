package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store keeps one document per target in a collection, keyed by target name.
//
// Record never rewrites the history array client-side: the latest fields are
// set with findOneAndUpdate and history entries are added with $push, so
// overlapping cycles cannot drop each other's entries.
type Store struct {
	client  *mongo.Client
	coll    *mongo.Collection
	log     *zap.Logger
	history repo.HistoryOptions
}

func New(ctx context.Context, uri, database, collection string, h repo.HistoryOptions, log *zap.Logger) (*Store, error) {
	ctxConn, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctxConn, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}
	if err := client.Ping(ctxConn, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("mongo_store_ready",
		zap.String("database", database),
		zap.String("collection", collection),
		zap.String("history_policy", string(h.Policy)),
		zap.Int("history_limit", h.Limit),
	)
	return &Store{
		client:  client,
		coll:    client.Database(database).Collection(collection),
		log:     log,
		history: h,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Record(ctx context.Context, name string, obs domain.Observation) (repo.Recorded, error) {
	set := bson.M{
		"status":       obs.Status,
		"message":      obs.Message,
		"responseTime": obs.ResponseTimeMS,
		"lastChecked":  obs.LastChecked,
		"checkedAt":    obs.CheckedAt,
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"status": 1})

	var prev struct {
		Status domain.Status `bson:"status"`
	}
	var rec repo.Recorded
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$set": set}, opts).Decode(&prev)
	switch {
	case err == nil:
		rec.Existed = true
		rec.Previous = prev.Status
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return repo.Recorded{}, fmt.Errorf("update status %q: %w", name, err)
	}

	if !s.history.Policy.ShouldAppend(rec.Previous, rec.Existed, obs.Status) {
		return rec, nil
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": name}, pushEntry(obs.Entry(), s.history.Limit)); err != nil {
		return rec, fmt.Errorf("append history %q: %w", name, err)
	}
	rec.Appended = true
	s.log.Debug("history_appended",
		zap.String("target", name),
		zap.String("status", string(obs.Status)),
		zap.Int("limit", s.history.Limit),
	)
	return rec, nil
}

// pushEntry builds the $push update; a positive limit keeps the newest entries.
func pushEntry(e domain.HistoryEntry, limit int) bson.M {
	each := bson.M{"$each": bson.A{e}}
	if limit > 0 {
		each["$slice"] = -limit
	}
	return bson.M{"$push": bson.M{"history": each}}
}

func (s *Store) Get(ctx context.Context, name string) (*domain.TargetStatus, error) {
	var doc domain.TargetStatus
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status %q: %w", name, err)
	}
	if err := checkStatuses(doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) List(ctx context.Context) ([]domain.TargetStatus, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	var out []domain.TargetStatus
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	for _, doc := range out {
		if err := checkStatuses(doc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkStatuses rejects documents written with a status this service never
// produces.
func checkStatuses(doc domain.TargetStatus) error {
	if !doc.Status.Valid() {
		return fmt.Errorf("status of %q: unknown status %q", doc.Name, doc.Status)
	}
	for _, h := range doc.History {
		if !h.Status.Valid() {
			return fmt.Errorf("history of %q: unknown status %q", doc.Name, h.Status)
		}
	}
	return nil
}
