package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const (
	defaultDatabase = "sketchdash"
	maxCASAttempts  = 16
)

// Store implements game.Store on MongoDB. Sessions and submissions carry a
// version field; updates replace the document only if the version still
// matches. Expired sessions are removed by a TTL index.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	sessions    *mongo.Collection
	submissions *mongo.Collection
	votes       *mongo.Collection
}

type sessionDoc struct {
	game.Session `bson:",inline"`
	Version      int64 `bson:"version"`
}

type submissionDoc struct {
	game.Submission `bson:",inline"`
	Version         int64 `bson:"version"`
}

// New connects to uri and ensures the indexes exist. The database name is
// taken from the URI path.
func New(ctx context.Context, uri string) (*Store, error) {
	dbName := defaultDatabase
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:      client,
		db:          db,
		sessions:    db.Collection("sessions"),
		submissions: db.Collection("submissions"),
		votes:       db.Collection("votes"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("database", dbName).Msg("connected to mongodb")
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.sessions: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			// 0 means MongoDB expires each document at its own expiresAt
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		s.submissions: {
			{
				Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "playerId", Value: 1}, {Key: "roundNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "roundNumber", Value: 1}, {Key: "submittedAt", Value: 1}}},
		},
		s.votes: {
			{
				Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "voterId", Value: 1}, {Key: "roundNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func notFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
