package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiliankoe/sketchdash/internal/game"
)

// CreateSession relies on the unique code index. A clash with a session that
// has already expired, but that the TTL monitor has not removed yet, deletes
// the stale document and tries once more.
func (s *Store) CreateSession(ctx context.Context, sess *game.Session) error {
	doc := sessionDoc{Session: *sess.Clone(), Version: 1}
	for attempt := 0; attempt < 2; attempt++ {
		_, err := s.sessions.InsertOne(ctx, doc)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create session: %w", err)
		}
		res, err := s.sessions.DeleteOne(ctx, bson.M{
			"code":      sess.Code,
			"expiresAt": bson.M{"$lte": sess.CreatedAt},
		})
		if err != nil {
			return fmt.Errorf("failed to release expired code: %w", err)
		}
		if res.DeletedCount == 0 {
			return game.ErrCodeTaken
		}
	}
	return game.ErrCodeTaken
}

func (s *Store) findSession(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*sessionDoc, error) {
	doc := &sessionDoc{}
	err := s.sessions.FindOne(ctx, filter, opts...).Decode(doc)
	if notFound(err) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return doc, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*game.Session, error) {
	doc, err := s.findSession(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return &doc.Session, nil
}

func (s *Store) GetSessionByCode(ctx context.Context, code string) (*game.Session, error) {
	doc, err := s.findSession(ctx, bson.M{"code": code}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return &doc.Session, nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		doc, err := s.findSession(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		version := doc.Version
		if err := fn(&doc.Session); err != nil {
			return nil, err
		}
		doc.ID = id
		doc.Version = version + 1

		res, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		if res.MatchedCount == 1 {
			return &doc.Session, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, game.ErrConflict)
}
