package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (s *Store) InsertSubmission(ctx context.Context, sub *game.Submission) error {
	_, err := s.submissions.InsertOne(ctx, submissionDoc{Submission: *sub.Clone(), Version: 1})
	if mongo.IsDuplicateKeyError(err) {
		return game.ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *Store) findSubmission(ctx context.Context, filter any) (*submissionDoc, error) {
	doc := &submissionDoc{}
	err := s.submissions.FindOne(ctx, filter).Decode(doc)
	if notFound(err) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return doc, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*game.Submission, error) {
	doc, err := s.findSubmission(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return &doc.Submission, nil
}

func (s *Store) FindSubmission(ctx context.Context, sessionID, playerID string, round int) (*game.Submission, error) {
	doc, err := s.findSubmission(ctx, bson.M{"sessionId": sessionID, "playerId": playerID, "roundNumber": round})
	if err != nil {
		return nil, err
	}
	return &doc.Submission, nil
}

func (s *Store) UpdateSubmission(ctx context.Context, id string, fn func(*game.Submission) error) (*game.Submission, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		doc, err := s.findSubmission(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		cur := doc.Submission
		version := doc.Version
		if err := fn(&doc.Submission); err != nil {
			return nil, err
		}
		doc.ID, doc.SessionID, doc.PlayerID, doc.RoundNumber = cur.ID, cur.SessionID, cur.PlayerID, cur.RoundNumber
		doc.Version = version + 1

		res, err := s.submissions.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to update submission: %w", err)
		}
		if res.MatchedCount == 1 {
			return &doc.Submission, nil
		}
	}
	return nil, fmt.Errorf("submission %s: %w", id, game.ErrConflict)
}

func (s *Store) ListSubmissions(ctx context.Context, sessionID string, round int) ([]*game.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.submissions.Find(ctx, bson.M{"sessionId": sessionID, "roundNumber": round}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	var docs []submissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	out := make([]*game.Submission, 0, len(docs))
	for i := range docs {
		out = append(out, &docs[i].Submission)
	}
	return out, nil
}
