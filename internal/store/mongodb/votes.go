package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (s *Store) InsertVote(ctx context.Context, v *game.Vote) error {
	_, err := s.votes.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return game.ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, sessionID string, round int) ([]*game.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "votedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.votes.Find(ctx, bson.M{"sessionId": sessionID, "roundNumber": round}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	out := []*game.Vote{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode votes: %w", err)
	}
	return out, nil
}

func (s *Store) FindVote(ctx context.Context, sessionID, voterID string, round int) (*game.Vote, error) {
	v := &game.Vote{}
	err := s.votes.FindOne(ctx, bson.M{"sessionId": sessionID, "voterId": voterID, "roundNumber": round}).Decode(v)
	if notFound(err) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return v, nil
}
