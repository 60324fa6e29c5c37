package game

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Points by rank; ranks past the schedule earn nothing.
var pointSchedule = []int{3, 2, 1}

func pointsForRank(ix int) int {
	if ix < len(pointSchedule) {
		return pointSchedule[ix]
	}
	return 0
}

// Voting tallies ballots and applies round scores.
type Voting struct {
	store Store
	opts  Options
}

// CastVote records voterID's ballot for the round. Checks run in order:
// one vote per voter and round, the target exists, the target is not the
// voter's own submission.
func (v *Voting) CastVote(ctx context.Context, sessionID, voterID, submissionID string, round int) (string, error) {
	sess, err := v.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if _, err := v.store.FindVote(ctx, sessionID, voterID, round); err == nil {
		return "", ErrDuplicateVote
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	target, err := v.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return "", fmt.Errorf("vote target %s: %w", submissionID, err)
	}
	if target.PlayerID == voterID {
		return "", ErrSelfVote
	}
	vote := &Vote{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		VoterID:      voterID,
		SubmissionID: submissionID,
		RoundNumber:  round,
		VotedAt:      v.opts.Clock(),
	}
	// the store's unique key closes the gap between FindVote and here
	if err := v.store.InsertVote(ctx, vote); err != nil {
		return "", err
	}
	log.Info().Str("code", sess.Code).Str("voterId", voterID).Str("submissionId", submissionID).Int("round", round).Msg("vote cast")
	v.opts.Notifier.SessionChanged(ctx, sess, "vote")
	return vote.ID, nil
}

// GetVoteResults maps submission id to votes received. Submissions without
// votes are absent.
func (v *Voting) GetVoteResults(ctx context.Context, sessionID string, round int) (map[string]int, error) {
	votes, err := v.store.ListVotes(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	return tally(votes), nil
}

func (v *Voting) GetPlayerVote(ctx context.Context, sessionID, voterID string, round int) (*Vote, error) {
	vote, err := v.store.FindVote(ctx, sessionID, voterID, round)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return vote, err
}

// VotingStatus reports whether every player has voted for the round.
func (v *Voting) VotingStatus(ctx context.Context, sessionID string, round int) (*VotingStatus, error) {
	sess, err := v.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	votes, err := v.store.ListVotes(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	st := &VotingStatus{VotesCast: len(votes), PlayerCount: len(sess.Players)}
	st.Complete = st.VotesCast > 0 && st.VotesCast == st.PlayerCount
	return st, nil
}

// CalculateRoundScores awards rank points for the round exactly once. Any
// number of callers may race on the same round; the guard check and the score
// write happen in a single atomic session update, so only one of them applies
// points and the rest get AlreadyCalculated.
func (v *Voting) CalculateRoundScores(ctx context.Context, sessionID string, round int) (*RoundScores, error) {
	sess, err := v.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsScored(round) {
		log.Debug().Str("code", sess.Code).Int("round", round).Msg("round already scored")
		return &RoundScores{AlreadyCalculated: true}, nil
	}
	votes, err := v.store.ListVotes(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	subs, err := v.store.ListSubmissions(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}

	counts := tally(votes)
	ranked := rankSubmissions(counts, subs, sess)
	points := make(map[string]int, len(ranked))
	for ix, r := range ranked {
		points[r.submissionID] = pointsForRank(ix)
	}
	byPlayer := make(map[string]string, len(subs))
	for _, sub := range subs {
		if _, ok := byPlayer[sub.PlayerID]; !ok {
			byPlayer[sub.PlayerID] = sub.ID
		}
	}

	updated, changed, err := updateSession(ctx, v.store, sessionID, func(s *Session) error {
		if s.IsScored(round) {
			return errUnchanged
		}
		for i := range s.Players {
			if subID, ok := byPlayer[s.Players[i].UserID]; ok {
				s.Players[i].CumulativeScore += points[subID]
			}
		}
		s.ScoredRoundNumbers = append(s.ScoredRoundNumbers, round)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &RoundScores{AlreadyCalculated: true}, nil
	}
	log.Info().Str("code", updated.Code).Int("round", round).Int("votes", len(votes)).Msg("round scored")
	v.opts.Notifier.SessionChanged(ctx, updated, "score")
	return &RoundScores{
		VoteCounts:     counts,
		PointsAwarded:  points,
		UpdatedPlayers: updated.Players,
	}, nil
}

// GetRoundWinner returns the top ranked submission for the round, or nil
// when no votes have been cast.
func (v *Voting) GetRoundWinner(ctx context.Context, sessionID string, round int) (*RoundWinner, error) {
	sess, err := v.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	votes, err := v.store.ListVotes(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return nil, nil
	}
	subs, err := v.store.ListSubmissions(ctx, sessionID, round)
	if err != nil {
		return nil, err
	}
	top := rankSubmissions(tally(votes), subs, sess)[0]
	winning, err := v.store.GetSubmission(ctx, top.submissionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &RoundWinner{PlayerID: winning.PlayerID, VoteCount: top.votes, SubmissionID: top.submissionID}, nil
}

// GetRoundLeaderboard orders players by cumulative score. Equal scores keep
// join order and still get distinct ranks.
func (v *Voting) GetRoundLeaderboard(ctx context.Context, sessionID string) ([]RankedPlayer, error) {
	sess, err := v.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Leaderboard(sess), nil
}

func Leaderboard(sess *Session) []RankedPlayer {
	players := append([]Player(nil), sess.Players...)
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].CumulativeScore > players[j].CumulativeScore
	})
	out := make([]RankedPlayer, len(players))
	for i, p := range players {
		out[i] = RankedPlayer{Player: p, Rank: i + 1}
	}
	return out
}

func tally(votes []*Vote) map[string]int {
	counts := make(map[string]int)
	for _, vote := range votes {
		counts[vote.SubmissionID]++
	}
	return counts
}

type rankedSubmission struct {
	submissionID string
	votes        int
	known        bool
	sub          *Submission
	joinIx       int
}

// rankSubmissions orders voted submissions by votes, then earliest
// submission, then the author's join order, then id. Votes for submissions
// outside the round sort after every known submission with the same count.
func rankSubmissions(counts map[string]int, subs []*Submission, sess *Session) []rankedSubmission {
	byID := make(map[string]*Submission, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}
	out := make([]rankedSubmission, 0, len(counts))
	for id, n := range counts {
		r := rankedSubmission{submissionID: id, votes: n, joinIx: len(sess.Players)}
		if sub, ok := byID[id]; ok {
			r.known = true
			r.sub = sub
			r.joinIx = sess.joinIndex(sub.PlayerID)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.votes != b.votes {
			return a.votes > b.votes
		}
		if a.known != b.known {
			return a.known
		}
		if a.known && !a.sub.SubmittedAt.Equal(b.sub.SubmittedAt) {
			return a.sub.SubmittedAt.Before(b.sub.SubmittedAt)
		}
		if a.joinIx != b.joinIx {
			return a.joinIx < b.joinIx
		}
		return a.submissionID < b.submissionID
	})
	return out
}
