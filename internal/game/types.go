package game

import (
	"time"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseActive    Phase = "active"
	PhaseVoting    Phase = "voting"
	PhaseCompleted Phase = "completed"
)

type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

func (v VideoStatus) Valid() bool {
	switch v {
	case VideoPending, VideoProcessing, VideoCompleted, VideoFailed:
		return true
	}
	return false
}

const (
	CodeLength          = 6
	DefaultRoundsTarget = 3
	DefaultSessionTTL   = 2 * time.Hour
	MaxNicknameLength   = 20
	MinPlayers          = 2
)

type Player struct {
	UserID          string    `json:"userId" bson:"userId"`
	Nickname        string    `json:"nickname" bson:"nickname"`
	CumulativeScore int       `json:"cumulativeScore" bson:"cumulativeScore"`
	RoundWins       int       `json:"roundWins" bson:"roundWins"`
	IsReady         bool      `json:"isReady" bson:"isReady"`
	IsHost          bool      `json:"isHost" bson:"isHost"`
	JoinedAt        time.Time `json:"joinedAt" bson:"joinedAt"`
}

// Session is the root aggregate for one game. Players keep join order.
type Session struct {
	ID                 string    `json:"id" bson:"_id"`
	Code               string    `json:"code" bson:"code"`
	HostID             string    `json:"hostId" bson:"hostId"`
	Phase              Phase     `json:"phase" bson:"phase"`
	CurrentRoundNumber int       `json:"currentRoundNumber" bson:"currentRoundNumber"`
	CurrentPrompt      string    `json:"currentPrompt" bson:"currentPrompt"`
	RoundsCompleted    int       `json:"roundsCompleted" bson:"roundsCompleted"`
	RoundsTarget       int       `json:"roundsTarget" bson:"roundsTarget"`
	ScoredRoundNumbers []int     `json:"scoredRoundNumbers" bson:"scoredRoundNumbers"`
	Players            []Player  `json:"players" bson:"players"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt          time.Time `json:"expiresAt" bson:"expiresAt"`
}

type Submission struct {
	ID                  string      `json:"id" bson:"_id"`
	SessionID           string      `json:"sessionId" bson:"sessionId"`
	PlayerID            string      `json:"playerId" bson:"playerId"`
	RoundNumber         int         `json:"roundNumber" bson:"roundNumber"`
	FirstSceneImage     string      `json:"firstSceneImage" bson:"firstSceneImage"`
	SecondSceneImage    string      `json:"secondSceneImage" bson:"secondSceneImage"`
	FirstSceneAnalysis  string      `json:"firstSceneAnalysis,omitempty" bson:"firstSceneAnalysis,omitempty"`
	SecondSceneAnalysis string      `json:"secondSceneAnalysis,omitempty" bson:"secondSceneAnalysis,omitempty"`
	VideoURL            string      `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
	VideoStatus         VideoStatus `json:"videoStatus" bson:"videoStatus"`
	SubmittedAt         time.Time   `json:"submittedAt" bson:"submittedAt"`
	IsComplete          bool        `json:"isComplete" bson:"isComplete"`
}

type Vote struct {
	ID           string    `json:"id" bson:"_id"`
	SessionID    string    `json:"sessionId" bson:"sessionId"`
	VoterID      string    `json:"voterId" bson:"voterId"`
	SubmissionID string    `json:"submissionId" bson:"submissionId"`
	RoundNumber  int       `json:"roundNumber" bson:"roundNumber"`
	VotedAt      time.Time `json:"votedAt" bson:"votedAt"`
}

// SceneAnalyses carries the optional opaque AI payloads for both scenes.
type SceneAnalyses struct {
	First  string `json:"firstSceneAnalysis"`
	Second string `json:"secondSceneAnalysis"`
}

type RankedPlayer struct {
	Player
	Rank int `json:"rank"`
}

type RoundWinner struct {
	PlayerID     string `json:"playerId"`
	VoteCount    int    `json:"voteCount"`
	SubmissionID string `json:"submissionId"`
}

// RoundScores is the outcome of a scoring call. When AlreadyCalculated is set
// nothing else is populated and nothing was written.
type RoundScores struct {
	AlreadyCalculated bool           `json:"alreadyCalculated,omitempty"`
	VoteCounts        map[string]int `json:"voteCounts,omitempty"`
	PointsAwarded     map[string]int `json:"pointsAwarded,omitempty"`
	UpdatedPlayers    []Player       `json:"updatedPlayers,omitempty"`
}

type VotingStatus struct {
	VotesCast   int  `json:"votesCast"`
	PlayerCount int  `json:"playerCount"`
	Complete    bool `json:"complete"`
}

func (s *Session) Player(userID string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i], true
		}
	}
	return nil, false
}

func (s *Session) IsScored(round int) bool {
	for _, r := range s.ScoredRoundNumbers {
		if r == round {
			return true
		}
	}
	return false
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) joinIndex(userID string) int {
	for i, p := range s.Players {
		if p.UserID == userID {
			return i
		}
	}
	return len(s.Players)
}

// Clone returns a deep copy so callers never share the players slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.ScoredRoundNumbers = append([]int(nil), s.ScoredRoundNumbers...)
	return &out
}

func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
