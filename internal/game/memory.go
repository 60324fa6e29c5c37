package game

import (
	"context"
	"sort"
	"sync"
)

type submissionKey struct {
	sessionID string
	playerID  string
	round     int
}

type voteKey struct {
	sessionID string
	voterID   string
	round     int
}

// MemoryStore keeps everything in process. A single mutex serializes all
// writers, which makes UpdateSession trivially atomic.
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]*Session
	byCode   map[string][]string // code -> session ids, oldest first

	submissions map[string]*Submission
	subByKey    map[submissionKey]string
	subOrder    []string

	votes     map[string]*Vote
	voteByKey map[voteKey]string
	voteOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		byCode:      make(map[string][]string),
		submissions: make(map[string]*Submission),
		subByKey:    make(map[submissionKey]string),
		votes:       make(map[string]*Vote),
		voteByKey:   make(map[voteKey]string),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.byCode[s.Code] {
		if !m.sessions[id].Expired(s.CreatedAt) {
			return ErrCodeTaken
		}
	}
	m.sessions[s.ID] = s.Clone()
	m.byCode[s.Code] = append(m.byCode[s.Code], s.ID)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[id]
	if s == nil {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) GetSessionByCode(_ context.Context, code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byCode[code]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return m.sessions[ids[len(ids)-1]].Clone(), nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[id]
	if cur == nil {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.sessions[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) InsertSubmission(_ context.Context, sub *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey{sub.SessionID, sub.PlayerID, sub.RoundNumber}
	if _, ok := m.subByKey[key]; ok {
		return ErrDuplicateSubmission
	}
	m.submissions[sub.ID] = sub.Clone()
	m.subByKey[key] = sub.ID
	m.subOrder = append(m.subOrder, sub.ID)
	return nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub := m.submissions[id]
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (m *MemoryStore) UpdateSubmission(_ context.Context, id string, fn func(*Submission) error) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.submissions[id]
	if cur == nil {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	// identity fields are fixed once inserted
	next.ID, next.SessionID, next.PlayerID, next.RoundNumber = cur.ID, cur.SessionID, cur.PlayerID, cur.RoundNumber
	m.submissions[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, sessionID string, round int) ([]*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Submission{}
	for _, id := range m.subOrder {
		sub := m.submissions[id]
		if sub.SessionID == sessionID && sub.RoundNumber == round {
			out = append(out, sub.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (m *MemoryStore) FindSubmission(_ context.Context, sessionID, playerID string, round int) (*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.subByKey[submissionKey{sessionID, playerID, round}]
	if !ok {
		return nil, ErrNotFound
	}
	return m.submissions[id].Clone(), nil
}

func (m *MemoryStore) InsertVote(_ context.Context, v *Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := voteKey{v.SessionID, v.VoterID, v.RoundNumber}
	if _, ok := m.voteByKey[key]; ok {
		return ErrDuplicateVote
	}
	m.votes[v.ID] = v.Clone()
	m.voteByKey[key] = v.ID
	m.voteOrder = append(m.voteOrder, v.ID)
	return nil
}

func (m *MemoryStore) ListVotes(_ context.Context, sessionID string, round int) ([]*Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Vote{}
	for _, id := range m.voteOrder {
		v := m.votes[id]
		if v.SessionID == sessionID && v.RoundNumber == round {
			out = append(out, v.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VotedAt.Before(out[j].VotedAt) })
	return out, nil
}

func (m *MemoryStore) FindVote(_ context.Context, sessionID, voterID string, round int) (*Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.voteByKey[voteKey{sessionID, voterID, round}]
	if !ok {
		return nil, ErrNotFound
	}
	return m.votes[id].Clone(), nil
}
