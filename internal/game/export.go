package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportRound appends a human readable summary of a scored round to filename.
func ExportRound(filename string, s *Session, round int, subs []*Submission, scores *RoundScores) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(renderRound(s, round, subs, scores, !fileExists)); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func renderRound(s *Session, round int, subs []*Submission, scores *RoundScores, firstInFile bool) string {
	var sb strings.Builder
	names := make(map[string]string, len(s.Players))
	for _, p := range s.Players {
		names[p.UserID] = p.Nickname
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown"
	}

	if round == 1 {
		if !firstInFile {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("sketchdash results - Session %s\n", s.Code))
		sb.WriteString(fmt.Sprintf("Started: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
		sb.WriteString("Players:\n")
		for _, p := range s.Players {
			sb.WriteString(fmt.Sprintf("- %s\n", p.Nickname))
		}
		sb.WriteString("\n")
	}

	prompt := ""
	if round == s.CurrentRoundNumber {
		prompt = s.CurrentPrompt
	}
	sb.WriteString(fmt.Sprintf("Round %d: %q\n", round, prompt))
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	if len(subs) > 0 {
		sb.WriteString("Submissions:\n")
		for _, sub := range subs {
			votes, pts := 0, 0
			if scores != nil {
				votes = scores.VoteCounts[sub.ID]
				pts = scores.PointsAwarded[sub.ID]
			}
			sb.WriteString(fmt.Sprintf("- %s: %d vote(s), +%d points, video %s\n", nameOf(sub.PlayerID), votes, pts, sub.VideoStatus))
		}
	}

	standings := Leaderboard(s)
	if scores != nil && len(scores.UpdatedPlayers) > 0 {
		standings = Leaderboard(&Session{Players: scores.UpdatedPlayers})
	}
	sb.WriteString("\nScores after this round:\n")
	for _, p := range standings {
		sb.WriteString(fmt.Sprintf("%d. %s: %d points\n", p.Rank, p.Nickname, p.CumulativeScore))
	}
	sb.WriteString("\n")

	if round >= s.RoundsTarget {
		sb.WriteString(fmt.Sprintf("Game ended at %s\n", time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
	}
	return sb.String()
}
