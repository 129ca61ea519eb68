package main

import "sort"

// MatchPhase represents the lifecycle of a round
type MatchPhase int

const (
	PhaseLobby     MatchPhase = 0
	PhaseCountdown MatchPhase = 1
	PhaseActive    MatchPhase = 2
	PhasePaused    MatchPhase = 3
	PhaseRoundOver MatchPhase = 4
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhasePaused:
		return "paused"
	case PhaseRoundOver:
		return "round_over"
	default:
		return "lobby"
	}
}

// GameMode is the lobby mode index chosen by the host
type GameMode int

const (
	ModeClassic    GameMode = 0
	ModeDeathmatch GameMode = 1
	ModeScoreToWin GameMode = 2
)

func (m GameMode) Valid() bool {
	return m >= ModeClassic && m <= ModeScoreToWin
}

// String is the mode tag used in game-over and round records
func (m GameMode) String() string {
	switch m {
	case ModeDeathmatch:
		return "deathmatch"
	case ModeScoreToWin:
		return "score"
	default:
		return "classic"
	}
}

const (
	DeathmatchLives  = 5
	ScoreToWinTarget = 10
	ExtraBallEvery   = 10 // seconds
)

// RoundConfig holds settings for a round
type RoundConfig struct {
	Mode       GameMode
	Duration   int // seconds; 0 with TimerUp
	Direction  string
	StartLives int // deathmatch only
	ScoreLimit int // score-to-win only
}

// DefaultConfig returns default config for the given mode
func DefaultConfig(mode GameMode) RoundConfig {
	switch mode {
	case ModeDeathmatch:
		return RoundConfig{
			Mode:       ModeDeathmatch,
			Duration:   0,
			Direction:  TimerUp,
			StartLives: DeathmatchLives,
		}
	case ModeScoreToWin:
		return RoundConfig{
			Mode:       ModeScoreToWin,
			Duration:   100,
			Direction:  TimerDown,
			ScoreLimit: ScoreToWinTarget,
		}
	default:
		return RoundConfig{
			Mode:      ModeClassic,
			Duration:  60,
			Direction: TimerDown,
		}
	}
}

// missPoints is what each opponent earns when someone misses
func missPoints(multiplied bool) int {
	if multiplied {
		return 2
	}
	return 1
}

// topScorers returns every id tied for the highest score, ordered by
// roster position, and that score. ok is false when nobody has a score.
func topScorers(scores map[string]int, order []string) (ids []string, best int, ok bool) {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	for id, s := range scores {
		switch {
		case !ok || s > best:
			ids = []string{id}
			best = s
			ok = true
		case s == best:
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, iok := rank[ids[i]]
		rj, jok := rank[ids[j]]
		if iok != jok {
			return iok
		}
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	return ids, best, ok
}
