package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin              = "join"
	MsgSetName           = "set-name"
	MsgModeSelected      = "mode-selected" // also echoed Server -> Client
	MsgPowerupsToggle    = "powerups-toggle"
	MsgPowerupsSetType   = "powerups-set-type"
	MsgStartGame         = "start-game"
	MsgCountdownFinished = "countdown-finished"
	MsgPaddleMove        = "paddle-move"
	MsgPlayerAction      = "player-action" // also relayed to the other players
)

// Server -> Client message types
const (
	MsgPlayerInfo      = "player-info"
	MsgUpdatePlayers   = "update-players"
	MsgScoreUpdate     = "score-update"
	MsgLivesUpdate     = "lives-update"
	MsgPowerupsEnabled = "powerups-enabled"
	MsgPowerupsConfig  = "powerups-config"
	MsgGameStart       = "game-start"
	MsgTimerUpdate     = "timer-update"
	MsgTimerTick       = "timer-tick"
	MsgPaddleUpdate    = "paddle-update"
	MsgStateUpdate     = "state-update"
	MsgPowerupsUpdate  = "powerups-update"
	MsgReverseControl  = "reverse-control"
	MsgGamePaused      = "game-paused"
	MsgQuitConfirmed   = "quit-confirmed"
	MsgForceReload     = "force-reload"
	MsgRestartGame     = "restart-game"
	MsgGameOver        = "game-over"
	MsgNameError       = "name-error"
	MsgNameAccepted    = "name-accepted"
	MsgJoinError       = "join-error"
)

// Player actions carried by player-action
const (
	ActionPause    = "pause"
	ActionContinue = "continue"
	ActionRestart  = "restart"
	ActionQuit     = "quit"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// PaddleMoveMsg is a single paddle step request
type PaddleMoveMsg struct {
	ID        string `json:"id"`
	Direction string `json:"direction"` // up, down, left, right
}

// PowerupSetTypeMsg toggles one powerup kind in the whitelist
type PowerupSetTypeMsg struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// PlayerActionMsg is sent by a client and relayed (with name) to the others
type PlayerActionMsg struct {
	Action string `json:"action"`
	Name   string `json:"name,omitempty"`
}

// Player is the roster entry sent in player-info and update-players
type Player struct {
	ID    string `json:"id"`
	Type  Role   `json:"type"`
	Color string `json:"color"`
	Name  string `json:"name"`
}

// LivesUpdateMsg carries deathmatch lives or stored extra-life tokens
type LivesUpdateMsg struct {
	Lives map[string]int `json:"lives"`
}

// GameStartMsg is broadcast when the host starts the countdown
type GameStartMsg struct {
	Message         string   `json:"message"`
	Players         []Player `json:"players"`
	Mode            *int     `json:"mode"`
	HostID          string   `json:"hostId"`
	PowerupsEnabled bool     `json:"powerupsEnabled"`
}

// TimerUpdateMsg announces a freshly started round clock
type TimerUpdateMsg struct {
	Running   bool   `json:"running"`
	StartTime int64  `json:"startTime"` // epoch ms
	Duration  int    `json:"duration"`  // seconds
	Direction string `json:"direction"`
}

// TimerTickMsg is sent whenever the displayed second changes
type TimerTickMsg struct {
	Time      int    `json:"time"`
	Direction string `json:"direction"`
	Running   bool   `json:"running"`
}

// PaddleUpdateMsg is broadcast after a paddle step
type PaddleUpdateMsg struct {
	ID  string  `json:"id"`
	Pos float64 `json:"pos"`
}

// BallState is broadcast per ball
type BallState struct {
	BallID          int     `json:"ballId"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	VX              float64 `json:"vx"`
	VY              float64 `json:"vy"`
	Speed           float64 `json:"speed"`
	Size            float64 `json:"size"`
	LastHitPlayerID string  `json:"lastHitPlayerId,omitempty"`
	FrozenUntil     int64   `json:"frozenUntil,omitempty"` // epoch ms
}

// PaddleState is broadcast per paddle, keyed by player id
type PaddleState struct {
	Pos         float64 `json:"pos"`
	Color       string  `json:"color"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Orientation string  `json:"orientation"`
	Wall        string  `json:"wall"`
	Type        Role    `json:"type"`
}

// PowerupState is broadcast per live powerup
type PowerupState struct {
	ID        int     `json:"id"`
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	SpawnedAt int64   `json:"spawnedAt"`
	ExpiresAt int64   `json:"expiresAt"`
}

// GameState is the full snapshot sent as state-update every active tick
type GameState struct {
	Balls           []BallState            `json:"balls"`
	Paddles         map[string]PaddleState `json:"paddles"`
	Scores          map[string]int         `json:"scores"`
	Powerups        []PowerupState         `json:"powerups"`
	PowerupsEnabled bool                   `json:"powerupsEnabled"`
	ExtraLives      map[string]int         `json:"extraLives"`
	Mode            *int                   `json:"mode"`
	Tick            uint64                 `json:"tick"`
}

// ReverseControlMsg tells a client its controls are (or are no longer) inverted
type ReverseControlMsg struct {
	Active     bool  `json:"active"`
	DurationMs int64 `json:"durationMs,omitempty"`
}

// GamePausedMsg is broadcast on pause, resume and round start
type GamePausedMsg struct {
	Paused bool    `json:"paused"`
	Name   *string `json:"name"`
}

// GameOverMsg ends a round
type GameOverMsg struct {
	Winners []string `json:"winners"`
	Score   *int     `json:"score,omitempty"`
	Mode    string   `json:"mode,omitempty"`
}

// RoomSummary is the read-only view served over HTTP
type RoomSummary struct {
	Players         []Player       `json:"players"`
	HostID          string         `json:"hostId"`
	Mode            *int           `json:"mode"`
	Phase           string         `json:"phase"`
	Scores          map[string]int `json:"scores"`
	Lives           map[string]int `json:"lives"`
	Balls           int            `json:"balls"`
	PowerupsEnabled bool           `json:"powerupsEnabled"`
	Tick            uint64         `json:"tick"`
}
