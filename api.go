package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
)

const (
	defaultRoundsLimit = 20
	maxRoundsLimit     = 200
	defaultEventDays   = 7
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/room", s.handleRoom)
	r.Get("/rounds", s.handleRounds)
	r.Get("/events", s.handleEvents)
	r.Get("/protocol/schema", handleSchema)

	r.Post("/admin/login", s.handleAdminLogin)
	r.With(s.requireAdmin).Post("/admin/reset", s.handleAdminReset)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"conns":   s.hub.TotalConns(),
		"players": s.hub.room.PlayerCount(),
	})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.room.Summary())
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRoundsLimit)
	if limit <= 0 || limit > maxRoundsLimit {
		limit = defaultRoundsLimit
	}
	if s.db == nil {
		writeJSON(w, http.StatusOK, []RoundResult{})
		return
	}
	rounds, err := s.db.RecentRounds(limit)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultEventDays)
	if days <= 0 {
		days = defaultEventDays
	}
	if s.analytics == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": map[string]int{}, "modes": []ModeAnalytics{}})
		return
	}
	counts, err := s.analytics.EventCounts(days)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "database error")
		return
	}
	modes, err := s.analytics.ModeStats(days)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": counts, "modes": modes})
}

// protocolDoc lists the payloads a client has to understand
type protocolDoc struct {
	Envelope       InEnvelope        `json:"envelope"`
	PaddleMove     PaddleMoveMsg     `json:"paddleMove"`
	PowerupSetType PowerupSetTypeMsg `json:"powerupSetType"`
	PlayerAction   PlayerActionMsg   `json:"playerAction"`
	Player         Player            `json:"player"`
	GameStart      GameStartMsg      `json:"gameStart"`
	TimerUpdate    TimerUpdateMsg    `json:"timerUpdate"`
	TimerTick      TimerTickMsg      `json:"timerTick"`
	PaddleUpdate   PaddleUpdateMsg   `json:"paddleUpdate"`
	State          GameState         `json:"state"`
	LivesUpdate    LivesUpdateMsg    `json:"livesUpdate"`
	ReverseControl ReverseControlMsg `json:"reverseControl"`
	GamePaused     GamePausedMsg     `json:"gamePaused"`
	GameOver       GameOverMsg       `json:"gameOver"`
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonschema.Reflect(&protocolDoc{}))
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || !s.auth.Enabled() {
		errorJSON(w, http.StatusNotFound, "admin disabled")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	token, err := s.auth.Login(req.Password, extractIP(r))
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil || !s.auth.Enabled() {
			errorJSON(w, http.StatusNotFound, "admin disabled")
			return
		}
		if err := s.auth.ValidateToken(bearerToken(r.Header.Get("Authorization"))); err != nil {
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	s.hub.room.ForceReset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
