package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate     = 60 // physics ticks per second
	TickDuration = time.Second / TickRate
	MaxPlayers   = 4
	maxFrameDt   = 0.1 // seconds; caps integration after a stall
)

var (
	ErrRoomFull       = errors.New("room full")
	ErrNameTaken      = errors.New("name already taken")
	ErrUnauthorized   = errors.New("host only")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrUnknownPowerup = errors.New("unknown powerup type")
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
}

// frameSink is implemented by connections that accept pre-encoded state
// frames, so the snapshot is marshaled once per tick instead of per client.
type frameSink interface {
	SendRaw(data []byte)
	SendBinary(data []byte)
	WantsBinary() bool
}

// RoomEvents receives analytics and finished rounds. Implementations must
// not block.
type RoomEvents interface {
	Track(evtType, playerID string, data map[string]interface{})
	RecordRound(res RoundResult)
}

// Room holds the state for the single shared table. Every field is guarded
// by mu; the ticker goroutine and connection handlers both take it.
type Room struct {
	mu sync.Mutex

	players  []*Player // join order
	paddles  map[string]*Paddle
	balls    []*Ball
	nextBall int

	scores      map[string]int
	lives       map[string]int // deathmatch lives, or stored extra-life tokens
	multipliers map[string]bool
	reversed    map[string]bool

	powerups        []*Powerup
	nextPowerupID   int
	powerupsEnabled bool
	whitelist       map[PowerupType]bool

	mode         GameMode
	modeSelected bool
	phase        MatchPhase
	config       RoundConfig
	timer        MatchTimer
	speedMul     float64
	smallBall    bool
	effects      *EffectQueue
	generation   uint64

	hostID        string
	lastUpdate    time.Time
	lastBallSpawn time.Time
	pausedAt      time.Time
	roundStart    time.Time

	clients map[string]Broadcaster
	events  RoomEvents

	now  func() time.Time
	rng  *rand.Rand
	tick uint64

	running bool
	stop    chan struct{}
}

// NewRoom creates an empty room in the lobby
func NewRoom(events RoomEvents) *Room {
	r := &Room{
		paddles:     make(map[string]*Paddle),
		scores:      make(map[string]int),
		lives:       make(map[string]int),
		multipliers: make(map[string]bool),
		reversed:    make(map[string]bool),
		whitelist:   defaultWhitelist(),
		speedMul:    1,
		effects:     NewEffectQueue(),
		clients:     make(map[string]Broadcaster),
		events:      events,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:        make(chan struct{}),
	}
	r.timer.Reset()
	return r
}

// Run starts the simulation loop
func (r *Room) Run() {
	r.mu.Lock()
	r.running = true
	r.lastUpdate = r.now()
	r.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.update()
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the simulation loop
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		close(r.stop)
	}
}

// update runs one simulation tick
func (r *Room) update() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tick++
	if r.phase != PhaseActive || len(r.players) == 0 {
		r.lastUpdate = now
		return
	}
	dt := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now
	if dt < 0 {
		dt = 0
	} else if dt > maxFrameDt {
		dt = maxFrameDt
	}

	r.expireEffects(now)
	r.maybeSpawnBall(now)
	r.stepBalls(now, dt)
	if r.phase == PhaseActive {
		r.tickTimer(now)
	}
	if r.phase == PhaseActive {
		r.updatePowerups(now)
	}
	r.broadcastState()
}

// maybeSpawnBall adds a ball every ExtraBallEvery seconds of running clock
func (r *Room) maybeSpawnBall(now time.Time) {
	if !r.timer.Running {
		return
	}
	if now.Sub(r.lastBallSpawn) < ExtraBallEvery*time.Second {
		return
	}
	r.addBall(now)
}

func (r *Room) addBall(now time.Time) *Ball {
	size := BallSize
	if r.smallBall {
		size = SmallBallSize
	}
	b := NewBall(r.nextBall, spawnAngle(r.rng), size, now)
	r.nextBall++
	r.balls = append(r.balls, b)
	r.lastBallSpawn = now
	return b
}

// stepBalls integrates, resolves paddle hits, separates paddles, then
// applies wall bounces and misses. Frozen balls are skipped entirely.
func (r *Room) stepBalls(now time.Time, dt float64) {
	moving := make([]*Ball, 0, len(r.balls))
	for _, b := range r.balls {
		if b.Frozen(now) {
			continue
		}
		b.Integrate(dt, r.speedMul)
		for _, p := range r.players {
			pad, ok := r.paddles[p.ID]
			if !ok {
				continue
			}
			if ResolvePaddleHit(b, pad, p.ID) {
				break
			}
		}
		moving = append(moving, b)
	}

	r.separatePaddles()

	for _, b := range moving {
		r.handleWalls(b, now)
		if r.phase != PhaseActive {
			return
		}
	}
}

func (r *Room) separatePaddles() {
	for i, a := range r.players {
		pa, ok := r.paddles[a.ID]
		if !ok {
			continue
		}
		for _, b := range r.players[i+1:] {
			if pb, ok := r.paddles[b.ID]; ok {
				SeparatePaddles(pa, pb)
			}
		}
	}
}

// wallOwner returns the id of the player guarding w, or ""
func (r *Room) wallOwner(w Wall) string {
	for _, p := range r.players {
		if pad, ok := r.paddles[p.ID]; ok && pad.Wall == w {
			return p.ID
		}
	}
	return ""
}

func (r *Room) handleWalls(b *Ball, now time.Time) {
	for _, w := range allWalls {
		owner := r.wallOwner(w)
		if owner == "" {
			ReflectOffWall(b, w)
			continue
		}
		if PassedWall(b, w) {
			r.handleMiss(owner, b, now)
			return
		}
	}
}

func (r *Room) tickTimer(now time.Time) {
	ticks, expired := r.timer.Tick(now)
	for _, t := range ticks {
		r.broadcastMsg(Envelope{T: MsgTimerTick, Data: t})
	}
	if expired {
		r.endOnTime()
	}
}

// snapshot builds the state-update payload
func (r *Room) snapshot() GameState {
	state := GameState{
		Balls:           make([]BallState, 0, len(r.balls)),
		Paddles:         make(map[string]PaddleState, len(r.paddles)),
		Scores:          copyCounts(r.scores),
		Powerups:        r.powerupStates(),
		PowerupsEnabled: r.powerupsEnabled,
		ExtraLives:      copyCounts(r.lives),
		Mode:            r.modePtr(),
		Tick:            r.tick,
	}
	for _, b := range r.balls {
		state.Balls = append(state.Balls, b.ToState())
	}
	for id, p := range r.paddles {
		state.Paddles[id] = p.ToState()
	}
	return state
}

// broadcastState sends the current snapshot to all clients. Frames are
// encoded once; msgpack clients get a binary frame of the bare state.
func (r *Room) broadcastState() {
	state := r.snapshot()
	env := Envelope{T: MsgStateUpdate, Data: state}

	var text, bin []byte
	for _, client := range r.clients {
		sink, ok := client.(frameSink)
		if !ok {
			client.SendJSON(env)
			continue
		}
		if sink.WantsBinary() {
			if bin == nil {
				var err error
				if bin, err = encodeMsgpack(state); err != nil {
					log.Printf("msgpack encode error: %v", err)
					continue
				}
			}
			sink.SendBinary(bin)
			continue
		}
		if text == nil {
			var err error
			if text, err = json.Marshal(env); err != nil {
				log.Printf("marshal error: %v", err)
				return
			}
		}
		sink.SendRaw(text)
	}
}

// encodeMsgpack encodes v reusing its json tags as msgpack keys
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// broadcastMsg sends a message to every client in the room
func (r *Room) broadcastMsg(msg Envelope) {
	for _, client := range r.clients {
		client.SendJSON(msg)
	}
}

// broadcastExcept sends a message to every client but one
func (r *Room) broadcastExcept(skip string, msg Envelope) {
	for id, client := range r.clients {
		if id != skip {
			client.SendJSON(msg)
		}
	}
}

func (r *Room) sendTo(id string, msg Envelope) {
	if c, ok := r.clients[id]; ok {
		c.SendJSON(msg)
	}
}

func (r *Room) modePtr() *int {
	if !r.modeSelected {
		return nil
	}
	m := int(r.mode)
	return &m
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Summary returns a read-only view for the HTTP API
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		Players:         r.rosterLocked(),
		HostID:          r.hostID,
		Mode:            r.modePtr(),
		Phase:           r.phase.String(),
		Scores:          copyCounts(r.scores),
		Lives:           copyCounts(r.lives),
		Balls:           len(r.balls),
		PowerupsEnabled: r.powerupsEnabled,
		Tick:            r.tick,
	}
}

// PlayerCount returns the number of seated players
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
