package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// envelopes returns every captured envelope of type t, oldest first
func (m *mockBroadcaster) envelopes(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) last(t string) (Envelope, bool) {
	envs := m.envelopes(t)
	if len(envs) == 0 {
		return Envelope{}, false
	}
	return envs[len(envs)-1], true
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRoom() (*Room, *fakeClock) {
	r := NewRoom(nil)
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	r.now = clk.Now
	r.rng = rand.New(rand.NewSource(1))
	return r, clk
}

func seatPlayers(t *testing.T, r *Room, n int) ([]string, []*mockBroadcaster) {
	t.Helper()
	ids := make([]string, n)
	mocks := make([]*mockBroadcaster, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("p%d", i+1)
		mocks[i] = &mockBroadcaster{}
		if _, err := r.Join(ids[i], mocks[i]); err != nil {
			t.Fatalf("join %s: %v", ids[i], err)
		}
	}
	return ids, mocks
}

// startRound selects mode as host, starts and finishes the countdown
func startRound(t *testing.T, r *Room, host string, mode GameMode) {
	t.Helper()
	if err := r.SelectMode(host, mode); err != nil {
		t.Fatalf("select mode: %v", err)
	}
	if err := r.StartGame(host); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if err := r.FinishCountdown(host); err != nil {
		t.Fatalf("countdown finished: %v", err)
	}
}

func stepTick(r *Room, clk *fakeClock) {
	clk.Advance(TickDuration)
	r.update()
}

// looseBall replaces the room's balls with one unfrozen ball
func looseBall(r *Room, x, y, vx, vy float64) *Ball {
	b := &Ball{ID: 99, X: x, Y: y, VX: vx, VY: vy, Speed: BallSpeed, Size: BallSize}
	r.balls = []*Ball{b}
	return b
}

func TestJoinAssignsRolesInOrder(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 4)

	wantRoles := []Role{RoleHost, RolePlayer2, RolePlayer3, RolePlayer4}
	wantColors := []string{"purple", "red", "blue", "green"}
	wantWalls := []Wall{WallLeft, WallRight, WallTop, WallBottom}
	for i, p := range r.players {
		if p.Type != wantRoles[i] || p.Color != wantColors[i] {
			t.Errorf("player %d: got %s/%s, want %s/%s", i, p.Type, p.Color, wantRoles[i], wantColors[i])
		}
		if pad := r.paddles[ids[i]]; pad == nil || pad.Wall != wantWalls[i] {
			t.Errorf("player %d: paddle wall mismatch", i)
		}
	}
	if r.hostID != ids[0] {
		t.Errorf("expected host %s, got %s", ids[0], r.hostID)
	}

	info, ok := mocks[1].last(MsgPlayerInfo)
	if !ok {
		t.Fatal("player2 did not receive player-info")
	}
	if p := info.Data.(Player); p.ID != ids[1] || p.Type != RolePlayer2 {
		t.Errorf("unexpected player-info %+v", p)
	}
	if _, ok := mocks[1].last(MsgPowerupsConfig); !ok {
		t.Error("joiner should receive powerups-config")
	}
}

func TestJoinRoomFull(t *testing.T) {
	r, _ := newTestRoom()
	seatPlayers(t, r, 4)

	extra := &mockBroadcaster{}
	if _, err := r.Join("p5", extra); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if r.PlayerCount() != 4 {
		t.Errorf("expected 4 players, got %d", r.PlayerCount())
	}
	if _, ok := r.clients["p5"]; ok {
		t.Error("rejected connection should not be attached")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	r, _ := newTestRoom()
	m := &mockBroadcaster{}
	r.Join("a", m)
	r.Join("a", m)
	if r.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", r.PlayerCount())
	}
}

func TestLeavePromotesHostAndFreesRole(t *testing.T) {
	r, _ := newTestRoom()
	ids, _ := seatPlayers(t, r, 3)

	r.Leave(ids[0])
	if r.hostID != ids[1] {
		t.Fatalf("expected %s promoted to host, got %s", ids[1], r.hostID)
	}
	if _, ok := r.paddles[ids[0]]; ok {
		t.Error("paddle should be removed with its player")
	}

	p, err := r.Join("late", &mockBroadcaster{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Type != RoleHost {
		t.Errorf("newcomer should take the first free seat, got %s", p.Type)
	}
	if r.hostID != ids[1] {
		t.Error("newcomer must not take over an existing host")
	}
}

func TestLastLeaveResetsRoom(t *testing.T) {
	r, _ := newTestRoom()
	ids, _ := seatPlayers(t, r, 1)
	r.SelectMode(ids[0], ModeScoreToWin)
	r.TogglePowerups(ids[0], true)

	r.Leave(ids[0])
	if r.modeSelected || r.powerupsEnabled || r.phase != PhaseLobby || r.hostID != "" {
		t.Errorf("room not reset: mode=%v powerups=%v phase=%v host=%q", r.modeSelected, r.powerupsEnabled, r.phase, r.hostID)
	}
}

func TestSetName(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)

	if _, err := r.SetName(ids[0], "  Alice "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.players[0].Name != "Alice" {
		t.Errorf("expected trimmed name, got %q", r.players[0].Name)
	}
	if env, ok := mocks[0].last(MsgNameAccepted); !ok || env.Data != "Alice" {
		t.Error("expected name-accepted for Alice")
	}

	cases := []string{"alice", "A L I C E", "Player 2", "HOST"}
	for _, name := range cases {
		if _, err := r.SetName(ids[1], name); !errors.Is(err, ErrNameTaken) {
			t.Errorf("%q: expected ErrNameTaken, got %v", name, err)
		}
	}
	if r.players[1].Name != "" {
		t.Errorf("rejected name must not stick, got %q", r.players[1].Name)
	}
	if got := len(mocks[1].envelopes(MsgNameError)); got != len(cases) {
		t.Errorf("expected %d name-error messages, got %d", len(cases), got)
	}

	// re-submitting your own name counts as a collision too
	if _, err := r.SetName(ids[0], "alice"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected own name to collide, got %v", err)
	}

	if _, err := r.SetName(ids[1], "   "); err != nil || r.players[1].Name != "" {
		t.Error("blank names should be ignored")
	}
}

func TestHostOnlyActionsIgnored(t *testing.T) {
	r, _ := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)

	if err := r.SelectMode(ids[1], ModeDeathmatch); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.StartGame(ids[1]); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.FinishCountdown(ids[1]); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.TogglePowerups(ids[1], true); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if r.modeSelected || r.phase != PhaseLobby || r.powerupsEnabled {
		t.Error("non-host actions must not change state")
	}
}

func TestMovePaddleClampInvariant(t *testing.T) {
	r, _ := newTestRoom()
	ids, _ := seatPlayers(t, r, 3)

	for i := 0; i < 200; i++ {
		r.MovePaddle(ids[0], ids[0], "up")
		if pos := r.paddles[ids[0]].Pos; pos < 0 || pos > ArenaHeight-PaddleLength {
			t.Fatalf("pos %v out of range", pos)
		}
	}
	if r.paddles[ids[0]].Pos != 0 {
		t.Errorf("expected pos 0, got %v", r.paddles[ids[0]].Pos)
	}
	for i := 0; i < 200; i++ {
		r.MovePaddle(ids[2], "", "right")
	}
	if want := ArenaWidth - PaddleLength; r.paddles[ids[2]].Pos != want {
		t.Errorf("expected pos %v, got %v", want, r.paddles[ids[2]].Pos)
	}
}

func TestMovePaddleOtherPlayerIgnored(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	before := r.paddles[ids[1]].Pos

	if err := r.MovePaddle(ids[0], ids[1], "down"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if r.paddles[ids[1]].Pos != before {
		t.Error("paddle of another player must not move")
	}
	if _, ok := mocks[1].last(MsgPaddleUpdate); ok {
		t.Error("no paddle-update expected")
	}
}

func TestMovePaddleReversedAppliedAsSent(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)
	r.applyPowerup(PowerupReverse, ids[0], clk.Now())

	if env, ok := mocks[1].last(MsgReverseControl); !ok || !env.Data.(ReverseControlMsg).Active {
		t.Fatal("opponent should be told controls are reversed")
	}
	before := r.paddles[ids[1]].Pos
	r.MovePaddle(ids[1], ids[1], "up")
	if got := r.paddles[ids[1]].Pos; got != before-PaddleStep {
		t.Errorf("client already maps reversed keys, up should move up: %v -> %v", before, got)
	}
}

func TestCountdownFinishedClassic(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	start, ok := mocks[1].last(MsgGameStart)
	if !ok || start.Data.(GameStartMsg).Message != "The host started the game!" {
		t.Error("expected game-start broadcast")
	}

	env, ok := mocks[1].last(MsgScoreUpdate)
	if !ok {
		t.Fatal("expected score-update")
	}
	scores := env.Data.(map[string]int)
	if len(scores) != 2 || scores[ids[0]] != 0 || scores[ids[1]] != 0 {
		t.Errorf("unexpected scores %v", scores)
	}

	env, ok = mocks[1].last(MsgTimerUpdate)
	if !ok {
		t.Fatal("expected timer-update")
	}
	tu := env.Data.(TimerUpdateMsg)
	if tu.Duration != 60 || tu.Direction != TimerDown || !tu.Running {
		t.Errorf("unexpected timer-update %+v", tu)
	}

	if r.phase != PhaseActive || len(r.balls) != 1 {
		t.Fatalf("expected active round with 1 ball, phase=%v balls=%d", r.phase, len(r.balls))
	}
	if r.balls[0].FrozenUntil.IsZero() {
		t.Error("fresh ball should be frozen")
	}
}

func TestCountdownFinishedDeathmatchSetsLives(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeDeathmatch)

	env, ok := mocks[2].last(MsgLivesUpdate)
	if !ok {
		t.Fatal("expected lives-update")
	}
	for _, id := range ids {
		if env.Data.(LivesUpdateMsg).Lives[id] != DeathmatchLives {
			t.Errorf("%s should start with %d lives", id, DeathmatchLives)
		}
	}
	if r.timer.Direction != TimerUp {
		t.Error("deathmatch timer counts up")
	}
}

func TestFrozenBallDoesNotMove(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	b := r.balls[0]
	x, y := b.X, b.Y
	for i := 0; i < 30; i++ {
		stepTick(r, clk)
		if b.X != x || b.Y != y {
			t.Fatalf("frozen ball moved on tick %d", i)
		}
	}
	clk.Advance(SpawnFreeze)
	stepTick(r, clk)
	if b.X == x && b.Y == y {
		t.Error("ball should move once the freeze expires")
	}
}

func TestNoBroadcastOutsideActiveRound(t *testing.T) {
	r, clk := newTestRoom()
	_, mocks := seatPlayers(t, r, 2)
	stepTick(r, clk)
	if _, ok := mocks[0].last(MsgStateUpdate); ok {
		t.Error("lobby ticks must not broadcast state")
	}
}

func TestEmptyRoomTickIsSafe(t *testing.T) {
	r, clk := newTestRoom()
	r.phase = PhaseActive
	stepTick(r, clk)
	if r.tick != 1 {
		t.Errorf("expected tick 1, got %d", r.tick)
	}
}

func TestBallBouncesOffRightPaddle(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)
	r.paddles[ids[1]].Pos = 260

	b := looseBall(r, 595, 300, 50, 0)
	stepTick(r, clk)

	if b.VX >= 0 {
		t.Errorf("expected vx < 0, got %v", b.VX)
	}
	if b.X != ArenaWidth-PaddleThickness-BallSize {
		t.Errorf("expected ball flush at %v, got %v", ArenaWidth-PaddleThickness-BallSize, b.X)
	}
	if b.LastHitPlayerID != ids[1] {
		t.Errorf("expected last hit %s, got %s", ids[1], b.LastHitPlayerID)
	}
}

func TestClassicMissAwardsOthers(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeClassic)
	r.multipliers[ids[2]] = true

	looseBall(r, ArenaWidth+1, 300, 100, 0)
	stepTick(r, clk)

	if r.scores[ids[0]] != 1 || r.scores[ids[1]] != 0 || r.scores[ids[2]] != 2 {
		t.Errorf("unexpected scores %v", r.scores)
	}
	if _, ok := mocks[0].last(MsgScoreUpdate); !ok {
		t.Error("expected score-update")
	}
	b := r.balls[0]
	if b.X != ArenaWidth/2-BallSize/2 || !b.Frozen(clk.Now()) {
		t.Error("ball should be re-centred and frozen after a miss")
	}
}

func TestClassicExtraLifeAbsorbsMiss(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)
	r.lives[ids[1]] = 1

	looseBall(r, ArenaWidth+1, 300, 100, 0)
	stepTick(r, clk)

	if r.lives[ids[1]] != 0 {
		t.Errorf("token should be consumed, lives=%d", r.lives[ids[1]])
	}
	if r.scores[ids[0]] != 0 {
		t.Errorf("no points for a forgiven miss, got %d", r.scores[ids[0]])
	}
	if b := r.balls[0]; b.X != ArenaWidth/2-BallSize/2 {
		t.Error("ball should be re-centred after a forgiven miss")
	}
}

func TestDeathmatchEliminationAndWin(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeDeathmatch)

	for i := 0; i < DeathmatchLives; i++ {
		if r.phase != PhaseActive {
			t.Fatalf("round ended early after %d misses", i)
		}
		if _, ok := r.paddles[ids[1]]; !ok {
			t.Fatalf("paddle removed early after %d misses", i)
		}
		looseBall(r, ArenaWidth+1, 300, 100, 0)
		stepTick(r, clk)
	}

	if _, ok := r.paddles[ids[1]]; ok {
		t.Error("paddle should be removed at 0 lives")
	}
	if r.phase != PhaseRoundOver {
		t.Errorf("expected round over, got %v", r.phase)
	}
	env, ok := mocks[0].last(MsgGameOver)
	if !ok {
		t.Fatal("expected game-over")
	}
	over := env.Data.(GameOverMsg)
	if len(over.Winners) != 1 || over.Winners[0] != "host" || over.Mode != "deathmatch" {
		t.Errorf("unexpected game-over %+v", over)
	}
}

func TestDeathmatchEliminatedWallReflects(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeDeathmatch)
	r.lives[ids[1]] = 1

	looseBall(r, ArenaWidth+1, 300, 100, 0)
	stepTick(r, clk)
	if _, ok := r.paddles[ids[1]]; ok {
		t.Fatal("player2 should be eliminated")
	}
	if r.phase != PhaseActive {
		t.Fatal("two survivors remain; round continues")
	}

	b := looseBall(r, ArenaWidth-BallSize-1, 300, 100, 0)
	stepTick(r, clk)
	if b.VX >= 0 || b.X > ArenaWidth-BallSize {
		t.Errorf("unguarded wall should reflect, vx=%v x=%v", b.VX, b.X)
	}
}

func TestDeathmatchLeaveHandsWin(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeDeathmatch)

	r.Leave(ids[1])
	if r.phase != PhaseRoundOver {
		t.Fatalf("expected round over, got %v", r.phase)
	}
	if _, ok := mocks[0].last(MsgGameOver); !ok {
		t.Error("survivor should receive game-over")
	}
}

func TestScoreToWinEndsAtTarget(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeScoreToWin)
	r.SetName(ids[0], "Ada")
	r.scores[ids[0]] = ScoreToWinTarget - 1

	looseBall(r, ArenaWidth+1, 300, 100, 0)
	stepTick(r, clk)

	if r.phase != PhaseRoundOver {
		t.Fatalf("expected round over, got %v", r.phase)
	}
	env, _ := mocks[1].last(MsgGameOver)
	over := env.Data.(GameOverMsg)
	if len(over.Winners) != 1 || over.Winners[0] != "Ada" || over.Mode != "score" {
		t.Errorf("unexpected game-over %+v", over)
	}
}

func TestTimerExpiryDeclaresTopScorers(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeClassic)
	r.scores[ids[0]] = 3
	r.scores[ids[1]] = 3
	r.scores[ids[2]] = 1

	clk.Advance(61 * time.Second)
	r.update()

	if r.phase != PhaseRoundOver {
		t.Fatalf("expected round over, got %v", r.phase)
	}
	env, ok := mocks[2].last(MsgGameOver)
	if !ok {
		t.Fatal("expected game-over")
	}
	over := env.Data.(GameOverMsg)
	if len(over.Winners) != 2 || over.Winners[0] != "host" || over.Winners[1] != "player2" {
		t.Errorf("unexpected winners %v", over.Winners)
	}
	if over.Score == nil || *over.Score != 3 {
		t.Errorf("expected score 3, got %v", over.Score)
	}
	ticks := mocks[2].envelopes(MsgTimerTick)
	if last := ticks[len(ticks)-1].Data.(TimerTickMsg); last.Running || last.Time != 0 {
		t.Errorf("final tick should report 0 and stopped, got %+v", last)
	}
}

func TestPauseDoesNotLeakTime(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	clk.Advance(15 * time.Second)
	r.update()
	if v := r.timer.Value(clk.Now()); v != 45 {
		t.Fatalf("expected 45 remaining, got %d", v)
	}

	r.PlayerAction(ids[1], ActionPause)
	if r.phase != PhasePaused {
		t.Fatalf("expected paused, got %v", r.phase)
	}
	if env, ok := mocks[0].last(MsgPlayerAction); !ok || env.Data.(PlayerActionMsg).Name != "player2" {
		t.Error("host should be told who paused")
	}

	mocks[0].reset()
	clk.Advance(5 * time.Second)
	r.update()
	if _, ok := mocks[0].last(MsgStateUpdate); ok {
		t.Error("paused ticks must not broadcast state")
	}

	r.PlayerAction(ids[1], ActionContinue)
	if v := r.timer.Value(clk.Now()); v != 45 {
		t.Errorf("expected 45 remaining after resume, got %d", v)
	}
	if r.phase != PhaseActive {
		t.Errorf("expected active, got %v", r.phase)
	}
}

func TestPauseOutsideRoundIgnored(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)

	r.PlayerAction(ids[1], ActionPause)
	r.PlayerAction(ids[1], ActionContinue)
	if _, ok := mocks[0].last(MsgGamePaused); ok {
		t.Error("game-paused must not be sent from the lobby")
	}
	if r.phase != PhaseLobby {
		t.Errorf("expected lobby, got %v", r.phase)
	}

	startRound(t, r, ids[0], ModeClassic)
	mocks[0].reset()
	r.PlayerAction(ids[1], ActionContinue)
	if _, ok := mocks[0].last(MsgGamePaused); ok {
		t.Error("continue without a pause must not be sent")
	}
	r.PlayerAction(ids[1], ActionPause)
	env, ok := mocks[0].last(MsgGamePaused)
	if !ok || !env.Data.(GamePausedMsg).Paused {
		t.Error("expected game-paused while active")
	}
}

func TestPauseShiftsBallFreeze(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)
	b := r.balls[0]

	clk.Advance(500 * time.Millisecond)
	r.PlayerAction(ids[0], ActionPause)
	clk.Advance(5 * time.Second)
	r.PlayerAction(ids[0], ActionContinue)

	if !b.Frozen(clk.Now()) {
		t.Error("ball freeze should not run out while paused")
	}
	clk.Advance(600 * time.Millisecond)
	if b.Frozen(clk.Now()) {
		t.Error("ball should be released after the remaining freeze")
	}
}

func TestExtraBallEveryTenSeconds(t *testing.T) {
	r, clk := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	clk.Advance(ExtraBallEvery * time.Second)
	r.update()
	if len(r.balls) != 2 {
		t.Fatalf("expected 2 balls, got %d", len(r.balls))
	}
	if r.balls[0].ID == r.balls[1].ID {
		t.Error("ball ids must be unique")
	}
}

func TestRestartReturnsToCountdown(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	r.PlayerAction(ids[1], ActionRestart)
	if r.phase != PhaseCountdown {
		t.Errorf("expected countdown, got %v", r.phase)
	}
	if _, ok := mocks[0].last(MsgRestartGame); !ok {
		t.Error("expected restart-game")
	}
}

func TestRestartDuringReverseRestoresControls(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeClassic)
	r.applyPowerup(PowerupReverse, ids[0], clk.Now())

	r.PlayerAction(ids[0], ActionRestart)
	if len(r.reversed) != 0 {
		t.Errorf("restart should clear reversed players, got %v", r.reversed)
	}
	for _, m := range mocks[1:] {
		env, ok := m.last(MsgReverseControl)
		if !ok || env.Data.(ReverseControlMsg).Active {
			t.Error("reversed player should get reverse-control inactive")
		}
	}
	if envs := mocks[0].envelopes(MsgReverseControl); len(envs) != 0 {
		t.Errorf("collector was never reversed, got %d messages", len(envs))
	}

	mocks[1].reset()
	if err := r.FinishCountdown(ids[0]); err != nil {
		t.Fatal(err)
	}
	clk.Advance(EffectDuration)
	r.update()
	if envs := mocks[1].envelopes(MsgReverseControl); len(envs) != 0 {
		t.Errorf("stale reverse revert must not fire, got %d", len(envs))
	}
}

func TestRoundOverRestoresControls(t *testing.T) {
	r, clk := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeScoreToWin)
	r.applyPowerup(PowerupReverse, ids[0], clk.Now())
	r.scores[ids[0]] = ScoreToWinTarget - 1

	looseBall(r, ArenaWidth+1, 300, 100, 0)
	stepTick(r, clk)

	if r.phase != PhaseRoundOver {
		t.Fatalf("expected round over, got %v", r.phase)
	}
	env, ok := mocks[1].last(MsgReverseControl)
	if !ok || env.Data.(ReverseControlMsg).Active {
		t.Error("controls should be restored when the round ends")
	}
	if len(r.reversed) != 0 {
		t.Errorf("expected no reversed players, got %v", r.reversed)
	}
}

func TestHostQuitResetsAndReloads(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeClassic)

	r.PlayerAction(ids[0], ActionQuit)

	if _, ok := mocks[0].last(MsgQuitConfirmed); !ok {
		t.Error("quitter should get quit-confirmed")
	}
	if env, ok := mocks[1].last(MsgPlayerAction); !ok || env.Data.(PlayerActionMsg).Action != ActionQuit {
		t.Error("others should be told about the quit")
	}
	if _, ok := mocks[1].last(MsgForceReload); !ok {
		t.Error("expected force-reload after host quit")
	}
	if r.hostID != ids[1] || r.phase != PhaseLobby || len(r.balls) != 0 {
		t.Errorf("room not reset: host=%s phase=%v balls=%d", r.hostID, r.phase, len(r.balls))
	}
	if _, ok := r.clients[ids[0]]; ok {
		t.Error("quitter should be detached")
	}
}

func TestPlayerQuitKeepsRound(t *testing.T) {
	r, _ := newTestRoom()
	ids, mocks := seatPlayers(t, r, 3)
	startRound(t, r, ids[0], ModeClassic)

	r.PlayerAction(ids[2], ActionQuit)
	if _, ok := mocks[0].last(MsgForceReload); ok {
		t.Error("non-host quit must not force a reload")
	}
	if r.phase != PhaseActive || r.PlayerCount() != 2 {
		t.Errorf("round should continue with 2 players, phase=%v", r.phase)
	}
}

func TestSummary(t *testing.T) {
	r, _ := newTestRoom()
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeScoreToWin)

	s := r.Summary()
	if len(s.Players) != 2 || s.HostID != ids[0] || s.Phase != "active" || s.Balls != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Mode == nil || *s.Mode != int(ModeScoreToWin) {
		t.Errorf("expected mode 2, got %v", s.Mode)
	}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []string
	rounds []RoundResult
}

func (e *recordingEvents) Track(evtType, playerID string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evtType)
}

func (e *recordingEvents) RecordRound(res RoundResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rounds = append(e.rounds, res)
}

func TestRoundResultRecorded(t *testing.T) {
	r, clk := newTestRoom()
	rec := &recordingEvents{}
	r.events = rec
	ids, _ := seatPlayers(t, r, 2)
	startRound(t, r, ids[0], ModeScoreToWin)
	r.scores[ids[1]] = ScoreToWinTarget - 1

	clk.Advance(3 * time.Second)
	looseBall(r, -BallSize-1, 300, -100, 0)
	r.update()

	if len(rec.rounds) != 1 {
		t.Fatalf("expected 1 recorded round, got %d", len(rec.rounds))
	}
	res := rec.rounds[0]
	if res.Mode != "score" || len(res.WinnerIDs) != 1 || res.WinnerIDs[0] != ids[1] || res.Score != ScoreToWinTarget {
		t.Errorf("unexpected round %+v", res)
	}
	if res.Duration < 3 {
		t.Errorf("expected duration >= 3s, got %v", res.Duration)
	}
}
