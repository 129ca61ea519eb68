package main

import (
	"math/rand"
	"time"
)

// PowerupType is one of the collectible kinds
type PowerupType string

const (
	PowerupScore      PowerupType = "score"
	PowerupSlow       PowerupType = "slow"
	PowerupBigPaddle  PowerupType = "big_paddle"
	PowerupSmallBall  PowerupType = "small_ball"
	PowerupMultiplier PowerupType = "multiplier"
	PowerupExtraLife  PowerupType = "extra_life"
	PowerupReverse    PowerupType = "reverse"
)

var allPowerupTypes = []PowerupType{
	PowerupScore,
	PowerupSlow,
	PowerupBigPaddle,
	PowerupSmallBall,
	PowerupMultiplier,
	PowerupExtraLife,
	PowerupReverse,
}

const (
	PowerupSize          = 40.0
	PowerupMargin        = 10.0
	PowerupLifetime      = 5 * time.Second
	PowerupArmDelay      = 300 * time.Millisecond
	PowerupSpawnChance   = 0.05 // per tick
	PowerupPlaceAttempts = 20
	PowerupSafeRadius    = 80.0

	EffectDuration     = 4 * time.Second
	BigPaddleFactor    = 1.7
	SlowFactor         = 0.5
	ScorePowerupPoints = 5
)

// Powerup is a collectible box on the field
type Powerup struct {
	ID        int
	Type      PowerupType
	X, Y      float64
	SpawnedAt time.Time
	ExpiresAt time.Time
}

func (p *Powerup) Box() Rect {
	return Rect{X: p.X, Y: p.Y, W: PowerupSize, H: PowerupSize}
}

// Armed reports whether the powerup can be collected yet
func (p *Powerup) Armed(now time.Time) bool {
	return now.Sub(p.SpawnedAt) >= PowerupArmDelay
}

func (p *Powerup) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// ToState converts to protocol state
func (p *Powerup) ToState() PowerupState {
	return PowerupState{
		ID:        p.ID,
		Type:      string(p.Type),
		X:         p.X,
		Y:         p.Y,
		Width:     PowerupSize,
		Height:    PowerupSize,
		SpawnedAt: unixMillis(p.SpawnedAt),
		ExpiresAt: unixMillis(p.ExpiresAt),
	}
}

func isPowerupType(s string) bool {
	for _, t := range allPowerupTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

func defaultWhitelist() map[PowerupType]bool {
	w := make(map[PowerupType]bool, len(allPowerupTypes))
	for _, t := range allPowerupTypes {
		w[t] = true
	}
	return w
}

// pickPowerupType chooses uniformly among the enabled kinds
func pickPowerupType(rng *rand.Rand, whitelist map[PowerupType]bool) (PowerupType, bool) {
	var enabled []PowerupType
	for _, t := range allPowerupTypes {
		if whitelist[t] {
			enabled = append(enabled, t)
		}
	}
	if len(enabled) == 0 {
		return "", false
	}
	return enabled[rng.Intn(len(enabled))], true
}

// placementClear reports whether a powerup box at (x, y) keeps clear of
// every ball: no ball centre inside it, and its own centre at least
// PowerupSafeRadius from each ball centre.
func placementClear(x, y float64, balls []*Ball) bool {
	box := Rect{X: x, Y: y, W: PowerupSize, H: PowerupSize}
	for _, b := range balls {
		cx, cy := b.CenterX(), b.CenterY()
		if box.Contains(cx, cy) {
			return false
		}
		dx := box.CenterX() - cx
		dy := box.CenterY() - cy
		if dx*dx+dy*dy < PowerupSafeRadius*PowerupSafeRadius {
			return false
		}
	}
	return true
}

// placePowerup tries a bounded number of random spots
func placePowerup(rng *rand.Rand, balls []*Ball) (float64, float64, bool) {
	spanX := ArenaWidth - PowerupSize - 2*PowerupMargin
	spanY := ArenaHeight - PowerupSize - 2*PowerupMargin
	for i := 0; i < PowerupPlaceAttempts; i++ {
		x := float64(rng.Intn(int(spanX))) + PowerupMargin
		y := float64(rng.Intn(int(spanY))) + PowerupMargin
		if placementClear(x, y, balls) {
			return x, y, true
		}
	}
	return 0, 0, false
}

// --- Room powerup lifecycle (called with r.mu held) ---

func (r *Room) powerupStates() []PowerupState {
	out := make([]PowerupState, 0, len(r.powerups))
	for _, p := range r.powerups {
		out = append(out, p.ToState())
	}
	return out
}

func (r *Room) broadcastPowerups() {
	r.broadcastMsg(Envelope{T: MsgPowerupsUpdate, Data: r.powerupStates()})
}

func (r *Room) whitelistConfig() map[string]bool {
	out := make(map[string]bool, len(r.whitelist))
	for t, on := range r.whitelist {
		out[string(t)] = on
	}
	return out
}

// updatePowerups expires, spawns and collects powerups for one tick
func (r *Room) updatePowerups(now time.Time) {
	kept := r.powerups[:0]
	for _, p := range r.powerups {
		if !p.Expired(now) {
			kept = append(kept, p)
		}
	}
	changed := len(kept) != len(r.powerups)
	r.powerups = kept
	if changed {
		r.broadcastPowerups()
	}

	if r.powerupsEnabled && len(r.powerups) == 0 && r.rng.Float64() < PowerupSpawnChance {
		r.spawnPowerup(now)
	}

	r.collectPowerups(now)
}

func (r *Room) spawnPowerup(now time.Time) {
	t, ok := pickPowerupType(r.rng, r.whitelist)
	if !ok {
		return
	}
	x, y, ok := placePowerup(r.rng, r.balls)
	if !ok {
		return
	}
	r.nextPowerupID++
	r.powerups = append(r.powerups, &Powerup{
		ID:        r.nextPowerupID,
		Type:      t,
		X:         x,
		Y:         y,
		SpawnedAt: now,
		ExpiresAt: now.Add(PowerupLifetime),
	})
	r.broadcastPowerups()
}

// collectPowerups lets the first ball whose centre is inside an armed
// powerup pick it up. Each powerup is removed and applied exactly once.
func (r *Room) collectPowerups(now time.Time) {
	for i := 0; i < len(r.powerups); i++ {
		p := r.powerups[i]
		if !p.Armed(now) {
			continue
		}
		box := p.Box()
		for _, b := range r.balls {
			if !box.Contains(b.CenterX(), b.CenterY()) {
				continue
			}
			r.powerups = append(r.powerups[:i], r.powerups[i+1:]...)
			i--
			collector := b.LastHitPlayerID
			if r.playerByID(collector) == nil {
				collector = ""
			}
			if collector == "" && len(r.players) > 0 {
				collector = r.players[0].ID
			}
			r.broadcastPowerups()
			r.applyPowerup(p.Type, collector, now)
			if r.events != nil {
				r.events.Track(EvtPowerupCollected, collector, map[string]interface{}{"type": string(p.Type)})
			}
			break
		}
		if r.phase != PhaseActive {
			return
		}
	}
}

// applyPowerup performs the immediate part of an effect and schedules its revert
func (r *Room) applyPowerup(t PowerupType, collector string, now time.Time) {
	expires := now.Add(EffectDuration)
	switch t {
	case PowerupScore:
		if collector == "" {
			return
		}
		r.scores[collector] += ScorePowerupPoints
		r.broadcastMsg(Envelope{T: MsgScoreUpdate, Data: copyCounts(r.scores)})
		if r.mode == ModeScoreToWin {
			r.checkScoreTarget()
		}
	case PowerupSlow:
		r.speedMul = SlowFactor
		r.effects.Schedule(EffectSlow, "", expires, r.generation)
	case PowerupBigPaddle:
		pad, ok := r.paddles[collector]
		if !ok {
			return
		}
		pad.SetLength(float64(int(PaddleLength * BigPaddleFactor)))
		r.effects.Schedule(EffectBigPaddle, collector, expires, r.generation)
	case PowerupSmallBall:
		r.smallBall = true
		for _, b := range r.balls {
			b.Resize(SmallBallSize)
		}
		r.effects.Schedule(EffectSmallBall, "", expires, r.generation)
	case PowerupMultiplier:
		if collector == "" {
			return
		}
		r.multipliers[collector] = true
		r.effects.Schedule(EffectMultiplier, collector, expires, r.generation)
	case PowerupExtraLife:
		if collector == "" {
			return
		}
		r.lives[collector]++
		r.broadcastMsg(Envelope{T: MsgLivesUpdate, Data: LivesUpdateMsg{Lives: copyCounts(r.lives)}})
	case PowerupReverse:
		for _, p := range r.players {
			if p.ID == collector {
				continue
			}
			r.reversed[p.ID] = true
			r.effects.Schedule(EffectReverse, p.ID, expires, r.generation)
			r.sendTo(p.ID, Envelope{T: MsgReverseControl, Data: ReverseControlMsg{
				Active:     true,
				DurationMs: EffectDuration.Milliseconds(),
			}})
		}
	}
}

// expireEffects reverts every effect whose time is up. Reverts from an
// earlier round, or aimed at a player who has left, do nothing.
func (r *Room) expireEffects(now time.Time) {
	for _, e := range r.effects.PopDue(now) {
		if e.Gen != r.generation {
			continue
		}
		switch e.Kind {
		case EffectSlow:
			r.speedMul = 1
		case EffectSmallBall:
			r.smallBall = false
			for _, b := range r.balls {
				b.Resize(BallSize)
			}
		case EffectBigPaddle:
			if pad, ok := r.paddles[e.Target]; ok {
				pad.SetLength(PaddleLength)
			}
		case EffectMultiplier:
			if _, ok := r.multipliers[e.Target]; ok {
				r.multipliers[e.Target] = false
			}
		case EffectReverse:
			if !r.reversed[e.Target] {
				continue
			}
			delete(r.reversed, e.Target)
			r.sendTo(e.Target, Envelope{T: MsgReverseControl, Data: ReverseControlMsg{Active: false}})
		}
	}
}

// releaseReversedLocked restores every reversed player's controls and tells
// their clients. Pending reverse reverts become no-ops once the set is empty.
func (r *Room) releaseReversedLocked() {
	for _, p := range r.players {
		if r.reversed[p.ID] {
			r.sendTo(p.ID, Envelope{T: MsgReverseControl, Data: ReverseControlMsg{Active: false}})
		}
	}
	r.reversed = make(map[string]bool)
}

// TogglePowerups turns spawning on or off (host only)
func (r *Room) TogglePowerups(playerID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(playerID) {
		return ErrUnauthorized
	}
	r.powerupsEnabled = enabled
	r.broadcastMsg(Envelope{T: MsgPowerupsEnabled, Data: r.powerupsEnabled})
	return nil
}

// SetPowerupType enables or disables one kind (host only). Live powerups
// of that kind are removed when it is disabled.
func (r *Room) SetPowerupType(playerID, kind string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(playerID) {
		return ErrUnauthorized
	}
	if !isPowerupType(kind) {
		return ErrUnknownPowerup
	}
	t := PowerupType(kind)
	r.whitelist[t] = enabled
	if !enabled {
		kept := r.powerups[:0]
		for _, p := range r.powerups {
			if p.Type != t {
				kept = append(kept, p)
			}
		}
		purged := len(kept) != len(r.powerups)
		r.powerups = kept
		if purged {
			r.broadcastPowerups()
		}
	}
	r.broadcastMsg(Envelope{T: MsgPowerupsConfig, Data: r.whitelistConfig()})
	return nil
}
