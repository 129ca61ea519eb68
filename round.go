package main

import (
	"log"
	"time"
)

// SelectMode stores the host's lobby mode and echoes it to everyone
func (r *Room) SelectMode(id string, mode GameMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(id) {
		return ErrUnauthorized
	}
	if !mode.Valid() {
		return nil
	}
	r.mode = mode
	r.modeSelected = true
	r.broadcastMsg(Envelope{T: MsgModeSelected, Data: int(mode)})
	return nil
}

// StartGame moves the lobby into the countdown (host only)
func (r *Room) StartGame(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(id) {
		return ErrUnauthorized
	}
	r.phase = PhaseCountdown
	r.broadcastMsg(Envelope{T: MsgGameStart, Data: GameStartMsg{
		Message:         "The host started the game!",
		Players:         r.rosterLocked(),
		Mode:            r.modePtr(),
		HostID:          r.hostID,
		PowerupsEnabled: r.powerupsEnabled,
	}})
	return nil
}

// FinishCountdown begins a round in the selected mode (host only)
func (r *Room) FinishCountdown(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isHost(id) {
		return ErrUnauthorized
	}
	r.startRoundLocked(r.now())
	return nil
}

func (r *Room) startRoundLocked(now time.Time) {
	r.releaseReversedLocked()
	r.generation++
	r.effects.Clear()
	r.config = DefaultConfig(r.mode)

	for _, p := range r.players {
		r.multipliers[p.ID] = false
		if r.mode == ModeDeathmatch {
			r.lives[p.ID] = r.config.StartLives
		} else {
			r.scores[p.ID] = 0
			r.lives[p.ID] = 0
		}
		if pad, ok := r.paddles[p.ID]; ok {
			pad.SetLength(PaddleLength)
		} else {
			r.paddles[p.ID] = NewPaddle(p.Type)
		}
	}
	r.speedMul = 1
	r.smallBall = false
	r.powerups = nil
	r.timer.Start(now, r.config.Duration, r.config.Direction)
	r.phase = PhaseActive
	r.pausedAt = time.Time{}
	r.lastUpdate = now
	r.roundStart = now

	r.broadcastMsg(Envelope{T: MsgGamePaused, Data: GamePausedMsg{Paused: false}})
	if r.mode == ModeDeathmatch {
		r.broadcastMsg(Envelope{T: MsgLivesUpdate, Data: LivesUpdateMsg{Lives: copyCounts(r.lives)}})
	} else {
		r.broadcastMsg(Envelope{T: MsgScoreUpdate, Data: copyCounts(r.scores)})
	}
	r.broadcastMsg(Envelope{T: MsgPowerupsConfig, Data: r.whitelistConfig()})
	r.broadcastMsg(Envelope{T: MsgTimerUpdate, Data: r.timer.UpdateMsg()})

	r.balls = nil
	r.addBall(now)

	if r.events != nil {
		r.events.Track(EvtRoundStart, r.hostID, map[string]interface{}{
			"mode":    r.mode.String(),
			"players": len(r.players),
		})
	}
}

// MovePaddle steps the sender's paddle. target must be the sender (or
// empty); moves for anyone else are ignored. Reversed controls are mapped
// by the client after reverse-control, so direction is applied as sent.
func (r *Room) MovePaddle(id, target, direction string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if target != "" && target != id {
		return ErrUnauthorized
	}
	pad, ok := r.paddles[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if !pad.Move(direction) {
		return nil
	}
	r.broadcastMsg(Envelope{T: MsgPaddleUpdate, Data: PaddleUpdateMsg{ID: id, Pos: pad.Pos}})
	return nil
}

// PlayerAction handles pause, continue, restart and quit
func (r *Room) PlayerAction(id, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(id)
	if p == nil {
		return
	}
	name := r.displayName(id)
	r.broadcastExcept(id, Envelope{T: MsgPlayerAction, Data: PlayerActionMsg{Action: action, Name: name}})

	switch action {
	case ActionPause:
		r.pauseLocked(name)
	case ActionContinue:
		r.resumeLocked(name)
	case ActionRestart:
		r.releaseReversedLocked()
		r.phase = PhaseCountdown
		r.broadcastMsg(Envelope{T: MsgRestartGame})
	case ActionQuit:
		wasHost := r.isHost(id)
		r.removePlayerLocked(id)
		r.sendTo(id, Envelope{T: MsgQuitConfirmed})
		if wasHost || len(r.players) == 0 {
			if len(r.players) > 0 {
				r.resetLocked(false)
			}
			r.broadcastMsg(Envelope{T: MsgForceReload})
		}
		delete(r.clients, id)
	}
}

func (r *Room) pauseLocked(name string) {
	if r.phase != PhaseActive {
		return
	}
	r.broadcastMsg(Envelope{T: MsgGamePaused, Data: GamePausedMsg{Paused: true, Name: &name}})
	now := r.now()
	r.phase = PhasePaused
	r.pausedAt = now
	r.timer.Pause(now)
}

// resumeLocked shifts every round-relative deadline by the paused span so
// nothing expires while the game is frozen.
func (r *Room) resumeLocked(name string) {
	if r.phase != PhasePaused {
		return
	}
	r.broadcastMsg(Envelope{T: MsgGamePaused, Data: GamePausedMsg{Paused: false, Name: &name}})
	now := r.now()
	d := now.Sub(r.pausedAt)
	r.timer.Resume(now)
	for _, b := range r.balls {
		if !b.FrozenUntil.IsZero() {
			b.FrozenUntil = b.FrozenUntil.Add(d)
		}
	}
	for _, p := range r.powerups {
		p.SpawnedAt = p.SpawnedAt.Add(d)
		p.ExpiresAt = p.ExpiresAt.Add(d)
	}
	r.effects.Shift(d)
	r.lastBallSpawn = r.lastBallSpawn.Add(d)
	r.pausedAt = time.Time{}
	r.lastUpdate = now
	r.phase = PhaseActive
}

// handleMiss applies the mode's rule for a ball that got past missed's paddle
func (r *Room) handleMiss(missed string, b *Ball, now time.Time) {
	b.Recenter(now, MissFreeze)

	if r.mode == ModeDeathmatch {
		if r.lives[missed] > 0 {
			r.lives[missed]--
			if r.lives[missed] <= 0 {
				delete(r.paddles, missed)
			}
			r.broadcastMsg(Envelope{T: MsgLivesUpdate, Data: LivesUpdateMsg{Lives: copyCounts(r.lives)}})
		}
		r.checkLastSurvivor()
		return
	}

	if r.lives[missed] > 0 {
		r.lives[missed]--
		r.broadcastMsg(Envelope{T: MsgLivesUpdate, Data: LivesUpdateMsg{Lives: copyCounts(r.lives)}})
		return
	}
	for _, p := range r.players {
		if p.ID == missed {
			continue
		}
		r.scores[p.ID] += missPoints(r.multipliers[p.ID])
	}
	r.broadcastMsg(Envelope{T: MsgScoreUpdate, Data: copyCounts(r.scores)})
	if r.mode == ModeScoreToWin {
		r.checkScoreTarget()
	}
}

// checkLastSurvivor ends a deathmatch once a single player has lives and a paddle
func (r *Room) checkLastSurvivor() {
	if r.phase != PhaseActive && r.phase != PhasePaused {
		return
	}
	var alive []string
	for _, p := range r.players {
		if _, ok := r.paddles[p.ID]; ok && r.lives[p.ID] > 0 {
			alive = append(alive, p.ID)
		}
	}
	if len(alive) != 1 {
		return
	}
	r.endRound(GameOverMsg{
		Winners: []string{r.displayName(alive[0])},
		Mode:    ModeDeathmatch.String(),
	}, alive, 0)
}

// checkScoreTarget ends a score-to-win round once someone reaches the limit
func (r *Room) checkScoreTarget() {
	if r.phase != PhaseActive {
		return
	}
	limit := r.config.ScoreLimit
	if limit <= 0 {
		limit = ScoreToWinTarget
	}
	for _, p := range r.players {
		if r.scores[p.ID] >= limit {
			r.endRound(GameOverMsg{
				Winners: []string{r.displayName(p.ID)},
				Mode:    ModeScoreToWin.String(),
			}, []string{p.ID}, r.scores[p.ID])
			return
		}
	}
}

// endOnTime ends a count-down round; every top scorer wins
func (r *Room) endOnTime() {
	ids, best, ok := topScorers(r.scores, r.rosterIDs())
	winners := make([]string, 0, len(ids))
	for _, id := range ids {
		if r.playerByID(id) != nil {
			winners = append(winners, r.displayName(id))
		} else {
			winners = append(winners, id)
		}
	}
	msg := GameOverMsg{Winners: winners}
	if ok {
		msg.Score = &best
	}
	r.endRound(msg, ids, best)
}

func (r *Room) endRound(msg GameOverMsg, winnerIDs []string, score int) {
	now := r.now()
	r.phase = PhaseRoundOver
	r.timer.Stop()
	r.releaseReversedLocked()
	r.broadcastMsg(Envelope{T: MsgGameOver, Data: msg})

	if r.events == nil {
		return
	}
	res := RoundResult{
		Mode:      r.mode.String(),
		Winners:   msg.Winners,
		WinnerIDs: winnerIDs,
		Score:     score,
		Duration:  now.Sub(r.roundStart).Seconds(),
		Players:   len(r.players),
		EndedAt:   now.UTC(),
	}
	r.events.RecordRound(res)
	r.events.Track(EvtRoundEnd, "", map[string]interface{}{
		"mode":     res.Mode,
		"duration": res.Duration,
	})
}

// ForceReset wipes the round and tells every client to reload
func (r *Room) ForceReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(false)
	r.broadcastMsg(Envelope{T: MsgForceReload})
	log.Printf("room reset by admin")
}
