package main

import (
	"strings"
	"time"
)

const maxNameLen = 16

func (r *Room) playerByID(id string) *Player {
	if id == "" {
		return nil
	}
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) isHost(id string) bool {
	return id != "" && id == r.hostID
}

// rosterLocked copies the player list for the wire
func (r *Room) rosterLocked() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	return out
}

func (r *Room) rosterIDs() []string {
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// displayName is the name shown to others: the chosen name, else the role
func (r *Room) displayName(id string) string {
	p := r.playerByID(id)
	if p == nil {
		return "Player"
	}
	if p.Name != "" {
		return p.Name
	}
	return string(p.Type)
}

func (r *Room) freeRole() (Role, bool) {
	taken := make(map[Role]bool, len(r.players))
	for _, p := range r.players {
		taken[p.Type] = true
	}
	for _, role := range roleOrder {
		if !taken[role] {
			return role, true
		}
	}
	return "", false
}

// Join seats a connection. Joining twice is a no-op. The client is
// attached only when a seat was available.
func (r *Room) Join(id string, client Broadcaster) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.playerByID(id); p != nil {
		return p, nil
	}
	if len(r.players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	role, ok := r.freeRole()
	if !ok {
		return nil, ErrRoomFull
	}

	p := &Player{ID: id, Type: role, Color: roleColors[role]}
	r.players = append(r.players, p)
	r.paddles[id] = NewPaddle(role)
	if r.playerByID(r.hostID) == nil {
		r.hostID = id
	}
	if client != nil {
		r.clients[id] = client
	}

	r.sendTo(id, Envelope{T: MsgPlayerInfo, Data: *p})
	r.broadcastMsg(Envelope{T: MsgUpdatePlayers, Data: r.rosterLocked()})
	r.broadcastMsg(Envelope{T: MsgScoreUpdate, Data: copyCounts(r.scores)})
	if r.modeSelected {
		r.broadcastMsg(Envelope{T: MsgModeSelected, Data: int(r.mode)})
	}
	r.sendTo(id, Envelope{T: MsgPowerupsEnabled, Data: r.powerupsEnabled})
	r.sendTo(id, Envelope{T: MsgPowerupsConfig, Data: r.whitelistConfig()})

	if r.events != nil {
		r.events.Track(EvtPlayerJoin, id, map[string]interface{}{"role": string(role)})
	}
	return p, nil
}

// SetName trims and stores a display name. A name collides when, with
// whitespace removed and case folded, it equals any player's name or any
// player's role label.
func (r *Room) SetName(id, raw string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.TrimSpace(raw)
	if name == "" {
		return "", nil
	}
	name = truncateRunes(name, maxNameLen)
	p := r.playerByID(id)
	if p == nil {
		return "", ErrUnknownPlayer
	}

	norm := normalizeName(name)
	for _, other := range r.players {
		if (other.Name != "" && normalizeName(other.Name) == norm) || normalizeName(string(other.Type)) == norm {
			r.sendTo(id, Envelope{T: MsgNameError, Data: "Name already taken!"})
			return "", ErrNameTaken
		}
	}

	p.Name = name
	r.sendTo(id, Envelope{T: MsgNameAccepted, Data: name})
	r.broadcastMsg(Envelope{T: MsgUpdatePlayers, Data: r.rosterLocked()})
	return name, nil
}

// Leave removes a player and detaches their connection
func (r *Room) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removePlayerLocked(id)
	delete(r.clients, id)
}

// removePlayerLocked drops the player with their paddle, score and lives,
// promotes the earliest remaining player to host, and resets everything
// when the room empties.
func (r *Room) removePlayerLocked(id string) bool {
	idx := -1
	for i, p := range r.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.paddles, id)
	delete(r.scores, id)
	delete(r.lives, id)
	delete(r.multipliers, id)
	delete(r.reversed, id)

	if r.hostID == id {
		r.hostID = ""
		if len(r.players) > 0 {
			r.hostID = r.players[0].ID
		}
	}

	r.broadcastMsg(Envelope{T: MsgUpdatePlayers, Data: r.rosterLocked()})
	r.broadcastMsg(Envelope{T: MsgScoreUpdate, Data: copyCounts(r.scores)})

	if r.events != nil {
		r.events.Track(EvtPlayerLeave, id, nil)
	}

	if len(r.players) == 0 {
		r.resetLocked(true)
		return true
	}
	if r.mode == ModeDeathmatch && (r.phase == PhaseActive || r.phase == PhasePaused) {
		r.checkLastSurvivor()
	}
	return true
}

// resetLocked returns the round state to the lobby. With full set it also
// forgets the lobby configuration (mode, powerup settings).
func (r *Room) resetLocked(full bool) {
	r.releaseReversedLocked()
	r.generation++
	r.effects.Clear()
	r.balls = nil
	r.scores = make(map[string]int)
	r.lives = make(map[string]int)
	r.multipliers = make(map[string]bool)
	r.powerups = nil
	r.speedMul = 1
	r.smallBall = false
	r.timer.Reset()
	r.phase = PhaseLobby
	r.pausedAt = time.Time{}
	r.lastUpdate = r.now()

	for _, p := range r.players {
		r.paddles[p.ID] = NewPaddle(p.Type)
	}
	if len(r.players) > 0 {
		r.hostID = r.players[0].ID
	} else {
		r.hostID = ""
	}

	if full {
		r.mode = ModeClassic
		r.modeSelected = false
		r.powerupsEnabled = false
		r.whitelist = defaultWhitelist()
		r.nextBall = 0
		r.nextPowerupID = 0
	}
}
