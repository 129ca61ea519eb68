package main

import (
	"math"
	"math/rand"
	"time"
)

const (
	BallSize      = 10.0
	SmallBallSize = 8.0
	BallSpeed     = 200.0 // units/s
	SpawnFreeze   = time.Second
	MissFreeze    = 1500 * time.Millisecond
)

// Ball is a square ball; X/Y is its top-left corner
type Ball struct {
	ID              int
	X, Y            float64
	VX, VY          float64
	Speed           float64
	Size            float64
	LastHitPlayerID string
	FrozenUntil     time.Time
}

// spawnAngle picks one of the two diagonal launch directions
func spawnAngle(rng *rand.Rand) float64 {
	if rng.Float64() < 0.5 {
		return math.Pi / 4
	}
	return 3 * math.Pi / 4
}

// NewBall creates a ball centred in the arena, frozen for SpawnFreeze
func NewBall(id int, angle, size float64, now time.Time) *Ball {
	b := &Ball{
		ID:          id,
		Speed:       BallSpeed,
		Size:        size,
		VX:          BallSpeed * math.Cos(angle),
		VY:          BallSpeed * math.Sin(angle),
		FrozenUntil: now.Add(SpawnFreeze),
	}
	b.center()
	return b
}

func (b *Ball) center() {
	b.X = ArenaWidth/2 - b.Size/2
	b.Y = ArenaHeight/2 - b.Size/2
}

func (b *Ball) Box() Rect {
	return Rect{X: b.X, Y: b.Y, W: b.Size, H: b.Size}
}

func (b *Ball) CenterX() float64 { return b.X + b.Size/2 }
func (b *Ball) CenterY() float64 { return b.Y + b.Size/2 }

// Frozen reports whether the ball is held in place at now. An expired
// freeze is cleared.
func (b *Ball) Frozen(now time.Time) bool {
	if b.FrozenUntil.IsZero() {
		return false
	}
	if now.Before(b.FrozenUntil) {
		return true
	}
	b.FrozenUntil = time.Time{}
	return false
}

// Integrate advances the ball by dt seconds, scaled by the speed multiplier
func (b *Ball) Integrate(dt, speedMul float64) {
	b.X += b.VX * dt * speedMul
	b.Y += b.VY * dt * speedMul
}

// Recenter puts the ball back in the middle and holds it for d
func (b *Ball) Recenter(now time.Time, d time.Duration) {
	b.center()
	b.FrozenUntil = now.Add(d)
}

// Resize changes the ball size around its current centre
func (b *Ball) Resize(size float64) {
	cx, cy := b.CenterX(), b.CenterY()
	b.Size = size
	b.X = cx - size/2
	b.Y = cy - size/2
}

// ToState converts to protocol state
func (b *Ball) ToState() BallState {
	return BallState{
		BallID:          b.ID,
		X:               round1(b.X),
		Y:               round1(b.Y),
		VX:              round1(b.VX),
		VY:              round1(b.VY),
		Speed:           b.Speed,
		Size:            b.Size,
		LastHitPlayerID: b.LastHitPlayerID,
		FrozenUntil:     unixMillis(b.FrozenUntil),
	}
}
