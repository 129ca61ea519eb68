package main

import "math"

// MaxBounceAngle is the largest deflection off the wall perpendicular
const MaxBounceAngle = math.Pi / 3

// Rect is an axis-aligned box with its origin at the top-left corner
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64   { return r.X + r.W }
func (r Rect) Bottom() float64  { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Overlaps reports whether two boxes share interior area (touching edges do not count)
func (r Rect) Overlaps(o Rect) bool {
	return r.Right() > o.X && r.X < o.Right() && r.Bottom() > o.Y && r.Y < o.Bottom()
}

// Contains reports whether a point lies inside the box, edges included
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// deflect returns the outgoing (parallel, perpendicular) velocity components
// for a strike at relative offset rel in [-1, 1] along the paddle. The
// perpendicular component is always non-negative; the caller orients it away
// from the wall. A centre strike mirrors the incoming angle, an edge strike
// leaves at exactly ±MaxBounceAngle, and offsets in between blend linearly.
func deflect(vPar, vPerp, rel, speed float64) (float64, float64) {
	rel = Clamp(rel, -1, 1)
	mirrored := math.Atan2(vPar, math.Abs(vPerp))
	target := math.Copysign(MaxBounceAngle, rel)
	angle := mirrored + math.Abs(rel)*(target-mirrored)
	return speed * math.Sin(angle), speed * math.Cos(angle)
}

// ResolvePaddleHit bounces b off p when their boxes overlap. It returns
// false and leaves the ball untouched otherwise.
func ResolvePaddleHit(b *Ball, p *Paddle, ownerID string) bool {
	pb := p.Box()
	bb := b.Box()
	if !bb.Overlaps(pb) {
		return false
	}
	speed := math.Hypot(b.VX, b.VY)
	if speed == 0 {
		speed = b.Speed
	}

	if p.Vertical() {
		rel := (bb.CenterY() - pb.CenterY()) / (pb.H / 2)
		par, perp := deflect(b.VY, b.VX, rel, speed)
		b.VY = par
		if p.Wall == WallLeft {
			b.VX = perp
			b.X = pb.Right()
		} else {
			b.VX = -perp
			b.X = pb.X - b.Size
		}
	} else {
		rel := (bb.CenterX() - pb.CenterX()) / (pb.W / 2)
		par, perp := deflect(b.VX, b.VY, rel, speed)
		b.VX = par
		if p.Wall == WallTop {
			b.VY = perp
			b.Y = pb.Bottom()
		} else {
			b.VY = -perp
			b.Y = pb.Y - b.Size
		}
	}
	b.LastHitPlayerID = ownerID
	return true
}

// ReflectOffWall bounces the ball off an unguarded wall, keeping it inside
// the arena. It returns true when a bounce happened.
func ReflectOffWall(b *Ball, w Wall) bool {
	switch w {
	case WallLeft:
		if b.X <= 0 {
			b.X = 0
			b.VX = math.Abs(b.VX)
			return true
		}
	case WallRight:
		if b.X+b.Size >= ArenaWidth {
			b.X = ArenaWidth - b.Size
			b.VX = -math.Abs(b.VX)
			return true
		}
	case WallTop:
		if b.Y <= 0 {
			b.Y = 0
			b.VY = math.Abs(b.VY)
			return true
		}
	case WallBottom:
		if b.Y+b.Size >= ArenaHeight {
			b.Y = ArenaHeight - b.Size
			b.VY = -math.Abs(b.VY)
			return true
		}
	}
	return false
}

// PassedWall reports whether the ball is entirely outside the arena past w
func PassedWall(b *Ball, w Wall) bool {
	switch w {
	case WallLeft:
		return b.X+b.Size <= 0
	case WallRight:
		return b.X >= ArenaWidth
	case WallTop:
		return b.Y+b.Size <= 0
	case WallBottom:
		return b.Y >= ArenaHeight
	}
	return false
}

// SeparatePaddles pushes overlapping perpendicular paddles apart along the
// axis of least penetration, then clamps both to their walls.
func SeparatePaddles(a, b *Paddle) bool {
	if a.Vertical() == b.Vertical() {
		return false
	}
	ab, bb := a.Box(), b.Box()
	if !ab.Overlaps(bb) {
		return false
	}
	overlapX := math.Min(ab.Right(), bb.Right()) - math.Max(ab.X, bb.X)
	overlapY := math.Min(ab.Bottom(), bb.Bottom()) - math.Max(ab.Y, bb.Y)

	v, h := a, b
	if !a.Vertical() {
		v, h = b, a
	}
	vb, hb := v.Box(), h.Box()
	if overlapY <= overlapX {
		// slide the vertical paddle off the horizontal one
		if hb.CenterY() < vb.CenterY() {
			v.Pos += overlapY
		} else {
			v.Pos -= overlapY
		}
	} else {
		if vb.CenterX() < hb.CenterX() {
			h.Pos += overlapX
		} else {
			h.Pos -= overlapX
		}
	}
	v.Clamp()
	h.Clamp()
	return true
}
