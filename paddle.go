package main

const (
	ArenaWidth      = 600.0
	ArenaHeight     = 600.0
	PaddleThickness = 10.0
	PaddleLength    = 80.0
	PaddleStep      = 5.0
)

// Role is a seat at the table; it fixes the player's wall and color
type Role string

const (
	RoleHost    Role = "host"
	RolePlayer2 Role = "player2"
	RolePlayer3 Role = "player3"
	RolePlayer4 Role = "player4"
)

// roleOrder is the order seats are handed out in
var roleOrder = []Role{RoleHost, RolePlayer2, RolePlayer3, RolePlayer4}

var roleColors = map[Role]string{
	RoleHost:    "purple",
	RolePlayer2: "red",
	RolePlayer3: "blue",
	RolePlayer4: "green",
}

// Wall is one side of the arena
type Wall string

const (
	WallLeft   Wall = "left"
	WallRight  Wall = "right"
	WallTop    Wall = "top"
	WallBottom Wall = "bottom"
)

var allWalls = []Wall{WallLeft, WallRight, WallTop, WallBottom}

var roleWalls = map[Role]Wall{
	RoleHost:    WallLeft,
	RolePlayer2: WallRight,
	RolePlayer3: WallTop,
	RolePlayer4: WallBottom,
}

const (
	OrientationVertical   = "vertical"
	OrientationHorizontal = "horizontal"
)

// Paddle is a player's bat. Pos is the offset of its leading edge along
// its wall and always stays within [0, MaxPos()].
type Paddle struct {
	Pos         float64
	Width       float64
	Height      float64
	Color       string
	Orientation string
	Wall        Wall
	Type        Role
}

// NewPaddle creates a centred paddle on the role's wall
func NewPaddle(role Role) *Paddle {
	p := &Paddle{
		Color: roleColors[role],
		Wall:  roleWalls[role],
		Type:  role,
	}
	if p.Wall == WallLeft || p.Wall == WallRight {
		p.Orientation = OrientationVertical
		p.Width, p.Height = PaddleThickness, PaddleLength
	} else {
		p.Orientation = OrientationHorizontal
		p.Width, p.Height = PaddleLength, PaddleThickness
	}
	p.Pos = p.MaxPos() / 2
	return p
}

// Vertical reports whether the paddle moves along the y axis
func (p *Paddle) Vertical() bool {
	return p.Orientation == OrientationVertical
}

// Length is the extent along the paddle's wall
func (p *Paddle) Length() float64 {
	if p.Vertical() {
		return p.Height
	}
	return p.Width
}

func (p *Paddle) MaxPos() float64 {
	if p.Vertical() {
		return ArenaHeight - p.Height
	}
	return ArenaWidth - p.Width
}

// Clamp pulls Pos back into range
func (p *Paddle) Clamp() {
	p.Pos = Clamp(p.Pos, 0, p.MaxPos())
}

// Move steps the paddle. up/left decrease Pos, down/right increase it.
// Unknown directions are ignored.
func (p *Paddle) Move(direction string) bool {
	var step float64
	switch direction {
	case "up", "left":
		step = -PaddleStep
	case "down", "right":
		step = PaddleStep
	default:
		return false
	}
	p.Pos += step
	p.Clamp()
	return true
}

// SetLength resizes the long axis and re-clamps
func (p *Paddle) SetLength(l float64) {
	if p.Vertical() {
		p.Height = l
	} else {
		p.Width = l
	}
	p.Clamp()
}

// Box returns the paddle's hit box, flush against its wall
func (p *Paddle) Box() Rect {
	switch p.Wall {
	case WallLeft:
		return Rect{X: 0, Y: p.Pos, W: p.Width, H: p.Height}
	case WallRight:
		return Rect{X: ArenaWidth - p.Width, Y: p.Pos, W: p.Width, H: p.Height}
	case WallTop:
		return Rect{X: p.Pos, Y: 0, W: p.Width, H: p.Height}
	default:
		return Rect{X: p.Pos, Y: ArenaHeight - p.Height, W: p.Width, H: p.Height}
	}
}

// ToState converts to protocol state
func (p *Paddle) ToState() PaddleState {
	return PaddleState{
		Pos:         round1(p.Pos),
		Color:       p.Color,
		Width:       p.Width,
		Height:      p.Height,
		Orientation: p.Orientation,
		Wall:        string(p.Wall),
		Type:        p.Type,
	}
}
