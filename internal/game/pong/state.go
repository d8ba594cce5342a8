// Package pong provides the authoritative Pong simulation: field geometry,
// per-game state, paddle movement, and the fixed-step physics update.
package pong

import "encoding/json"

// Field geometry and speeds, in field units.
const (
	FieldWidth   = 800.0
	FieldHeight  = 400.0
	PaddleHeight = 100.0
	PaddleWidth  = 10.0
	BallSize     = 10.0
	// PaddleSpeed is the offset applied to a paddle per move event.
	PaddleSpeed = 5.0
	// BallSpeed is the magnitude of each ball velocity component after a reset.
	BallSpeed = 5.0
)

// Side names one of the two player slots in a game.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Ball is the ball's top-left position and per-tick velocity.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	SpeedX float64 `json:"speedX"`
	SpeedY float64 `json:"speedY"`
}

// Paddle is a paddle's vertical offset from the top of the field.
type Paddle struct {
	Y float64 `json:"y"`
}

// Score holds the points of each side.
type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Players holds the connection identity occupying each slot.
// An empty string means the slot is free; it is encoded as JSON null.
type Players struct {
	Left  string
	Right string
}

// Get returns the identity in side's slot.
func (p Players) Get(side Side) string {
	if side == SideLeft {
		return p.Left
	}
	return p.Right
}

// Set places id in side's slot.
func (p *Players) Set(side Side, id string) {
	if side == SideLeft {
		p.Left = id
		return
	}
	p.Right = id
}

// FreeSide returns the first unoccupied slot, left before right.
//
// Postcondition: Returns (side, true) when a slot is free, or ("", false) when both are taken.
func (p Players) FreeSide() (Side, bool) {
	switch {
	case p.Left == "":
		return SideLeft, true
	case p.Right == "":
		return SideRight, true
	default:
		return "", false
	}
}

// Full reports whether both slots are occupied.
func (p Players) Full() bool {
	return p.Left != "" && p.Right != ""
}

// MarshalJSON encodes free slots as null.
func (p Players) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Left  *string `json:"left"`
		Right *string `json:"right"`
	}{
		Left:  optional(p.Left),
		Right: optional(p.Right),
	})
}

// UnmarshalJSON decodes null slots as free.
func (p *Players) UnmarshalJSON(data []byte) error {
	var raw struct {
		Left  *string `json:"left"`
		Right *string `json:"right"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Players{}
	if raw.Left != nil {
		p.Left = *raw.Left
	}
	if raw.Right != nil {
		p.Right = *raw.Right
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// State is the complete state of one game, as broadcast to its players.
//
// Invariant: IsActive is true iff Players.Full().
type State struct {
	Ball        Ball    `json:"ball"`
	LeftPaddle  Paddle  `json:"leftPaddle"`
	RightPaddle Paddle  `json:"rightPaddle"`
	Score       Score   `json:"score"`
	Players     Players `json:"players"`
	IsActive    bool    `json:"isActive"`
}

// NewState returns a freshly initialized game.
//
// Postcondition: The ball is centered moving (+BallSpeed, +BallSpeed), both
// paddles are centered, the score is 0-0, no slot is occupied and the game is inactive.
func NewState() *State {
	center := FieldHeight/2 - PaddleHeight/2
	return &State{
		Ball: Ball{
			X:      FieldWidth / 2,
			Y:      FieldHeight / 2,
			SpeedX: BallSpeed,
			SpeedY: BallSpeed,
		},
		LeftPaddle:  Paddle{Y: center},
		RightPaddle: Paddle{Y: center},
	}
}

// Paddle returns a pointer to side's paddle.
func (s *State) Paddle(side Side) *Paddle {
	if side == SideLeft {
		return &s.LeftPaddle
	}
	return &s.RightPaddle
}

// Seat places id in side's slot and recomputes IsActive.
func (s *State) Seat(side Side, id string) {
	s.Players.Set(side, id)
	s.IsActive = s.Players.Full()
}
