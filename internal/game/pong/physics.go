package pong

// Direction is a paddle move direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts a raw direction string.
//
// Postcondition: Returns (dir, true) for "up" or "down", or ("", false) otherwise.
func ParseDirection(raw string) (Direction, bool) {
	switch d := Direction(raw); d {
	case DirectionUp, DirectionDown:
		return d, true
	default:
		return "", false
	}
}

// MovePaddle shifts side's paddle by PaddleSpeed in dir.
//
// Postcondition: The paddle offset is within [0, FieldHeight-PaddleHeight].
func (s *State) MovePaddle(side Side, dir Direction) {
	p := s.Paddle(side)
	switch dir {
	case DirectionUp:
		p.Y -= PaddleSpeed
	case DirectionDown:
		p.Y += PaddleSpeed
	}
	p.Y = clamp(p.Y, 0, FieldHeight-PaddleHeight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Step advances the game by one tick and returns the side that scored, or ""
// when nobody did.
//
// Wall and paddle reflections are evaluated independently against the
// advanced position, so both may fire in one tick. Reflections only invert
// velocity; the ball is never pushed back out of a paddle.
//
// Precondition: s and src must be non-nil.
// Postcondition: At most one score component is incremented; when one is, the ball has been reset.
func Step(s *State, src Source) Side {
	b := &s.Ball
	b.X += b.SpeedX
	b.Y += b.SpeedY

	if b.Y <= 0 || b.Y >= FieldHeight-BallSize {
		b.SpeedY = -b.SpeedY
	}

	if hitsLeftPaddle(b, s.LeftPaddle) || hitsRightPaddle(b, s.RightPaddle) {
		b.SpeedX = -b.SpeedX
	}

	switch {
	case b.X <= 0:
		s.Score.Right++
		ResetBall(b, src)
		return SideRight
	case b.X >= FieldWidth:
		s.Score.Left++
		ResetBall(b, src)
		return SideLeft
	}
	return ""
}

func hitsLeftPaddle(b *Ball, p Paddle) bool {
	return b.X <= PaddleWidth && overlaps(b, p)
}

func hitsRightPaddle(b *Ball, p Paddle) bool {
	return b.X >= FieldWidth-PaddleWidth-BallSize && overlaps(b, p)
}

// overlaps reports whether the ball's vertical extent touches the paddle's.
func overlaps(b *Ball, p Paddle) bool {
	return b.Y+BallSize >= p.Y && b.Y <= p.Y+PaddleHeight
}

// ResetBall recenters the ball and picks an independent random sign for each
// velocity component.
//
// Postcondition: b is at the field center and |SpeedX| == |SpeedY| == BallSpeed.
func ResetBall(b *Ball, src Source) {
	b.X = FieldWidth / 2
	b.Y = FieldHeight / 2
	b.SpeedX = randomSpeed(src)
	b.SpeedY = randomSpeed(src)
}

func randomSpeed(src Source) float64 {
	if src.Intn(2) == 0 {
		return -BallSpeed
	}
	return BallSpeed
}
