package platform

import "github.com/1broseidon/deskgrid/internal/geometry"

// Pad shrinks s by padding pixels on every side, never below 1x1.
func Pad(s geometry.Surface, padding int) geometry.Surface {
	if padding <= 0 {
		return s
	}
	s.X += padding
	s.Y += padding
	s.Width -= 2 * padding
	s.Height -= 2 * padding
	if s.Width < 1 {
		s.Width = 1
	}
	if s.Height < 1 {
		s.Height = 1
	}
	return s
}
