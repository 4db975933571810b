package invitation

import "invitegen/internal/config"

// Position is a top-left offset in background pixels.
type Position struct {
	X, Y float64
}

// Placement chooses where a text overlay goes based on its length.
type Placement struct {
	Threshold int
	Short     Position
	Long      Position
}

// Select returns Short for texts of at most Threshold runes and Long otherwise.
func (p Placement) Select(runes int) Position {
	if runes <= p.Threshold {
		return p.Short
	}
	return p.Long
}

// Distinct reports whether the threshold actually changes the position.
func (p Placement) Distinct() bool {
	return p.Short != p.Long
}

func placementFromConfig(c config.Placement) Placement {
	return Placement{
		Threshold: c.Threshold,
		Short:     Position{X: c.Short.X, Y: c.Short.Y},
		Long:      Position{X: c.Long.X, Y: c.Long.Y},
	}
}
