package timeline

import (
	"math"
	"time"
)

// DefaultSnapGrid is the tick a dragged block snaps to.
const DefaultSnapGrid = 15 * time.Minute

// SnapDelta rounds raw to the nearest multiple of grid. Ties round toward
// positive, so 7m30s on a 15 minute grid becomes 15m and -7m30s becomes 0.
func SnapDelta(raw, grid time.Duration) time.Duration {
	if grid <= 0 {
		return raw
	}
	ticks := math.Floor(float64(raw)/float64(grid) + 0.5)
	return time.Duration(ticks) * grid
}

// PixelsToDuration converts a vertical drag distance into time.
func PixelsToDuration(px, scale float64) time.Duration {
	if scale <= 0 {
		scale = DefaultScale
	}
	return time.Duration(px / scale * float64(time.Minute))
}
