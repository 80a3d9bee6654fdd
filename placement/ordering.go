package placement

import (
	"time"

	"github.com/cargohold/stationinv/cluster"
)

// farFuture stands in for "no expiry" when comparing expiry dates, per
// §4.B's ordering key: "missing expiry sorts last".
var farFuture = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

func expiryOrInf(it *cluster.Item) time.Time {
	if it.Expiry != nil {
		return *it.Expiry
	}
	return farFuture
}

// less implements the ordering key of §4.B: (-priority, expiry_or_inf,
// -volume) -- highest priority first, then earliest expiry, then largest
// volume first.
func less(a, b *cluster.Item) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	ae, be := expiryOrInf(a), expiryOrInf(b)
	if !ae.Equal(be) {
		return ae.Before(be)
	}
	return a.Dims.Volume() > b.Dims.Volume()
}

// lexLess compares two anchors in the (h, d, w) scan order of §4.A/§4.B:
// "if that pose is lexicographically smaller than its current anchor".
func lexLess(a, b cluster.Coord) bool {
	if a.H != b.H {
		return a.H < b.H
	}
	if a.D != b.D {
		return a.D < b.D
	}
	return a.W < b.W
}
