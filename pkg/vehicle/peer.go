package vehicle

import "time"

// PeerStaleAfter is the age at which a peer cache entry is evicted on the
// next read (spec.md §3).
const PeerStaleAfter = 5 * time.Second

// Peer is one entry of the truck's peer-position cache.
type Peer struct {
	TruckID    uint64
	X, Y       float64
	Theta      float64
	LastUpdate time.Time
}

// Stale reports whether the peer entry is older than PeerStaleAfter as of now.
func (p Peer) Stale(now time.Time) bool {
	return now.Sub(p.LastUpdate) > PeerStaleAfter
}
