// Package quality defines the ordered ladder of acquisition quality tiers.
//
// A tier is a minimum acceptable source audio bitrate. Acquisition starts at
// the requested tier and, when a strategy reports that the tier cannot be
// satisfied, steps once to the lowest tier before that strategy gives up.
package quality

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier is an ordinal quality level; higher is better.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
)

// Lowest and Highest bound the ladder.
const (
	Lowest  = Tier1
	Highest = Tier4
)

var minKbps = map[Tier]int{
	Tier1: 64,
	Tier2: 128,
	Tier3: 192,
	Tier4: 256,
}

// Valid reports whether t is on the ladder.
func (t Tier) Valid() bool {
	return t >= Lowest && t <= Highest
}

// IsLowest reports whether t is the bottom rung, which accepts any audio.
func (t Tier) IsLowest() bool {
	return t == Lowest
}

// MinBitrateKbps is the minimum source bitrate the tier accepts.
func (t Tier) MinBitrateKbps() int {
	return minKbps[t]
}

// Accepts reports whether a source of the given bitrate (bits per second)
// satisfies the tier. The lowest tier accepts anything.
func (t Tier) Accepts(bitsPerSecond int) bool {
	if t.IsLowest() {
		return true
	}
	return bitsPerSecond >= t.MinBitrateKbps()*1000
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return fmt.Sprintf("tier%d", int(t))
}

// OrDefault returns t when valid and fallback otherwise.
func (t Tier) OrDefault(fallback Tier) Tier {
	if t.Valid() {
		return t
	}
	if fallback.Valid() {
		return fallback
	}
	return Highest
}

// Ladder returns the tiers to attempt for a request, in order: the requested
// tier, then the lowest tier when they differ.
func Ladder(requested Tier) []Tier {
	requested = requested.OrDefault(Highest)
	if requested.IsLowest() {
		return []Tier{requested}
	}
	return []Tier{requested, Lowest}
}

// Parse accepts "1".."4", "tier1".."tier4", or the names low, medium, high, best.
func Parse(value string) (Tier, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "low":
		return Tier1, nil
	case "medium":
		return Tier2, nil
	case "high":
		return Tier3, nil
	case "best":
		return Tier4, nil
	}
	v = strings.TrimPrefix(v, "tier")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid quality tier %q", value)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("quality tier %d out of range %d-%d", n, Lowest, Highest)
	}
	return t, nil
}
