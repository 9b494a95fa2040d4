package navigation

// DefaultScrollThreshold is the vertical offset past which the bar is
// rendered in its scrolled style
const DefaultScrollThreshold = 10

// ScrollTracker derives the scrolled flag from the window scroll offset.
// There is no hysteresis: offsets oscillating around the threshold flip the
// flag on every event
type ScrollTracker struct {
	Threshold float64
	scrolled  bool
}

// NewScrollTracker returns a tracker for threshold. Non-positive thresholds
// fall back to DefaultScrollThreshold
func NewScrollTracker(threshold float64) *ScrollTracker {
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &ScrollTracker{Threshold: threshold}
}

// Update records a new offset and reports whether the flag changed
func (s *ScrollTracker) Update(offset float64) bool {
	scrolled := offset > s.Threshold
	changed := scrolled != s.scrolled
	s.scrolled = scrolled
	return changed
}

// Scrolled reports whether the last offset was past the threshold
func (s *ScrollTracker) Scrolled() bool { return s.scrolled }
