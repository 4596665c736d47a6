package autosave

import "time"

const DefaultIntervalSeconds = 60

// PresetIntervals are the interval choices the settings surface offers.
// Any positive interval is accepted; these are only the recognized presets.
var PresetIntervals = []int{15, 30, 60, 120, 300}

type Config struct {
	Enabled         bool
	IntervalSeconds int
}

// Interval returns the configured period, falling back to the default for
// non-positive values.
func (c Config) Interval() time.Duration {
	secs := c.IntervalSeconds
	if secs <= 0 {
		secs = DefaultIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

// IsPreset reports whether the configured interval is one of the offered
// presets.
func (c Config) IsPreset() bool {
	for _, p := range PresetIntervals {
		if c.IntervalSeconds == p {
			return true
		}
	}
	return false
}
