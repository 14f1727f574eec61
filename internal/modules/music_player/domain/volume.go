package domain

import "math"

// Volume limits and defaults, in percent.
const (
	DefaultBasePercent       = 20
	DefaultMultiplierPercent = 100
	MaxBasePercent           = 100
	MaxMultiplierPercent     = 200
)

// Volume is the per-guild volume configuration.
// The effective gain is always derived from the two stored factors.
type Volume struct {
	base       float64 // [0, 1]
	multiplier float64 // [0, 2]
}

// DefaultVolume returns the volume used by guilds that never changed it.
func DefaultVolume() Volume {
	return Volume{
		base:       DefaultBasePercent / 100.0,
		multiplier: DefaultMultiplierPercent / 100.0,
	}
}

// NewVolume creates a Volume from integer percentages.
func NewVolume(basePercent, multiplierPercent int) (Volume, error) {
	v := DefaultVolume()
	if err := v.SetBasePercent(basePercent); err != nil {
		return Volume{}, err
	}
	if err := v.SetMultiplierPercent(multiplierPercent); err != nil {
		return Volume{}, err
	}
	return v, nil
}

// Base returns the server base volume as a fraction.
func (v Volume) Base() float64 {
	return v.base
}

// Multiplier returns the personal multiplier as a fraction.
func (v Volume) Multiplier() float64 {
	return v.multiplier
}

// Effective returns the gain applied to playback.
func (v Volume) Effective() float64 {
	return v.base * v.multiplier
}

// BasePercent returns the base volume in percent.
func (v Volume) BasePercent() int {
	return toPercent(v.base)
}

// MultiplierPercent returns the multiplier in percent.
func (v Volume) MultiplierPercent() int {
	return toPercent(v.multiplier)
}

// EffectivePercent returns the effective volume in percent.
func (v Volume) EffectivePercent() int {
	return toPercent(v.Effective())
}

// SetBasePercent sets the base volume from a percentage in [0, 100].
func (v *Volume) SetBasePercent(percent int) error {
	if percent < 0 || percent > MaxBasePercent {
		return ErrVolumeOutOfRange
	}
	v.base = float64(percent) / 100
	return nil
}

// SetMultiplierPercent sets the personal multiplier from a percentage in [0, 200].
func (v *Volume) SetMultiplierPercent(percent int) error {
	if percent < 0 || percent > MaxMultiplierPercent {
		return ErrVolumeOutOfRange
	}
	v.multiplier = float64(percent) / 100
	return nil
}

func toPercent(f float64) int {
	return int(math.Round(f * 100))
}
