package material

import "github.com/df07/lightpath/pkg/core"

// VolumeID indexes a volume in a Table
type VolumeID int

// NoVolume marks a material side without a participating medium
const NoVolume VolumeID = -1

// Volume is a clear, purely absorbing medium
type Volume struct {
	Absorption core.Vec3 // Absorption coefficient per unit distance
}

// Transmittance returns the Beer-Lambert attenuation over distance
func (v Volume) Transmittance(distance float64) core.Vec3 {
	if v.Absorption.IsBlack() || distance <= 0 {
		return core.Splat(1)
	}
	return v.Absorption.Multiply(-distance).Exp()
}
