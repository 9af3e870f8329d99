// Package lights implements the light source variants and the strategies
// used to pick one of them.
package lights

import (
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// Kind enumerates the light variants
type Kind int

const (
	// Triangle is a one-sided diffuse area emitter
	Triangle Kind = iota
	// Point is an isotropic point emitter
	Point
	// Sky is a constant environment surrounding the scene
	Sky
	// Sun is a delta directional emitter at infinity
	Sun
)

func (k Kind) String() string {
	switch k {
	case Triangle:
		return "TRIANGLE"
	case Point:
		return "POINT"
	case Sky:
		return "SKY"
	case Sun:
		return "SUN"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Light is a tagged variant. Only the fields of its Kind are meaningful.
type Light struct {
	Kind Kind
	ID   int // Index in the scene light list
	Le   core.Vec3

	// Triangle
	V0, V1, V2 core.Vec3
	Normal     core.Vec3
	area       float64
	invArea    float64

	// Point
	Position core.Vec3

	// Sun: unit direction pointing toward the sun
	Direction core.Vec3

	// Infinite lights live on the bounding sphere of the scene
	sceneCenter core.Vec3
	sceneRadius float64
}

// NewTriangleLight creates an area light emitting le from the side its
// winding order faces. Returns an error for degenerate triangles.
func NewTriangleLight(v0, v1, v2, le core.Vec3) (*Light, error) {
	cross := v1.Subtract(v0).Cross(v2.Subtract(v0))
	area := 0.5 * cross.Length()
	if !(area > 0) || math.IsInf(area, 0) {
		return nil, fmt.Errorf("degenerate light triangle %v %v %v", v0, v1, v2)
	}
	return &Light{
		Kind:    Triangle,
		Le:      le,
		V0:      v0,
		V1:      v1,
		V2:      v2,
		Normal:  cross.Normalize(),
		area:    area,
		invArea: 1 / area,
	}, nil
}

// NewPointLight creates a point light with the given radiant intensity
func NewPointLight(position, intensity core.Vec3) *Light {
	return &Light{Kind: Point, Le: intensity, Position: position}
}

// NewSkyLight creates a constant environment light
func NewSkyLight(le core.Vec3) *Light {
	return &Light{Kind: Sky, Le: le}
}

// NewSunLight creates a directional light. dir points from the scene toward the sun.
func NewSunLight(dir, le core.Vec3) *Light {
	return &Light{Kind: Sun, Le: le, Direction: dir.Normalize()}
}

// Preprocess records the scene bounding sphere used by infinite lights
func (l *Light) Preprocess(center core.Vec3, radius float64) {
	l.sceneCenter = center
	l.sceneRadius = radius
}

// Area returns the emitting area of a triangle light, zero otherwise
func (l *Light) Area() float64 {
	return l.area
}

// IsDelta reports whether the light cannot be hit by a ray
func (l *Light) IsDelta() bool {
	return l.Kind == Point || l.Kind == Sun
}

// IsInfinite reports whether the light lives at infinity
func (l *Light) IsInfinite() bool {
	return l.Kind == Sky || l.Kind == Sun
}

// Power estimates the emitted flux, used by the power strategy
func (l *Light) Power() float64 {
	y := l.Le.Luminance()
	switch l.Kind {
	case Triangle:
		return y * l.area * math.Pi
	case Point:
		return y * 4 * math.Pi
	case Sky:
		return y * 4 * math.Pi * math.Pi * l.sceneRadius * l.sceneRadius
	case Sun:
		return y * math.Pi * l.sceneRadius * l.sceneRadius
	}
	return 0
}

// Validate checks the light parameters
func (l *Light) Validate() error {
	if !l.Le.IsValid() {
		return fmt.Errorf("light %d (%v): invalid emission %v", l.ID, l.Kind, l.Le)
	}
	if l.IsInfinite() && !(l.sceneRadius > 0) {
		return fmt.Errorf("light %d (%v): scene bounds not set", l.ID, l.Kind)
	}
	return nil
}
