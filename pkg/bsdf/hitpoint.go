// Package bsdf wraps a ray hit into an evaluable surface: a shading frame,
// the material lobes, pass-through handling and the adjoint correction for
// paths that start at a light.
package bsdf

import (
	"github.com/df07/lightpath/pkg/core"
)

// HitPoint is the geometric description of a surface hit
type HitPoint struct {
	FixedDir  core.Vec3 // Unit direction back along the incoming ray
	P         core.Vec3
	UV        core.Vec2
	GeometryN core.Vec3 // Outward geometric normal
	ShadeN    core.Vec3 // Interpolated shading normal
	Color     core.Vec3 // Interpolated vertex color
	Alpha     float64   // Interpolated vertex alpha

	PassThroughEvent float64 // Uniform number deciding stochastic pass-through
	FromLight        bool    // The path started at a light
	IntoObject       bool    // The incoming ray hit the front face
}

// NewHitPoint builds a hit point, repairing degenerate normals
func NewHitPoint(rayDir, p core.Vec3, uv core.Vec2, geometryN, shadeN core.Vec3, fromLight bool, passThroughEvent float64) HitPoint {
	ng := geometryN.Normalize()
	if !ng.IsFinite() || ng.IsBlack() {
		ng = rayDir.Negate().Normalize()
		if !ng.IsFinite() || ng.IsBlack() {
			ng = core.NewVec3(0, 0, 1)
		}
	}
	ns := shadeN.Normalize()
	if !ns.IsFinite() || ns.IsBlack() {
		ns = ng
	}
	// Shading normals live in the hemisphere of the geometric normal
	if ns.Dot(ng) < 0 {
		ns = ns.Negate()
	}
	fixed := rayDir.Negate().Normalize()
	return HitPoint{
		FixedDir:         fixed,
		P:                p,
		UV:               uv,
		GeometryN:        ng,
		ShadeN:           ns,
		Color:            core.Splat(1),
		Alpha:            1,
		PassThroughEvent: passThroughEvent,
		FromLight:        fromLight,
		IntoObject:       fixed.Dot(ng) > 0,
	}
}
