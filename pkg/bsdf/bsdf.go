package bsdf

import (
	"math"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
)

// cosEpsilon rejects directions grazing the geometric surface
const cosEpsilon = 1e-5

// BSDF is a material bound to a hit point
type BSDF struct {
	HitPoint

	Material *material.Material
	Light    *lights.Light // Non-nil when the surface is an area light

	frame core.Frame
}

// New binds mat to hp. light is the area light owning the surface, or nil.
func New(hp HitPoint, mat *material.Material, light *lights.Light) *BSDF {
	return &BSDF{
		HitPoint: hp,
		Material: mat,
		Light:    light,
		frame:    core.NewFrame(hp.ShadeN),
	}
}

// IsDelta reports whether every lobe is specular
func (b *BSDF) IsDelta() bool {
	return b.Material.IsDelta()
}

// IsPassThrough reports whether the surface can be skipped without scattering
func (b *BSDF) IsPassThrough() bool {
	return b.Material.IsPassThrough() || b.Alpha < 1
}

// PassThroughTransparency returns the transparency for this hit's pass-through
// event, black when the surface is opaque for this sample
func (b *BSDF) PassThroughTransparency() core.Vec3 {
	if b.Alpha < 1 && b.PassThroughEvent > b.Alpha {
		return core.Splat(1)
	}
	return b.Material.PassThroughTransparency(b.PassThroughEvent)
}

// EventTypes returns every event the material can generate
func (b *BSDF) EventTypes() material.Event {
	return b.Material.EventTypes()
}

// IsLightSource reports whether the surface emits light
func (b *BSDF) IsLightSource() bool {
	return b.Light != nil
}

// EmittedRadiance returns the radiance emitted toward FixedDir and the pdfs
// the light sampling and emission techniques would have used for this point
func (b *BSDF) EmittedRadiance() (radiance core.Vec3, directPdfA, emissionPdfW float64) {
	if b.Light == nil {
		return core.Vec3{}, 0, 0
	}
	return b.Light.GetRadiance(b.FixedDir.Negate())
}

// Evaluate returns the scattered value for generatedDir including the cosine
// at the generated side, the event type and the forward and reverse solid
// angle pdfs. For paths from the light the value carries the adjoint shading
// normal correction.
func (b *BSDF) Evaluate(generatedDir core.Vec3) (value core.Vec3, event material.Event, directPdfW, reversePdfW float64) {
	fixed := b.FixedDir
	dotFixedNG := fixed.Dot(b.GeometryN)
	dotGenNG := generatedDir.Dot(b.GeometryN)
	if math.Abs(dotFixedNG) < cosEpsilon || math.Abs(dotGenNG) < cosEpsilon {
		return
	}

	types := b.Material.EventTypes()
	sideTest := dotFixedNG * dotGenNG
	if (sideTest > 0 && types&material.Reflect == 0) || (sideTest < 0 && types&material.Transmit == 0) {
		return
	}

	localFixed := b.frame.ToLocal(fixed)
	localGen := b.frame.ToLocal(generatedDir)
	f, directPdfW, reversePdfW, event := b.Material.Evaluate(b.UV, localFixed, localGen)
	if f.IsBlack() {
		return core.Vec3{}, material.EventNone, 0, 0
	}

	value = f.MultiplyVec(b.Color).Multiply(math.Abs(localGen.Z))
	if b.FromLight {
		value = value.Multiply(b.adjointCorrection(localFixed.Z, dotFixedNG, localGen.Z, dotGenNG))
	}
	return value, event, directPdfW, reversePdfW
}

// Sample draws a scattered direction. value is the scattered value divided
// by pdfW, the throughput multiplier of the new segment.
func (b *BSDF) Sample(u0, u1 float64) (value, sampledDir core.Vec3, pdfW, cosSampledDir float64, event material.Event, ok bool) {
	localFixed := b.frame.ToLocal(b.FixedDir)
	f, localGen, pdfW, event, ok := b.Material.Sample(b.UV, localFixed, u0, u1, b.FromLight)
	if !ok || !(pdfW > 0) {
		return core.Vec3{}, core.Vec3{}, 0, 0, material.EventNone, false
	}

	sampledDir = b.frame.ToWorld(localGen).Normalize()
	dotFixedNG := b.FixedDir.Dot(b.GeometryN)
	dotGenNG := sampledDir.Dot(b.GeometryN)
	// The shading frame can place a direction on the wrong geometric side
	sideTest := dotFixedNG * dotGenNG
	if (event&material.Reflect != 0 && sideTest <= 0) || (event&material.Transmit != 0 && sideTest >= 0) {
		return core.Vec3{}, core.Vec3{}, 0, 0, material.EventNone, false
	}

	cosSampledDir = math.Abs(localGen.Z)
	value = f.MultiplyVec(b.Color).Multiply(cosSampledDir / pdfW)
	if b.FromLight {
		value = value.Multiply(b.adjointCorrection(localFixed.Z, dotFixedNG, localGen.Z, dotGenNG))
	}
	if !value.IsValid() {
		return core.Vec3{}, core.Vec3{}, 0, 0, material.EventNone, false
	}
	return value, sampledDir, pdfW, cosSampledDir, event, true
}

// Pdf returns the forward and reverse solid angle pdfs for generatedDir
func (b *BSDF) Pdf(generatedDir core.Vec3) (directPdfW, reversePdfW float64) {
	return b.Material.Pdf(b.UV, b.frame.ToLocal(b.FixedDir), b.frame.ToLocal(generatedDir))
}

// adjointCorrection is |fix·Ns||gen·Ng| / (|fix·Ng||gen·Ns|)
func (b *BSDF) adjointCorrection(fixNS, fixNG, genNS, genNG float64) float64 {
	den := math.Abs(fixNG) * math.Abs(genNS)
	if den == 0 {
		return 0
	}
	return math.Abs(fixNS) * math.Abs(genNG) / den
}

// InteriorVolume returns the medium behind the surface
func (b *BSDF) InteriorVolume() material.VolumeID {
	return b.Material.Interior
}

// ExteriorVolume returns the medium in front of the surface
func (b *BSDF) ExteriorVolume() material.VolumeID {
	return b.Material.Exterior
}
