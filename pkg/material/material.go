// Package material defines the closed set of surface materials and the
// scattering lobes they evaluate in a local shading frame where +Z is the
// shading normal.
package material

import (
	"fmt"

	"github.com/df07/lightpath/pkg/core"
)

// Kind enumerates the material variants
type Kind int

const (
	// Matte is a Lambertian reflector, optionally with stochastic alpha
	Matte Kind = iota
	// Mirror is a perfect specular reflector
	Mirror
	// Glass is a smooth Fresnel dielectric
	Glass
	// GlossyKind combines a Lambertian base with a normalized Phong lobe
	GlossyKind
	// Null lets light pass straight through, tinted by Kt
	Null
)

func (k Kind) String() string {
	switch k {
	case Matte:
		return "MATTE"
	case Mirror:
		return "MIRROR"
	case Glass:
		return "GLASS"
	case GlossyKind:
		return "GLOSSY"
	case Null:
		return "NULL"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ID indexes a material in a Table
type ID int

// Material is a tagged variant. Only the fields of its Kind are meaningful.
type Material struct {
	Kind Kind

	Kd       Texture   // Matte, Glossy base color
	Kr       core.Vec3 // Mirror, Glass reflection, Glossy specular color
	Kt       core.Vec3 // Glass, Null transmission
	IOR      float64   // Glass index of refraction
	Exponent float64   // Glossy Phong exponent
	Alpha    float64   // Matte opacity, 1 is fully opaque

	Emission core.Vec3 // Non-zero turns triangles using this material into area lights

	Interior, Exterior VolumeID
}

// NewMatte creates an opaque Lambertian material
func NewMatte(kd core.Vec3) Material {
	return NewTexturedMatte(Solid(kd))
}

// NewTexturedMatte creates an opaque Lambertian material with a texture
func NewTexturedMatte(kd Texture) Material {
	return Material{Kind: Matte, Kd: kd, Alpha: 1, Interior: NoVolume, Exterior: NoVolume}
}

// NewMirror creates a specular reflector
func NewMirror(kr core.Vec3) Material {
	return Material{Kind: Mirror, Kr: kr, Interior: NoVolume, Exterior: NoVolume}
}

// NewGlass creates a dielectric with the given colors and index of refraction
func NewGlass(kr, kt core.Vec3, ior float64) Material {
	return Material{Kind: Glass, Kr: kr, Kt: kt, IOR: ior, Interior: NoVolume, Exterior: NoVolume}
}

// NewGlossy creates a Lambertian plus Phong material
func NewGlossy(kd, ks core.Vec3, exponent float64) Material {
	return Material{Kind: GlossyKind, Kd: Solid(kd), Kr: ks, Exponent: exponent, Interior: NoVolume, Exterior: NoVolume}
}

// NewNull creates a pass-through material
func NewNull(kt core.Vec3) Material {
	return Material{Kind: Null, Kt: kt, Interior: NoVolume, Exterior: NoVolume}
}

// NewEmitter creates a black matte surface emitting le
func NewEmitter(le core.Vec3) Material {
	m := NewMatte(core.Vec3{})
	m.Emission = le
	return m
}

// WithVolumes returns a copy of m bounded by the given volumes
func (m Material) WithVolumes(interior, exterior VolumeID) Material {
	m.Interior = interior
	m.Exterior = exterior
	return m
}

// IsEmissive reports whether the material emits light
func (m *Material) IsEmissive() bool {
	return !m.Emission.IsBlack()
}

// IsDelta reports whether every lobe of the material is specular
func (m *Material) IsDelta() bool {
	return m.Kind == Mirror || m.Kind == Glass || m.Kind == Null
}

// IsPassThrough reports whether rays may continue through the surface
// without a scattering event
func (m *Material) IsPassThrough() bool {
	return m.Kind == Null || (m.Kind == Matte && m.Alpha < 1)
}

// EventTypes returns every event the material can generate
func (m *Material) EventTypes() Event {
	switch m.Kind {
	case Matte:
		return Diffuse | Reflect
	case Mirror:
		return Specular | Reflect
	case Glass:
		return Specular | Reflect | Transmit
	case GlossyKind:
		return Glossy | Reflect
	case Null:
		return Specular | Transmit
	}
	return EventNone
}

// PassThroughTransparency returns the transparency of a pass-through hit.
// u decides stochastic alpha: black means the surface is opaque for this sample.
func (m *Material) PassThroughTransparency(u float64) core.Vec3 {
	switch m.Kind {
	case Null:
		return m.Kt
	case Matte:
		if m.Alpha < 1 && u > m.Alpha {
			return core.Splat(1)
		}
	}
	return core.Vec3{}
}

// Table owns materials and volumes, referenced by index
type Table struct {
	materials []Material
	volumes   []Volume
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Add appends a material and returns its ID
func (t *Table) Add(m Material) ID {
	t.materials = append(t.materials, m)
	return ID(len(t.materials) - 1)
}

// AddVolume appends a volume and returns its ID
func (t *Table) AddVolume(v Volume) VolumeID {
	t.volumes = append(t.volumes, v)
	return VolumeID(len(t.volumes) - 1)
}

// Get returns the material with the given ID
func (t *Table) Get(id ID) *Material {
	return &t.materials[id]
}

// Volume returns the volume with the given ID, or nil for NoVolume
func (t *Table) Volume(id VolumeID) *Volume {
	if id < 0 || int(id) >= len(t.volumes) {
		return nil
	}
	return &t.volumes[id]
}

// Len returns the number of materials
func (t *Table) Len() int {
	return len(t.materials)
}

// Validate checks that every material has sane parameters and valid volume references
func (t *Table) Validate() error {
	for i, m := range t.materials {
		switch {
		case m.Kind == Glass && m.IOR <= 0:
			return fmt.Errorf("material %d: glass needs a positive IOR, got %g", i, m.IOR)
		case m.Kind == GlossyKind && m.Exponent < 0:
			return fmt.Errorf("material %d: glossy exponent must be non-negative, got %g", i, m.Exponent)
		case !m.Emission.IsValid():
			return fmt.Errorf("material %d: invalid emission %v", i, m.Emission)
		}
		for _, v := range []VolumeID{m.Interior, m.Exterior} {
			if v != NoVolume && t.Volume(v) == nil {
				return fmt.Errorf("material %d: unknown volume %d", i, v)
			}
		}
	}
	return nil
}
