package material

import (
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// TextureKind enumerates the texture variants
type TextureKind int

const (
	// ConstantTexture returns the same color everywhere
	ConstantTexture TextureKind = iota
	// CheckerTexture alternates two colors on a UV grid
	CheckerTexture
)

// Texture provides spatially varying colors for materials
type Texture struct {
	Kind   TextureKind
	Color1 core.Vec3
	Color2 core.Vec3 // Checker only
	Checks float64   // Checks per unit UV, checker only
}

// Solid creates a constant color texture
func Solid(color core.Vec3) Texture {
	return Texture{Kind: ConstantTexture, Color1: color}
}

// Checkerboard creates a checker texture with checks squares per UV unit
func Checkerboard(color1, color2 core.Vec3, checks float64) Texture {
	return Texture{Kind: CheckerTexture, Color1: color1, Color2: color2, Checks: checks}
}

// Evaluate returns the texture color at the given UV coordinates
func (t Texture) Evaluate(uv core.Vec2) core.Vec3 {
	if t.Kind != CheckerTexture {
		return t.Color1
	}
	cx := int(math.Floor(uv.X * t.Checks))
	cy := int(math.Floor(uv.Y * t.Checks))
	if (cx+cy)%2 == 0 {
		return t.Color1
	}
	return t.Color2
}
