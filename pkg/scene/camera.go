package scene

import (
	"fmt"
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// CameraConfig describes a perspective camera
type CameraConfig struct {
	Center        core.Vec3 // Camera position
	LookAt        core.Vec3 // Point the camera is looking at
	Up            core.Vec3 // Up direction (usually (0,1,0))
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens diameter, 0 for a pinhole
	FocusDistance float64   // Distance to the focal plane, 0 means the LookAt distance
}

// Camera is a thin-lens perspective camera. Film coordinates run from (0,0)
// at the top-left corner to (width,height).
type Camera struct {
	config CameraConfig

	position core.Vec3
	forward  core.Vec3
	right    core.Vec3
	up       core.Vec3

	width, height float64
	tanHalfFov    float64
	aspect        float64
	lensRadius    float64
	focusDistance float64

	// Area of the image plane at distance 1 from the camera
	imagePlaneArea float64
}

// NewCamera creates a camera rendering a width x height film
func NewCamera(config CameraConfig, width, height int) (*Camera, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("camera: invalid film size %dx%d", width, height)
	}
	if !(config.VFov > 0 && config.VFov < 180) {
		return nil, fmt.Errorf("camera: vertical field of view must be in (0, 180), got %g", config.VFov)
	}
	forward := config.LookAt.Subtract(config.Center).Normalize()
	if forward.IsBlack() || !forward.IsFinite() {
		return nil, fmt.Errorf("camera: look-at point equals the camera position")
	}
	right := forward.Cross(config.Up).Normalize()
	if right.IsBlack() || !right.IsFinite() {
		return nil, fmt.Errorf("camera: up vector is parallel to the view direction")
	}
	up := right.Cross(forward)

	focus := config.FocusDistance
	if focus <= 0 {
		focus = config.LookAt.Subtract(config.Center).Length()
	}

	c := &Camera{
		config:        config,
		position:      config.Center,
		forward:       forward,
		right:         right,
		up:            up,
		width:         float64(width),
		height:        float64(height),
		tanHalfFov:    math.Tan(config.VFov * math.Pi / 360),
		aspect:        float64(width) / float64(height),
		lensRadius:    config.Aperture / 2,
		focusDistance: focus,
	}
	c.imagePlaneArea = (2 * c.tanHalfFov * c.aspect) * (2 * c.tanHalfFov)
	return c, nil
}

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig { return c.config }

// Position returns the center of the lens
func (c *Camera) Position() core.Vec3 { return c.position }

// Forward returns the unit view direction
func (c *Camera) Forward() core.Vec3 { return c.forward }

// FilmSize returns the film width and height in pixels
func (c *Camera) FilmSize() (float64, float64) { return c.width, c.height }

// ImagePlaneArea returns the area of the image plane at distance 1
func (c *Camera) ImagePlaneArea() float64 { return c.imagePlaneArea }

// IsPinhole reports whether the lens has no aperture
func (c *Camera) IsPinhole() bool { return c.lensRadius <= 0 }

// SampleLens returns a point on the lens
func (c *Camera) SampleLens(u0, u1 float64) core.Vec3 {
	if c.lensRadius <= 0 {
		return c.position
	}
	d := core.SamplePointInUnitDisk(core.NewVec2(u0, u1))
	return c.position.
		Add(c.right.Multiply(d.X * c.lensRadius)).
		Add(c.up.Multiply(d.Y * c.lensRadius))
}

// GenerateRay creates the primary ray through film position (filmX, filmY),
// starting at the lens point picked by u0 and u1
func (c *Camera) GenerateRay(filmX, filmY, u0, u1 float64) core.Ray {
	sx := (2*filmX/c.width - 1) * c.tanHalfFov * c.aspect
	sy := (1 - 2*filmY/c.height) * c.tanHalfFov
	dir := c.forward.Add(c.right.Multiply(sx)).Add(c.up.Multiply(sy)).Normalize()

	if c.lensRadius <= 0 {
		return core.NewRay(c.position, dir)
	}
	focusPoint := c.position.Add(dir.Multiply(c.focusDistance / dir.Dot(c.forward)))
	lens := c.SampleLens(u0, u1)
	return core.NewRay(lens, focusPoint.Subtract(lens).Normalize())
}

// GetSamplePosition maps a ray leaving the lens to the film position that
// would have generated it. ok is false when the ray misses the film.
func (c *Camera) GetSamplePosition(ray core.Ray) (filmX, filmY float64, ok bool) {
	dir := ray.Direction
	cos := dir.Dot(c.forward)
	if cos <= 0 {
		return 0, 0, false
	}
	if c.lensRadius > 0 {
		focusPoint := ray.Origin.Add(dir.Multiply(c.focusDistance / cos))
		dir = focusPoint.Subtract(c.position)
		cos = dir.Dot(c.forward)
		if cos <= 0 {
			return 0, 0, false
		}
	}

	projected := dir.Multiply(1 / cos)
	sx := projected.Dot(c.right) / (c.tanHalfFov * c.aspect)
	sy := projected.Dot(c.up) / c.tanHalfFov
	filmX = (sx + 1) * 0.5 * c.width
	filmY = (1 - sy) * 0.5 * c.height
	if !(filmX >= 0 && filmX < c.width && filmY >= 0 && filmY < c.height) {
		return 0, 0, false
	}
	return filmX, filmY, true
}

// PdfW returns the solid angle density of primary rays leaving the lens in
// direction dir, 1/(cos³·A) with A the image plane area at distance 1
func (c *Camera) PdfW(dir core.Vec3) float64 {
	cos := dir.Dot(c.forward)
	if cos <= 0 {
		return 0
	}
	return 1 / (cos * cos * cos * c.imagePlaneArea)
}
