package film

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/df07/lightpath/pkg/core"
)

// ErrInvalidSize is returned for zero or oversized film dimensions
var ErrInvalidSize = errors.New("invalid film size")

const maxPixelCount = 1 << 26

// Channel is a bit set of the buffers a film allocates
type Channel uint32

const (
	ChannelRadiancePerPixel Channel = 1 << iota
	ChannelRadiancePerScreen
	ChannelAlpha
	ChannelDepth
	ChannelEmission
	ChannelDirectDiffuse
	ChannelDirectGlossy
	ChannelIndirectDiffuse
	ChannelIndirectGlossy
	ChannelIndirectSpecular
)

// DefaultChannels is what every engine needs
const DefaultChannels = ChannelRadiancePerPixel | ChannelRadiancePerScreen | ChannelAlpha | ChannelDepth

// AOVChannels are the radiance breakdown channels
const AOVChannels = ChannelEmission | ChannelDirectDiffuse | ChannelDirectGlossy |
	ChannelIndirectDiffuse | ChannelIndirectGlossy | ChannelIndirectSpecular

var aovOrder = []Channel{
	ChannelEmission, ChannelDirectDiffuse, ChannelDirectGlossy,
	ChannelIndirectDiffuse, ChannelIndirectGlossy, ChannelIndirectSpecular,
}

// Options configures a film
type Options struct {
	Width, Height int
	Channels      Channel
	Filter        *Filter // nil means FilterNone
	ToneMap       ToneMap
	Gamma         float64

	ConvergenceMetric    DistMetric
	ConvergenceThreshold float64
}

// Film accumulates sample results into per-pixel and per-screen radiance planes.
// Splats are lock free. AddFilm, Reset and the readers (Pixel, GetOutput,
// UpdateScreenBuffer) are serialized through a mutex, so a film only fed by
// AddFilm is never read half merged. A reader racing a direct splat may see
// that one splat partly applied.
type Film struct {
	opts   Options
	filter *Filter

	perPixel  *pixelBuffer // r, g, b, weight
	perScreen *pixelBuffer // r, g, b, weight
	alpha     *pixelBuffer // alpha, weight
	depth     *pixelBuffer // min distance
	aovs      map[Channel]*pixelBuffer

	totalSampleCount atomicFloat64

	mu sync.Mutex

	screenMu    sync.Mutex
	screen      []core.Vec3
	convergence []core.Vec3
	converged   float64
}

// New creates a film, allocating one buffer set per requested channel
func New(opts Options) (*Film, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width*opts.Height > maxPixelCount {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}
	if opts.Channels == 0 {
		opts.Channels = DefaultChannels
	}
	if opts.Gamma <= 0 {
		opts.Gamma = 2.2
	}
	if opts.ToneMap.Type == ToneMapLinear && opts.ToneMap.Scale == 0 {
		opts.ToneMap.Scale = 1
	}
	filter := opts.Filter
	if filter == nil {
		filter = &Filter{Type: FilterNone}
	}

	w, h := opts.Width, opts.Height
	f := &Film{
		opts:   opts,
		filter: filter,
		aovs:   make(map[Channel]*pixelBuffer),
		screen: make([]core.Vec3, w*h),
	}
	if opts.Channels&ChannelRadiancePerPixel != 0 {
		f.perPixel = newPixelBuffer(w, h, 4)
	}
	if opts.Channels&ChannelRadiancePerScreen != 0 {
		f.perScreen = newPixelBuffer(w, h, 4)
	}
	if opts.Channels&ChannelAlpha != 0 {
		f.alpha = newPixelBuffer(w, h, 2)
	}
	if opts.Channels&ChannelDepth != 0 {
		f.depth = newPixelBuffer(w, h, 1)
		f.resetDepth()
	}
	for _, ch := range aovOrder {
		if opts.Channels&ch != 0 {
			f.aovs[ch] = newPixelBuffer(w, h, 4)
		}
	}
	return f, nil
}

// Clone returns an empty film with identical options, used as a thread-local film
func (f *Film) Clone() *Film {
	clone, _ := New(f.opts)
	return clone
}

// Width returns the film width in pixels
func (f *Film) Width() int { return f.opts.Width }

// Height returns the film height in pixels
func (f *Film) Height() int { return f.opts.Height }

// PixelCount returns Width*Height
func (f *Film) PixelCount() int { return f.opts.Width * f.opts.Height }

// HasChannel reports whether the film allocates ch
func (f *Film) HasChannel(ch Channel) bool { return f.opts.Channels&ch != 0 }

// Options returns the options the film was built with
func (f *Film) Options() Options { return f.opts }

// AddSampleCount records n more primary samples
func (f *Film) AddSampleCount(n float64) {
	f.totalSampleCount.Add(n)
}

// TotalSampleCount returns the number of recorded primary samples
func (f *Film) TotalSampleCount() float64 {
	return f.totalSampleCount.Load()
}

// SamplesPerPixel returns the average sample count per pixel
func (f *Film) SamplesPerPixel() float64 {
	return f.TotalSampleCount() / float64(f.PixelCount())
}

// AddSampleResult splats every channel of sr with the given weight. Per-screen
// results only carry radiance.
func (f *Film) AddSampleResult(sr *SampleResult, weight float64) {
	if sr.Normalization == PerScreenNormalized {
		if f.perScreen != nil {
			f.splat(f.perScreen, sr.FilmX, sr.FilmY, sr.Radiance, weight)
		}
		return
	}
	if f.perPixel != nil {
		f.splat(f.perPixel, sr.FilmX, sr.FilmY, sr.Radiance, weight)
	}
	f.AddAuxiliary(sr, weight)
}

// AddAuxiliary splats the AOV, alpha and depth channels of sr as a per-pixel
// sample, leaving the radiance planes untouched. Samplers whose radiance goes
// to the per-screen plane use it for their uniformly distributed samples.
func (f *Film) AddAuxiliary(sr *SampleResult, weight float64) {
	if len(f.aovs) > 0 {
		values := [...]core.Vec3{sr.Emission, sr.DirectDiffuse, sr.DirectGlossy,
			sr.IndirectDiffuse, sr.IndirectGlossy, sr.IndirectSpecular}
		for i, ch := range aovOrder {
			if buf, ok := f.aovs[ch]; ok {
				f.splat(buf, sr.FilmX, sr.FilmY, values[i], weight)
			}
		}
	}
	if f.alpha != nil {
		f.splatAlpha(sr.FilmX, sr.FilmY, sr.Alpha, weight)
	}
	if f.depth != nil {
		x, y, ok := f.nearestPixel(sr.FilmX, sr.FilmY)
		if ok {
			atomicMinFloat64(f.depth, x, y, sr.Depth)
		}
	}
}

type filterTap struct {
	x, y int
	w    float64
}

// SplatFiltered adds radiance to the plane selected by norm through the
// reconstruction filter. Other channels are left untouched.
func (f *Film) SplatFiltered(norm Normalization, filmX, filmY float64, radiance core.Vec3, weight float64) {
	buf := f.perPixel
	if norm == PerScreenNormalized {
		buf = f.perScreen
	}
	if buf != nil {
		f.splat(buf, filmX, filmY, radiance, weight)
	}
}

// splat distributes value over the pixels under the filter footprint
// centered at (filmX, filmY). Tap weights are normalized so a splat always
// adds exactly weight to the footprint's weight sum.
func (f *Film) splat(buf *pixelBuffer, filmX, filmY float64, value core.Vec3, weight float64) {
	if weight <= 0 {
		return
	}
	var taps [128]filterTap
	for _, t := range f.filterTaps(filmX, filmY, taps[:0]) {
		w := t.w * weight
		buf.add(t.x, t.y, 0, value.X*w)
		buf.add(t.x, t.y, 1, value.Y*w)
		buf.add(t.x, t.y, 2, value.Z*w)
		buf.add(t.x, t.y, 3, w)
	}
}

func (f *Film) splatAlpha(filmX, filmY, alpha, weight float64) {
	if weight <= 0 {
		return
	}
	var taps [128]filterTap
	for _, t := range f.filterTaps(filmX, filmY, taps[:0]) {
		w := t.w * weight
		f.alpha.add(t.x, t.y, 0, alpha*w)
		f.alpha.add(t.x, t.y, 1, w)
	}
}

// filterTaps returns the pixels and normalized weights covered by a splat
func (f *Film) filterTaps(filmX, filmY float64, taps []filterTap) []filterTap {
	if f.filter.Type == FilterNone {
		if x, y, ok := f.nearestPixel(filmX, filmY); ok {
			taps = append(taps, filterTap{x, y, 1})
		}
		return taps
	}

	// Pixel centers sit at (x+0.5, y+0.5)
	cx, cy := filmX-0.5, filmY-0.5
	x0 := max(0, int(math.Ceil(cx-f.filter.XWidth)))
	x1 := min(f.opts.Width-1, int(math.Floor(cx+f.filter.XWidth)))
	y0 := max(0, int(math.Ceil(cy-f.filter.YWidth)))
	y1 := min(f.opts.Height-1, int(math.Floor(cy+f.filter.YWidth)))

	sum := 0.0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			w := f.filter.Evaluate(float64(x)-cx, float64(y)-cy)
			if w > 0 {
				taps = append(taps, filterTap{x, y, w})
				sum += w
			}
		}
	}
	if sum <= 0 {
		taps = taps[:0]
		if x, y, ok := f.nearestPixel(filmX, filmY); ok {
			taps = append(taps, filterTap{x, y, 1})
		}
		return taps
	}
	invSum := 1 / sum
	for i := range taps {
		taps[i].w *= invSum
	}
	return taps
}

func (f *Film) nearestPixel(filmX, filmY float64) (int, int, bool) {
	if !(filmX >= 0 && filmY >= 0) {
		return 0, 0, false
	}
	x, y := int(filmX), int(filmY)
	if x >= f.opts.Width || y >= f.opts.Height {
		return 0, 0, false
	}
	return x, y, true
}

func atomicMinFloat64(buf *pixelBuffer, x, y int, v float64) {
	cell := &buf.data[(y*buf.width+x)*buf.stride]
	for {
		old := cell.Load()
		if math.Float64frombits(old) <= v {
			return
		}
		if cell.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

// AddFilm accumulates every buffer of src into f
func (f *Film) AddFilm(src *Film) error {
	if src.opts.Width != f.opts.Width || src.opts.Height != f.opts.Height {
		return fmt.Errorf("%w: cannot add %dx%d film to %dx%d film", ErrInvalidSize,
			src.opts.Width, src.opts.Height, f.opts.Width, f.opts.Height)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.perPixel != nil && src.perPixel != nil {
		f.perPixel.addBuffer(src.perPixel)
	}
	if f.perScreen != nil && src.perScreen != nil {
		f.perScreen.addBuffer(src.perScreen)
	}
	if f.alpha != nil && src.alpha != nil {
		f.alpha.addBuffer(src.alpha)
	}
	if f.depth != nil && src.depth != nil {
		for y := 0; y < f.opts.Height; y++ {
			for x := 0; x < f.opts.Width; x++ {
				atomicMinFloat64(f.depth, x, y, src.depth.get(x, y, 0))
			}
		}
	}
	for ch, buf := range f.aovs {
		if other, ok := src.aovs[ch]; ok {
			buf.addBuffer(other)
		}
	}
	f.totalSampleCount.Add(src.TotalSampleCount())
	return nil
}

// Reset clears every buffer and the sample count
func (f *Film) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, buf := range []*pixelBuffer{f.perPixel, f.perScreen, f.alpha} {
		if buf != nil {
			buf.clear()
		}
	}
	for _, buf := range f.aovs {
		buf.clear()
	}
	if f.depth != nil {
		f.resetDepth()
	}
	f.totalSampleCount.Store(0)

	f.screenMu.Lock()
	clear(f.screen)
	f.convergence = nil
	f.converged = 0
	f.screenMu.Unlock()
}

func (f *Film) resetDepth() {
	inf := math.Float64bits(math.Inf(1))
	for i := range f.depth.data {
		f.depth.data[i].Store(inf)
	}
}

// Pixel returns the merged linear radiance of pixel (x, y): the weighted
// per-pixel average plus the per-screen sum scaled by pixelCount/totalSamples.
func (f *Film) Pixel(x, y int) core.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pixel(x, y)
}

func (f *Film) pixel(x, y int) core.Vec3 {
	var c core.Vec3
	if f.perPixel != nil {
		if w := f.perPixel.get(x, y, 3); w > 0 {
			c = core.NewVec3(f.perPixel.get(x, y, 0), f.perPixel.get(x, y, 1), f.perPixel.get(x, y, 2)).Multiply(1 / w)
		}
	}
	if f.perScreen != nil {
		if total := f.TotalSampleCount(); total > 0 {
			factor := float64(f.PixelCount()) / total
			c = c.Add(core.NewVec3(f.perScreen.get(x, y, 0), f.perScreen.get(x, y, 1), f.perScreen.get(x, y, 2)).Multiply(factor))
		}
	}
	return c
}

// PixelWeight returns the per-pixel filter weight sum at (x, y)
func (f *Film) PixelWeight(x, y int) float64 {
	if f.perPixel == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perPixel.get(x, y, 3)
}

// UpdateScreenBuffer merges the radiance planes, tone maps the result and
// stores the gamma corrected display image.
func (f *Film) UpdateScreenBuffer() {
	w, h := f.opts.Width, f.opts.Height
	pixels := make([]core.Vec3, w*h)
	f.mu.Lock()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pixels[y*w+x] = f.pixel(x, y)
		}
	}
	f.mu.Unlock()
	f.opts.ToneMap.Apply(pixels)
	for i, p := range pixels {
		pixels[i] = p.GammaCorrect(f.opts.Gamma).Clamp(0, 1)
	}

	f.screenMu.Lock()
	f.screen = pixels
	f.screenMu.Unlock()
}

// ScreenBuffer returns a copy of the last display image
func (f *Film) ScreenBuffer() []core.Vec3 {
	f.screenMu.Lock()
	defer f.screenMu.Unlock()
	out := make([]core.Vec3, len(f.screen))
	copy(out, f.screen)
	return out
}
