// Package preview draws a quick front view of a rig: bones as lines over the world bounds of
// every mesh skinned beneath the armature. Output is WebP or TGA.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"rig-merger/internal/mathutil"
	"rig-merger/internal/scene"
)

var ErrUnsupportedFormat = errors.New("preview: unsupported image format")

var (
	boneColor   = color.NRGBA{R: 240, G: 180, B: 40, A: 255}
	jointColor  = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	boundsColor = color.NRGBA{R: 80, G: 160, B: 230, A: 255}
)

// margin is the fraction of the image left empty on each side.
const margin = 0.05

// segment is a 2D stroke in world units, x right and z up.
type segment struct {
	a, b [2]float64
}

// Render returns a size×size front view (looking along +Y) of arm and its mesh descendants,
// drawn at size*supersample and downscaled.
func Render(arm *scene.Object, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	bones, boxes := collect(arm)

	full := size * supersample
	c := newCanvas(full, full)
	proj := fit(full, bones, boxes)

	for _, bx := range boxes {
		x0, y0 := proj(bx.a)
		x1, y1 := proj(bx.b)
		c.rect(x0, y0, x1, y1, supersample, boundsColor)
	}
	for _, s := range bones {
		x0, y0 := proj(s.a)
		x1, y1 := proj(s.b)
		c.line(x0, y0, x1, y1, 2*supersample, boneColor)
		c.dot(x0, y0, 4*supersample, jointColor)
	}

	return c.resolve(supersample)
}

// collect projects bones and mesh bounds onto the XZ plane.
func collect(arm *scene.Object) (bones, boxes []segment) {
	if arm == nil {
		return nil, nil
	}
	if arm.Armature != nil {
		world := arm.World()
		for _, b := range arm.Armature.Bones() {
			bones = append(bones, segment{front(world.MulPoint(b.Head)), front(world.MulPoint(b.Tail))})
		}
	}
	for _, child := range arm.ChildrenRecursive() {
		box, ok := child.WorldBounds()
		if !ok {
			continue
		}
		boxes = append(boxes, segment{[2]float64{box.Min.X, box.Min.Z}, [2]float64{box.Max.X, box.Max.Z}})
	}
	return bones, boxes
}

func front(v mathutil.Vec3) [2]float64 {
	return [2]float64{v[0], v[2]}
}

// fit returns a projection that maps the extent of every segment into a full×full image,
// keeping the aspect ratio and centring the drawing.
func fit(full int, groups ...[]segment) func([2]float64) (int, int) {
	lo := [2]float64{math.Inf(1), math.Inf(1)}
	hi := [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, g := range groups {
		for _, s := range g {
			for _, p := range [2][2]float64{s.a, s.b} {
				lo[0], lo[1] = math.Min(lo[0], p[0]), math.Min(lo[1], p[1])
				hi[0], hi[1] = math.Max(hi[0], p[0]), math.Max(hi[1], p[1])
			}
		}
	}
	if lo[0] > hi[0] {
		// Nothing to draw.
		lo, hi = [2]float64{-1, -1}, [2]float64{1, 1}
	}

	extent := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if extent < 1e-9 {
		extent = 1
	}
	usable := float64(full-1) * (1 - 2*margin)
	scale := usable / extent
	cx := (lo[0] + hi[0]) / 2
	cz := (lo[1] + hi[1]) / 2
	mid := float64(full-1) / 2

	return func(p [2]float64) (int, int) {
		x := mid + (p[0]-cx)*scale
		y := mid - (p[1]-cz)*scale
		return int(math.Round(x)), int(math.Round(y))
	}
}

// Write encodes img to path. The extension picks the format: .webp (lossless) or .tga.
func Write(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".webp" && ext != ".tga" {
		return fmt.Errorf("preview: write %s: %w", path, ErrUnsupportedFormat)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("preview: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	defer f.Close()

	switch ext {
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	case ".tga":
		err = tga.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
