package condition

import (
	"image"

	"github.com/disintegration/imaging"
)

// toGray returns a fresh *image.Gray anchored at the origin. Transparent
// pixels are composed over white so they read as paper, not ink.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			srcOff := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], g.Pix[srcOff:srcOff+b.Dx()])
		}
		return dst
	}

	n := imaging.Grayscale(img)
	for y := 0; y < b.Dy(); y++ {
		row := n.Pix[y*n.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			v := uint32(row[4*x])
			a := uint32(row[4*x+3])
			out[x] = uint8((v*a + 255*(255-a) + 127) / 255)
		}
	}
	return dst
}

// at reads a pixel with coordinates clamped to the image (replicated border).
func at(g *image.Gray, x, y int) uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return g.Pix[y*g.Stride+x]
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
