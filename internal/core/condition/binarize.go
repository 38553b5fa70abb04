package condition

import (
	"image"

	"github.com/disintegration/imaging"
)

// adaptiveThreshold binarizes against a Gaussian-weighted local mean:
// a pixel becomes white when it is brighter than mean-c, black otherwise.
func adaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	sigma := 0.3*(float64(blockSize-1)*0.5-1) + 0.8
	mean := imaging.Blur(src, sigma)

	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride:]
		m := mean.Pix[y*mean.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			if float64(in[x]) > float64(m[4*x])-c {
				out[x] = 255
			}
		}
	}
	return dst
}
