package condition

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// denoiseNLM applies non-local means smoothing. Each output pixel is the
// weighted mean of pixels in a search x search window, weighted by
// exp(-d/h²) where d is the mean squared difference of the template x
// template patches around the two pixels. Patch distances come from one
// integral image per search offset. Rows are split into bands processed
// in parallel.
func denoiseNLM(src *image.Gray, h float64, template, search int) *image.Gray {
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	tr, sr := template/2, search/2
	pad := tr + sr
	p := padReplicate(src, pad)

	area := float64(template * template)
	weights := make([]float64, 256*256)
	for d := range weights {
		weights[d] = math.Exp(-float64(d) / (h * h))
	}

	dst := image.NewGray(image.Rect(0, 0, w, ht))
	workers := runtime.GOMAXPROCS(0)
	bandH := max((ht+workers*2-1)/(workers*2), 16)

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < ht; y0 += bandH {
		y1 := min(y0+bandH, ht)
		g.Go(func() error {
			nlmBand(p, dst, w, y0, y1, pad, tr, sr, area, weights)
			return nil
		})
	}
	_ = g.Wait()
	return dst
}

type padded struct {
	pix    []uint8
	stride int
}

func (p padded) at(x, y int) int32 { return int32(p.pix[y*p.stride+x]) }

// padReplicate copies src into a buffer with pad replicated pixels per side.
func padReplicate(src *image.Gray, pad int) padded {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	stride := w + 2*pad
	pix := make([]uint8, stride*(h+2*pad))
	for y := 0; y < h+2*pad; y++ {
		for x := 0; x < stride; x++ {
			pix[y*stride+x] = at(src, x-pad, y-pad)
		}
	}
	return padded{pix: pix, stride: stride}
}

// nlmBand denoises output rows [y0, y1). Coordinates into p are offset by pad.
func nlmBand(p padded, dst *image.Gray, w, y0, y1, pad, tr, sr int, area float64, weights []float64) {
	bandH := y1 - y0
	acc := make([]float64, bandH*w)
	wsum := make([]float64, bandH*w)

	// integral of squared differences over rows [y0-tr, y1+tr) and
	// columns [-tr, w+tr), with a leading zero row and column
	iw, ih := w+2*tr+1, bandH+2*tr+1
	integral := make([]int64, iw*ih)

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for iy := 1; iy < ih; iy++ {
				sy := y0 - tr + iy - 1 + pad
				var rowSum int64
				for ix := 1; ix < iw; ix++ {
					sx := ix - 1 - tr + pad
					d := p.at(sx, sy) - p.at(sx+dx, sy+dy)
					rowSum += int64(d * d)
					integral[iy*iw+ix] = integral[(iy-1)*iw+ix] + rowSum
				}
			}
			for by := 0; by < bandH; by++ {
				top, bot := by*iw, (by+2*tr+1)*iw
				for x := 0; x < w; x++ {
					left, right := x, x+2*tr+1
					ssd := integral[bot+right] - integral[bot+left] - integral[top+right] + integral[top+left]
					mean := int(float64(ssd)/area + 0.5)
					if mean >= len(weights) {
						continue
					}
					wt := weights[mean]
					i := by*w + x
					acc[i] += wt * float64(p.at(x+pad+dx, y0+by+pad+dy))
					wsum[i] += wt
				}
			}
		}
	}

	for by := 0; by < bandH; by++ {
		row := dst.Pix[(y0+by)*dst.Stride:]
		for x := 0; x < w; x++ {
			i := by*w + x
			row[x] = clamp8(acc[i] / wsum[i])
		}
	}
}
