package condition

import (
	"image"
	"math"
)

// equalizeCLAHE performs contrast limited adaptive histogram equalization
// over a grid x grid tiling with bilinear interpolation between tile LUTs.
func equalizeCLAHE(src *image.Gray, clipLimit float64, grid int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tilesX, tilesY := min(grid, w), min(grid, h)
	tileW := float64(w) / float64(tilesX)
	tileH := float64(h) / float64(tilesY)

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := int(float64(ty)*tileH), int(float64(ty+1)*tileH)
		if ty == tilesY-1 {
			y1 = h
		}
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := int(float64(tx)*tileW), int(float64(tx+1)*tileW)
			if tx == tilesX-1 {
				x1 = w
			}
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/tileH - 0.5
		ty1 := int(math.Floor(fy))
		ya := fy - float64(ty1)
		ty2 := ty1 + 1
		ty1, ty2 = max(ty1, 0), min(ty2, tilesY-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/tileW - 0.5
			tx1 := int(math.Floor(fx))
			xa := fx - float64(tx1)
			tx2 := tx1 + 1
			tx1, tx2 = max(tx1, 0), min(tx2, tilesX-1)

			v := src.Pix[y*src.Stride+x]
			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bot := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			dst.Pix[y*dst.Stride+x] = clamp8(top*(1-ya) + bot*ya)
		}
	}
	return dst
}

// tileLUT builds the clipped, redistributed equalization table for one tile.
func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	limit := max(int(clipLimit*float64(area)/256), 1)
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	scale := 255 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clamp8(float64(sum) * scale)
	}
	return lut
}
