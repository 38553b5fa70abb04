package condition

import (
	"image"
	"math"
	"sort"
)

const (
	foregroundMax  = 128  // pixels darker than this are ink
	minSkewDegrees = 0.05 // smaller estimates are left alone
)

type point struct{ x, y int64 }

// deskew estimates the text tilt and rotates the image upright. It returns
// the corrected image and the estimated angle in degrees.
func deskew(src *image.Gray) (*image.Gray, float64) {
	angle, ok := skewAngle(src)
	if !ok || math.Abs(angle) < minSkewDegrees {
		return toGray(src), 0
	}
	return rotate(src, angle), angle
}

// skewAngle returns the angle, folded into (-45, 45], of the minimum area
// rectangle enclosing the foreground pixels.
func skewAngle(src *image.Gray) (float64, bool) {
	pts := foregroundExtremes(src)
	if len(pts) < 3 {
		return 0, false
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0, false
	}
	theta := minAreaRectAngle(hull)
	theta = math.Mod(theta, 90)
	if theta < 0 {
		theta += 90
	}
	if theta > 45 {
		theta -= 90
	}
	return theta, true
}

// foregroundExtremes keeps the leftmost and rightmost ink pixel of each row;
// the convex hull of these equals the hull of all ink pixels.
func foregroundExtremes(src *image.Gray) []point {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	var pts []point
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		left := -1
		for x, v := range row {
			if v < foregroundMax {
				left = x
				break
			}
		}
		if left < 0 {
			continue
		}
		right := left
		for x := w - 1; x > left; x-- {
			if row[x] < foregroundMax {
				right = x
				break
			}
		}
		pts = append(pts, point{int64(left), int64(y)})
		if right != left {
			pts = append(pts, point{int64(right), int64(y)})
		}
	}
	return pts
}

func cross(o, a, b point) int64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// convexHull is Andrew's monotone chain; collinear points are dropped.
func convexHull(pts []point) []point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})
	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minAreaRectAngle returns the direction in degrees of the hull edge that the
// minimum area enclosing rectangle is flush with. One side of that rectangle
// is always collinear with a hull edge, so every edge is tried.
func minAreaRectAngle(hull []point) float64 {
	bestArea := math.Inf(1)
	bestAngle := 0.0
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := float64(b.x-a.x), float64(b.y-a.y)
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ux, uy := ex/length, ey/length
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.x-a.x), float64(p.y-a.y)
			u := px*ux + py*uy
			v := -px*uy + py*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		if area := (maxU - minU) * (maxV - minV); area < bestArea {
			bestArea = area
			bestAngle = math.Atan2(ey, ex) * 180 / math.Pi
		}
	}
	return bestAngle
}

// rotate turns the image by -angle degrees about its centre with bicubic
// sampling; samples outside the image replicate the border.
func rotate(src *image.Gray, angle float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(w-1)/2, float64(h-1)/2

	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			sx := cx + dx*cos - dy*sin
			sy := cy + dx*sin + dy*cos
			row[x] = clamp8(bicubic(src, sx, sy))
		}
	}
	return dst
}

func bicubic(src *image.Gray, sx, sy float64) float64 {
	x0, y0 := int(math.Floor(sx)), int(math.Floor(sy))
	wx := cubicWeights(sx - float64(x0))
	wy := cubicWeights(sy - float64(y0))
	var sum float64
	for j := 0; j < 4; j++ {
		var rowSum float64
		for i := 0; i < 4; i++ {
			rowSum += wx[i] * float64(at(src, x0-1+i, y0-1+j))
		}
		sum += wy[j] * rowSum
	}
	return sum
}

// cubicWeights returns the Keys kernel weights (a = -0.75) for the four
// taps at offsets -1, 0, 1, 2 from the sample's integer position.
func cubicWeights(t float64) [4]float64 {
	const a = -0.75
	var w [4]float64
	w[0] = ((a*(t+1)-5*a)*(t+1)+8*a)*(t+1) - 4*a
	w[1] = ((a+2)*t-(a+3))*t*t + 1
	w[2] = ((a+2)*(1-t)-(a+3))*(1-t)*(1-t) + 1
	w[3] = 1 - w[0] - w[1] - w[2]
	return w
}
