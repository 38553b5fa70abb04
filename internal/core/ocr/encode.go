package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

const minUploadSide = 64

// uploadPayload is an encoded image ready for a multipart upload.
type uploadPayload struct {
	data        []byte
	filename    string
	contentType string
}

// encodeForUpload re-encodes img under maxBytes: lossless PNG first, then
// JPEG at falling quality, then repeated 0.75 downscales at the lowest
// quality.
func encodeForUpload(img *image.Gray, maxBytes int64) (uploadPayload, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return uploadPayload{}, fmt.Errorf("encode png: %w", err)
	}
	if int64(buf.Len()) <= maxBytes {
		return uploadPayload{data: buf.Bytes(), filename: "card.png", contentType: "image/png"}, nil
	}

	qualities := []int{90, 80, 70, 60, 50}
	var cur image.Image = img
	for {
		for _, q := range qualities {
			buf.Reset()
			if err := jpeg.Encode(&buf, cur, &jpeg.Options{Quality: q}); err != nil {
				return uploadPayload{}, fmt.Errorf("encode jpeg: %w", err)
			}
			if int64(buf.Len()) <= maxBytes {
				return uploadPayload{data: buf.Bytes(), filename: "card.jpg", contentType: "image/jpeg"}, nil
			}
		}
		b := cur.Bounds()
		w, h := b.Dx()*3/4, b.Dy()*3/4
		if w < minUploadSide || h < minUploadSide {
			return uploadPayload{}, fmt.Errorf("image cannot be reduced under %d bytes", maxBytes)
		}
		cur = grayOf(imaging.Resize(cur, w, h, imaging.Lanczos))
		qualities = qualities[len(qualities)-1:]
	}
}

// grayOf repacks imaging's NRGBA output so JPEG stays single channel.
func grayOf(n *image.NRGBA) *image.Gray {
	b := n.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := n.Pix[y*n.Stride:]
		dst := g.Pix[y*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[4*x]
		}
	}
	return g
}
