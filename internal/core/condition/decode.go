package condition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// ColorMode is the pixel-channel layout of a decoded image.
type ColorMode string

const (
	ModeGray ColorMode = "gray"
	ModeRGB  ColorMode = "rgb"
	ModeRGBA ColorMode = "rgba"
)

// RawImage is a decoded bitmap owned by one pipeline invocation.
type RawImage struct {
	Image  image.Image
	Width  int
	Height int
	Mode   ColorMode
	Format string // decoder name: png, jpeg, ...
}

// NewRawImage wraps an already decoded image.
func NewRawImage(img image.Image) (RawImage, error) {
	if img == nil {
		return RawImage{}, common.NewAppError("IMAGE", "nil image", common.ErrImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return RawImage{}, common.NewAppError("IMAGE", "image has no pixels", common.ErrImage)
	}
	return RawImage{Image: img, Width: b.Dx(), Height: b.Dy(), Mode: colorModeOf(img)}, nil
}

// Decode reads png, jpeg, gif, bmp, tiff or webp bytes and applies the EXIF
// orientation when present.
func Decode(data []byte) (RawImage, error) {
	if len(data) == 0 {
		return RawImage{}, common.NewAppError("IMAGE", "empty image payload", common.ErrImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return RawImage{}, common.NewAppError("IMAGE", "decode image", fmt.Errorf("%w: %v", common.ErrImage, err))
	}
	if o := exifOrientation(data); o > 1 {
		img = applyOrientation(img, o)
	}
	raw, err := NewRawImage(img)
	if err != nil {
		return RawImage{}, err
	}
	raw.Format = format
	return raw, nil
}

func colorModeOf(img image.Image) ColorMode {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return ModeRGB
	}
	return ModeRGBA
}

// exifOrientation returns the Orientation tag (1..8), or 0 when absent.
func exifOrientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 0
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if v, ok := entry.Value.([]uint16); ok && len(v) > 0 {
			return int(v[0])
		}
		n, err := strconv.Atoi(strings.Trim(entry.Formatted, "[] "))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// applyOrientation turns a stored image upright per the EXIF orientation values.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
