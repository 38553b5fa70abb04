package condition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// Technique names one conditioning filter.
type Technique string

const (
	Grayscale         Technique = "grayscale"
	CLAHE             Technique = "clahe"
	Denoise           Technique = "denoise"
	AdaptiveThreshold Technique = "adaptive_threshold"
	Deskew            Technique = "deskew"
)

// DefaultTechniques is the order used when the caller supplies none.
var DefaultTechniques = []Technique{Grayscale, CLAHE, Denoise, AdaptiveThreshold, Deskew}

// ParseTechniques parses a comma separated list ("clahe,adaptive_threshold").
// An empty string yields the default order.
func ParseTechniques(s string) ([]Technique, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return append([]Technique(nil), DefaultTechniques...), nil
	}
	var out []Technique
	for _, part := range strings.Split(s, ",") {
		t := Technique(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !t.valid() {
			return nil, common.NewAppError("INVALID_TECHNIQUE", fmt.Sprintf("unknown technique %q", part), common.ErrInvalidInput)
		}
		out = append(out, t)
	}
	if err := validateOrder(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t Technique) valid() bool {
	switch t {
	case Grayscale, CLAHE, Denoise, AdaptiveThreshold, Deskew:
		return true
	}
	return false
}

// validateOrder enforces that deskew, when present, follows binarization
// and is the final step.
func validateOrder(ts []Technique) error {
	for i, t := range ts {
		if !t.valid() {
			return common.NewAppError("INVALID_TECHNIQUE", fmt.Sprintf("unknown technique %q", t), common.ErrInvalidInput)
		}
		if t != Deskew {
			continue
		}
		if !slices.Contains(ts[:i], AdaptiveThreshold) {
			return common.NewAppError("INVALID_TECHNIQUE_ORDER", "deskew must run after adaptive_threshold", common.ErrInvalidInput)
		}
		if i != len(ts)-1 {
			return common.NewAppError("INVALID_TECHNIQUE_ORDER", "deskew must be the last technique", common.ErrInvalidInput)
		}
	}
	return nil
}
