package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mjibson/go-dsp/window"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// WindowFunc returns taper coefficients for a segment of length n.
type WindowFunc func(n int) []float64

// WindowRectangular is the default taper: no tapering at all.
const WindowRectangular = "rectangular"

var windows = map[string]WindowFunc{
	"none":        window.Rectangular,
	"rectangular": window.Rectangular,
	"hann":        window.Hann,
	"hanning":     window.Hann,
	"hamming":     window.Hamming,
	"bartlett":    window.Bartlett,
	"blackman":    window.Blackman,
	"flattop":     window.FlatTop,
}

// LookupWindow resolves a window by name, case-insensitively.
func LookupWindow(name string) (WindowFunc, error) {
	if name == "" {
		return window.Rectangular, nil
	}
	w, ok := windows[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown window %q (have %s)", dynamo.ErrInvalidParameters, name, strings.Join(WindowNames(), ", "))
	}
	return w, nil
}

func WindowNames() []string {
	names := make([]string, 0, len(windows))
	for name := range windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// taper evaluates w for length n. Symmetric windows divide by n-1, so a
// single-sample segment is left untapered.
func taper(w WindowFunc, n int) []float64 {
	if n == 1 {
		return []float64{1}
	}
	return w(n)
}
