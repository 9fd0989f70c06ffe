package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/series"
)

// PhasePortrait2D holds two channels of a sampled trajectory for plotting.
type PhasePortrait2D struct {
	XIndex, YIndex int
	X, Y           []float64
}

// PhasePortrait extracts channels xi and yi of s.
func PhasePortrait(s *series.Series, xi, yi int) (*PhasePortrait2D, error) {
	if s == nil || s.Len() == 0 {
		return nil, dynamo.ErrEmptyTrajectory
	}
	xs, err := s.Channel(xi)
	if err != nil {
		return nil, fmt.Errorf("phase portrait x: %w", err)
	}
	ys, err := s.Channel(yi)
	if err != nil {
		return nil, fmt.Errorf("phase portrait y: %w", err)
	}
	return &PhasePortrait2D{XIndex: xi, YIndex: yi, X: xs, Y: ys}, nil
}

// PhasePortraitToASCII renders the portrait on a width×height character grid
// with axes drawn where they cross the visible area.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.X) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := floats.Min(portrait.X), floats.Max(portrait.X)
	minY, maxY := floats.Min(portrait.Y), floats.Max(portrait.Y)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i := range portrait.X {
		col := int((portrait.X[i] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((portrait.Y[i]-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
