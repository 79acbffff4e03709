// Package depth reduces dense per-pixel depth maps into small grids of
// averaged distances suitable for transmission over a constrained link.
package depth

import (
	"fmt"

	"github.com/IMMZEK/tamuhackx/pkg/models"
	"github.com/pkg/errors"
)

// ErrMissingSamples indicates a frame arrived without a usable pixel buffer.
// Such frames are skipped by callers; no payload is produced for them.
var ErrMissingSamples = errors.New("depth frame has no usable sample buffer")

// DegenerateGridError indicates the requested grid cannot be cut from the
// frame: at least one cell would cover zero pixels.
type DegenerateGridError struct {
	Width, Height uint32
	Rows, Cols    uint32
}

func (e *DegenerateGridError) Error() string {
	return fmt.Sprintf("degenerate grid: %dx%d frame cannot be reduced to %dx%d cells", e.Width, e.Height, e.Rows, e.Cols)
}

// Reduce partitions the frame into rows x cols rectangular cells and averages
// the samples inside each. Cell height and width are floor(height/rows) and
// floor(width/cols); when the frame does not divide evenly, the trailing
// remainder rows and columns belong to no cell and are excluded from every
// average. Keeping cells uniform this way makes the per-frame cost fixed.
//
// Sensor values are averaged as-is: NaN and negative samples propagate into
// the cell mean unfiltered.
func Reduce(frame models.DepthFrame, rows, cols uint32) (models.GridSummary, error) {
	if rows == 0 || cols == 0 {
		return models.GridSummary{}, &DegenerateGridError{frame.Width, frame.Height, rows, cols}
	}
	if !frame.HasSamples() {
		return models.GridSummary{}, ErrMissingSamples
	}
	cellH := frame.Height / rows
	cellW := frame.Width / cols
	if cellH == 0 || cellW == 0 {
		return models.GridSummary{}, &DegenerateGridError{frame.Width, frame.Height, rows, cols}
	}
	values := make([]float32, 0, rows*cols)
	samplesPerCell := float64(cellH) * float64(cellW)
	for r := uint32(0); r < rows; r++ {
		for c := uint32(0); c < cols; c++ {
			var sum float64
			for y := r * cellH; y < (r+1)*cellH; y++ {
				for x := c * cellW; x < (c+1)*cellW; x++ {
					sum += float64(frame.SampleAt(x, y))
				}
			}
			values = append(values, float32(sum/samplesPerCell))
		}
	}
	return models.GridSummary{Rows: rows, Cols: cols, Values: values}, nil
}
