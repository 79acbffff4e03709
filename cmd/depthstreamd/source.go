package main

import (
	"math"

	"github.com/IMMZEK/tamuhackx/pkg/models"
)

// syntheticSource fabricates depth frames so the pipeline can run without a
// sensor attached: a radial depth field that drifts over time, roughly what
// a person moving in front of the camera produces. The real capture
// collaborator delivers frames through the same OnFrame callback.
type syntheticSource struct {
	width  uint32
	height uint32
	phase  float64
	buf    []float32
}

func newSyntheticSource(width, height uint32) *syntheticSource {
	return &syntheticSource{
		width:  width,
		height: height,
		buf:    make([]float32, width*height),
	}
}

func (s *syntheticSource) Next() models.DepthFrame {
	s.phase += 0.05
	cx := float64(s.width)/2 + float64(s.width)/4*math.Sin(s.phase)
	cy := float64(s.height) / 2
	maxDist := math.Hypot(float64(s.width), float64(s.height)) / 2
	for y := uint32(0); y < s.height; y++ {
		for x := uint32(0); x < s.width; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			s.buf[y*s.width+x] = float32(d)
		}
	}
	return models.DepthFrame{
		Width:          s.width,
		Height:         s.height,
		RowStrideBytes: s.width * 4,
		Samples:        s.buf,
	}
}
