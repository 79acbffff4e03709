package models

const bytesPerSample = 4

// DepthFrame is one sensor sample: a dense per-pixel depth map plus its
// dimensions. The capture collaborator owns the buffer until it is handed to
// the reducer; nothing in this module mutates it.
type DepthFrame struct {
	Width          uint32
	Height         uint32
	RowStrideBytes uint32
	Samples        []float32
}

// HasSamples reports whether the frame carries enough pixel data for its
// declared dimensions. Frames from the sensor occasionally arrive with no
// buffer attached; those are skipped upstream, never processed.
func (f DepthFrame) HasSamples() bool {
	if f.Samples == nil || f.Width == 0 || f.Height == 0 {
		return false
	}
	if f.RowStrideBytes%bytesPerSample != 0 {
		return false
	}
	stride := f.RowStrideBytes / bytesPerSample
	if stride < f.Width {
		return false
	}
	return uint32(len(f.Samples)) >= (f.Height-1)*stride+f.Width
}

// SampleAt returns the depth sample at pixel (x, y). Callers are expected to
// have checked HasSamples and bounds; out-of-range access panics like any
// slice access would.
func (f DepthFrame) SampleAt(x, y uint32) float32 {
	stride := f.RowStrideBytes / bytesPerSample
	return f.Samples[y*stride+x]
}

// GridSummary is a depth frame reduced to a small grid of averaged
// distances, row-major. Rows*Cols == len(Values) always holds for summaries
// produced by the reducer.
type GridSummary struct {
	Rows   uint32
	Cols   uint32
	Values []float32
}

// At returns the averaged value for cell (r, c).
func (g GridSummary) At(r, c uint32) float32 {
	return g.Values[r*g.Cols+c]
}

// WritableCapability describes the write channel negotiated with the
// peripheral. Discovered once per connection and invalidated on disconnect.
type WritableCapability struct {
	MaxPayloadBytes int
	AcklessWrite    bool
}
