package depth

// Band is a coarse distance category derived from an averaged depth value.
type Band int

const (
	Low Band = iota
	Medium
	High
)

func (b Band) String() string {
	return []string{"Low", "Medium", "High"}[b]
}

const (
	lowUpperBound    = 0.33
	mediumUpperBound = 0.66
)

// Categorize maps an averaged depth value onto a band. Thresholds are
// half-open: [0, 0.33) is Low, [0.33, 0.66) is Medium, everything else is
// High. Negative values therefore land in High via the default branch; the
// receiving firmware depends on that mapping, so it is the canonical
// behavior, counter-intuitive as it reads.
func Categorize(v float32) Band {
	switch {
	case v >= 0 && v < lowUpperBound:
		return Low
	case v >= lowUpperBound && v < mediumUpperBound:
		return Medium
	default:
		return High
	}
}
