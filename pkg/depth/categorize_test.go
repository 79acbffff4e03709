package depth

import (
	"testing"

	"gotest.tools/assert"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		value    float32
		expected Band
	}{
		{0.0, Low},
		{0.329999, Low},
		{0.33, Medium},
		{0.659999, Medium},
		{0.66, High},
		{1.5, High},
		{-1.0, High}, // negative values fall through to the default branch
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, Categorize(c.value))
	}
}

func TestBandString(t *testing.T) {
	assert.Equal(t, "Low", Low.String())
	assert.Equal(t, "Medium", Medium.String())
	assert.Equal(t, "High", High.String())
}
