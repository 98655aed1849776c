package orbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAxisSpec(t *testing.T) {
	cases := []struct {
		in      string
		want    AxisSpec
		wantErr bool
	}{
		{"+x", AxisSpec{'+', AxisX}, false},
		{"-x", AxisSpec{'-', AxisX}, false},
		{"+Y", AxisSpec{'+', AxisY}, false},
		{"-z", AxisSpec{'-', AxisZ}, false},
		{"x", AxisSpec{}, true},
		{"+w", AxisSpec{}, true},
		{"", AxisSpec{}, true},
	}
	for _, c := range cases {
		got, err := ParseAxisSpec(c.in)
		if c.wantErr {
			assert.Errorf(t, err, "expected error for %q", c.in)
			continue
		}
		require.NoErrorf(t, err, "unexpected error for %q", c.in)
		assert.Equal(t, c.want, got)
	}
}

func TestValidateOrientationRequiresPermutation(t *testing.T) {
	valid := Orientation{East: AxisSpec{'+', AxisX}, North: AxisSpec{'+', AxisY}, Up: AxisSpec{'+', AxisZ}}
	assert.NoError(t, ValidateOrientation(valid))

	invalid := Orientation{East: AxisSpec{'+', AxisX}, North: AxisSpec{'+', AxisX}, Up: AxisSpec{'+', AxisZ}}
	assert.Error(t, ValidateOrientation(invalid))
}

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "am3x-1.5g", cfg.SensorType)
	assert.Equal(t, uint32(4000), cfg.TimeWindowMS)
	assert.Equal(t, uint32(150), cfg.TimeIntervalMS)
	assert.Equal(t, uint32(40), cfg.TimeDeltaMS)
	assert.Equal(t, Orientation{
		East:  AxisSpec{'+', AxisX},
		North: AxisSpec{'+', AxisY},
		Up:    AxisSpec{'+', AxisZ},
	}, cfg.Orientation)
}
