package duration

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
	}{
		{500, 500 * time.Millisecond},
		{int64(10), 10 * time.Millisecond},
		{2.5, 2500 * time.Microsecond},
		{250 * time.Millisecond, 250 * time.Millisecond},
		{"500", 500 * time.Millisecond},
		{"500 ms", 500 * time.Millisecond},
		{"500ms", 500 * time.Millisecond},
		{"30 seconds", 30 * time.Second},
		{"1 second", time.Second},
		{"2 mins", 2 * time.Minute},
		{"1.5 hours", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"1 day", 24 * time.Hour},
		{"  10 Seconds ", 10 * time.Second},
		{"Infinity", Infinite},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []any{"", "soon", "10 parsecs", "-5", "NaN", nil, struct{}{}, -5, int64(-1), float64(-1), math.NaN()} {
		_, err := Parse(in)
		assert.Error(t, err, "input %v", in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "infinity", Format(Infinite))
	assert.Equal(t, "1.5s", Format(1500*time.Millisecond))
}

func TestDurationYAML(t *testing.T) {
	var doc struct {
		Min     Duration  `yaml:"min"`
		Max     *Duration `yaml:"max"`
		Timeout Duration  `yaml:"timeout"`
	}
	err := yaml.Unmarshal([]byte("min: 500 ms\nmax: infinity\ntimeout: 100\n"), &doc)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, doc.Min.Std())
	require.NotNil(t, doc.Max)
	assert.Equal(t, Infinite, doc.Max.Std())
	assert.Equal(t, 100*time.Millisecond, doc.Timeout.Std())

	out, err := yaml.Marshal(map[string]Duration{"min": doc.Min})
	require.NoError(t, err)
	assert.Equal(t, "min: 500ms\n", string(out))

	err = yaml.Unmarshal([]byte("min: whenever\n"), &doc)
	assert.Error(t, err)
}
