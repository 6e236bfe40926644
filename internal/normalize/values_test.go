package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDotPath(t *testing.T) {
	rec := Record{
		"position": map[string]interface{}{"lon": 1.44, "lat": 43.6},
		"name":     "Capitole",
		"empty":    nil,
	}

	v, ok := lookup(rec, "position.lon")
	require.True(t, ok)
	assert.Equal(t, 1.44, v)

	_, ok = lookup(rec, "position.alt")
	assert.False(t, ok)

	_, ok = lookup(rec, "name.nested")
	assert.False(t, ok)

	// Null values count as absent.
	_, ok = lookup(rec, "empty")
	assert.False(t, ok)

	_, ok = lookup(rec, "")
	assert.False(t, ok)
}

func TestAsStringCoercions(t *testing.T) {
	s, err := asString("42")
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	// Station codes arrive as JSON numbers from some feeds.
	s, err = asString(float64(42))
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = asString(true)
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	_, err = asString([]interface{}{})
	require.Error(t, err)
}

func TestAsIntRejectsFractions(t *testing.T) {
	n, err := asInt(float64(30))
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	n, err = asInt("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = asInt(2.5)
	require.Error(t, err)
}

func TestAsTimeLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-11-21T14:56:03+01:00",
		"2024-01-01T00:00:00",
		"2024-01-01 00:00:00",
	} {
		_, err := asTime(s)
		require.NoError(t, err, s)
	}

	_, err := asTime("21/11/2024")
	require.Error(t, err)
}
