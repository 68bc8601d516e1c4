package bodyinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractBodyShapeRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"banana", "", "  ", "undefined", "hour glass"} {
		_, ok := ExtractBodyShape(map[string]any{"bodyShape": raw})
		require.False(t, ok, "value %q", raw)
	}
}

func TestExtractBodyShapeNormalizesTriangleVariants(t *testing.T) {
	for _, raw := range []string{"invertedTriangle", "Inverted Triangle", "triangle", " INVERTED ", "inverted-triangle", "Triangle (upside down)"} {
		shape, ok := ExtractBodyShape(map[string]any{"bodyShape": raw})
		require.True(t, ok, "value %q", raw)
		require.Equal(t, InvertedTriangle, shape)
	}
}

func TestExtractBodyShapeAliases(t *testing.T) {
	cases := map[string]map[string]any{
		"body_shape": {"body_shape": "Pear"},
		"shape":      {"shape": " pear "},
		"bodyType":   {"bodyType": "PEAR"},
		"body_type":  {"body_type": "pear"},
	}
	for name, reply := range cases {
		shape, ok := ExtractBodyShape(reply)
		require.True(t, ok, name)
		require.Equal(t, Pear, shape, name)
	}
}

func TestExtractBodyShapePrefersFirstAlias(t *testing.T) {
	shape, ok := ExtractBodyShape(map[string]any{"bodyShape": "apple", "shape": "pear"})
	require.True(t, ok)
	require.Equal(t, Apple, shape)

	shape, ok = ExtractBodyShape(map[string]any{"bodyShape": "", "shape": "pear"})
	require.True(t, ok)
	require.Equal(t, Pear, shape)
}

func TestExtractBodyShapeNonStringIsUnparseable(t *testing.T) {
	_, ok := ExtractBodyShape(map[string]any{"bodyShape": map[string]any{"type": "pear"}, "shape": "pear"})
	require.False(t, ok)
}

func TestExtractUndertone(t *testing.T) {
	tone, ok := ExtractUndertone(map[string]any{"skinTone": " Warm"})
	require.True(t, ok)
	require.Equal(t, Warm, tone)

	tone, ok = ExtractUndertone(map[string]any{"undertone": "cool", "skinTone": "warm"})
	require.True(t, ok)
	require.Equal(t, Cool, tone)

	_, ok = ExtractUndertone(map[string]any{"skinTone": "xyz"})
	require.False(t, ok)

	_, ok = ExtractUndertone(map[string]any{})
	require.False(t, ok)
}

func TestParseBodyShapeIsStrict(t *testing.T) {
	shape, ok := ParseBodyShape("Hourglass")
	require.True(t, ok)
	require.Equal(t, Hourglass, shape)

	shape, ok = ParseBodyShape(" Inverted Triangle ")
	require.True(t, ok)
	require.Equal(t, InvertedTriangle, shape)

	_, ok = ParseBodyShape("invertedTriangle")
	require.False(t, ok)
}

func TestParseUndertone(t *testing.T) {
	tone, ok := ParseUndertone("NEUTRAL")
	require.True(t, ok)
	require.Equal(t, Neutral, tone)

	_, ok = ParseUndertone("olive")
	require.False(t, ok)
}
