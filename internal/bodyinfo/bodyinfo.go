package bodyinfo

import "strings"

// BodyShape is one of the supported body shape classifications.
type BodyShape string

// Undertone is one of the supported skin undertone buckets.
type Undertone string

const (
	Rectangle        BodyShape = "rectangle"
	Hourglass        BodyShape = "hourglass"
	Pear             BodyShape = "pear"
	Apple            BodyShape = "apple"
	InvertedTriangle BodyShape = "inverted triangle"
)

const (
	Cool    Undertone = "cool"
	Warm    Undertone = "warm"
	Neutral Undertone = "neutral"
)

// BodyShapes lists the persisted body shape vocabulary.
var BodyShapes = []BodyShape{Rectangle, Hourglass, Pear, Apple, InvertedTriangle}

// Undertones lists the persisted undertone vocabulary.
var Undertones = []Undertone{Cool, Warm, Neutral}

// Keys the classifier reply may carry each field under, in lookup order.
var (
	bodyShapeKeys = []string{"bodyShape", "body_shape", "shape", "bodyType", "body_type"}
	undertoneKeys = []string{"undertone", "skinUndertone", "skin_undertone", "skinTone", "skin_tone", "tone"}
)

// Valid reports whether s belongs to the body shape vocabulary.
func (s BodyShape) Valid() bool {
	for _, v := range BodyShapes {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether u belongs to the undertone vocabulary.
func (u Undertone) Valid() bool {
	for _, v := range Undertones {
		if u == v {
			return true
		}
	}
	return false
}

// ParseBodyShape validates a caller supplied body shape. No synonyms are applied.
func ParseBodyShape(raw string) (BodyShape, bool) {
	shape := BodyShape(strings.ToLower(strings.TrimSpace(raw)))
	if !shape.Valid() {
		return "", false
	}
	return shape, true
}

// ParseUndertone validates a caller supplied undertone.
func ParseUndertone(raw string) (Undertone, bool) {
	tone := Undertone(strings.ToLower(strings.TrimSpace(raw)))
	if !tone.Valid() {
		return "", false
	}
	return tone, true
}

// NormalizeBodyShape is ParseBodyShape plus the synonym rules used for model output.
func NormalizeBodyShape(raw string) (BodyShape, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(value, "inverted") || strings.Contains(value, "triangle") {
		return InvertedTriangle, true
	}
	return ParseBodyShape(value)
}

// ExtractBodyShape finds and normalizes the body shape in a classifier reply.
// A missing, non-string or out-of-vocabulary value yields false.
func ExtractBodyShape(reply map[string]any) (BodyShape, bool) {
	raw, ok := lookup(reply, bodyShapeKeys)
	if !ok {
		return "", false
	}
	return NormalizeBodyShape(raw)
}

// ExtractUndertone finds and normalizes the undertone in a classifier reply.
func ExtractUndertone(reply map[string]any) (Undertone, bool) {
	raw, ok := lookup(reply, undertoneKeys)
	if !ok {
		return "", false
	}
	return ParseUndertone(raw)
}

// lookup returns the first alias holding a non-empty value. A non-string
// value at that alias makes the whole field unparseable.
func lookup(reply map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		value, present := reply[key]
		if !present || isEmpty(value) {
			continue
		}
		s, ok := value.(string)
		return s, ok
	}
	return "", false
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	}
	return false
}
