package geometry

import (
	"encoding/json"
	"fmt"
)

// shapeJSON is the persisted encoding of a Shape. Kind discriminates the
// variant so decoding never has to guess from field presence.
type shapeJSON struct {
	Kind   string    `json:"kind"`
	Points []Point   `json:"points,omitempty"`
	Outer  []Point   `json:"outer,omitempty"`
	Holes  [][]Point `json:"holes,omitempty"`
}

const (
	kindRing    = "ring"
	kindPolygon = "polygon"
	kindLine    = "line"
)

// EncodeShape returns the canonical JSON encoding of s. A nil shape encodes
// as JSON null (box-only annotation).
func EncodeShape(s Shape) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	var enc shapeJSON
	switch v := s.(type) {
	case Ring:
		enc = shapeJSON{Kind: kindRing, Points: v}
	case Polygon:
		enc = shapeJSON{Kind: kindPolygon, Outer: v.Outer}
		for _, h := range v.Holes {
			enc.Holes = append(enc.Holes, h)
		}
	case Line:
		enc = shapeJSON{Kind: kindLine, Points: v}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownShape, s)
	}
	return json.Marshal(enc)
}

// DecodeShape inverts EncodeShape, validating ring arity on the way in.
func DecodeShape(data []byte) (Shape, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var enc shapeJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("failed to decode shape: %w", err)
	}

	switch enc.Kind {
	case kindRing:
		return NewRing(enc.Points)
	case kindPolygon:
		outer, err := NewRing(enc.Outer)
		if err != nil {
			return nil, err
		}
		holes := make([]Ring, 0, len(enc.Holes))
		for _, h := range enc.Holes {
			hole, err := NewRing(h)
			if err != nil {
				return nil, err
			}
			holes = append(holes, hole)
		}
		return NewPolygon(outer, holes...)
	case kindLine:
		return NewLine(enc.Points)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, enc.Kind)
	}
}
