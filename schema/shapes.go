package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// ShapeKind discriminates the shape union on the wire.
type ShapeKind string

const (
	KindRect    ShapeKind = "rect"
	KindDiamond ShapeKind = "diamond"
	KindEllipse ShapeKind = "ellipse"
	KindLine    ShapeKind = "line"
	KindArrow   ShapeKind = "arrow"
	KindPencil  ShapeKind = "pencil"
	KindText    ShapeKind = "text"
)

// StrokeStyle selects the stroke dash pattern.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDotted StrokeStyle = "dotted"
	StrokeDashed StrokeStyle = "dashed"
)

// Style is the optional visual style attached to a shape.
type Style struct {
	StrokeColor string      `json:"strokeColor,omitempty"`
	FillColor   string      `json:"fillColor,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
	StrokeStyle StrokeStyle `json:"strokeStyle,omitempty"`
}

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the geometric payload of a log entry. Implementations are the
// pointer types below; every geometric operation switches exhaustively over
// them.
type Shape interface {
	Kind() ShapeKind
	shape()
}

// Rect is an axis-aligned rectangle anchored at its top-left origin.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Style  *Style
}

// Diamond shares the rectangle's origin/extent fields; the rendered rhombus
// touches the midpoint of each bounding-box edge.
type Diamond struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Style  *Style
}

// Ellipse is centered with independent horizontal and vertical radii.
type Ellipse struct {
	CenterX float64
	CenterY float64
	RadiusX float64
	RadiusY float64
	Style   *Style
}

// Line is a straight segment between two endpoints.
type Line struct {
	X1    float64
	Y1    float64
	X2    float64
	Y2    float64
	Style *Style
}

// Arrow is a line with a head at (X2, Y2).
type Arrow struct {
	X1    float64
	Y1    float64
	X2    float64
	Y2    float64
	Style *Style
}

// Pencil is a freehand path. A stored pencil always has at least one point;
// the create gesture discards anything shorter than two samples.
type Pencil struct {
	Points []Point
	Style  *Style
}

// Text is a string anchored at its top-left origin with a measured box.
type Text struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Content  string
	FontSize float64
	Style    *Style
}

func (*Rect) Kind() ShapeKind    { return KindRect }
func (*Diamond) Kind() ShapeKind { return KindDiamond }
func (*Ellipse) Kind() ShapeKind { return KindEllipse }
func (*Line) Kind() ShapeKind    { return KindLine }
func (*Arrow) Kind() ShapeKind   { return KindArrow }
func (*Pencil) Kind() ShapeKind  { return KindPencil }
func (*Text) Kind() ShapeKind    { return KindText }

func (*Rect) shape()    {}
func (*Diamond) shape() {}
func (*Ellipse) shape() {}
func (*Line) shape()    {}
func (*Arrow) shape()   {}
func (*Pencil) shape()  {}
func (*Text) shape()    {}

// shapeEnvelope is the flat wire representation shared by all kinds.
type shapeEnvelope struct {
	Type     ShapeKind `json:"type"`
	X        *float64  `json:"x,omitempty"`
	Y        *float64  `json:"y,omitempty"`
	Width    *float64  `json:"width,omitempty"`
	Height   *float64  `json:"height,omitempty"`
	CenterX  *float64  `json:"centerX,omitempty"`
	CenterY  *float64  `json:"centerY,omitempty"`
	RadiusX  *float64  `json:"radiusX,omitempty"`
	RadiusY  *float64  `json:"radiusY,omitempty"`
	X1       *float64  `json:"x1,omitempty"`
	Y1       *float64  `json:"y1,omitempty"`
	X2       *float64  `json:"x2,omitempty"`
	Y2       *float64  `json:"y2,omitempty"`
	Points   []Point   `json:"points,omitempty"`
	Text     string    `json:"text,omitempty"`
	FontSize *float64  `json:"fontSize,omitempty"`
	Style    *Style    `json:"style,omitempty"`
}

// DecodeShape parses a raw shape payload. It returns an error for unknown
// kinds, missing geometry fields, or non-finite numbers; callers drop such
// entries instead of storing them.
func DecodeShape(raw []byte) (Shape, error) {
	var env shapeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShape, err)
	}
	return env.toShape()
}

// EncodeShape serializes a shape to its wire representation.
func EncodeShape(s Shape) ([]byte, error) {
	env, err := envelopeFrom(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func (env shapeEnvelope) toShape() (Shape, error) {
	switch env.Type {
	case KindRect, KindDiamond:
		if err := requireFinite(env.X, env.Y, env.Width, env.Height); err != nil {
			return nil, err
		}
		if env.Type == KindRect {
			return &Rect{X: *env.X, Y: *env.Y, Width: *env.Width, Height: *env.Height, Style: env.Style}, nil
		}
		return &Diamond{X: *env.X, Y: *env.Y, Width: *env.Width, Height: *env.Height, Style: env.Style}, nil
	case KindEllipse:
		if err := requireFinite(env.CenterX, env.CenterY, env.RadiusX, env.RadiusY); err != nil {
			return nil, err
		}
		return &Ellipse{CenterX: *env.CenterX, CenterY: *env.CenterY, RadiusX: *env.RadiusX, RadiusY: *env.RadiusY, Style: env.Style}, nil
	case KindLine, KindArrow:
		if err := requireFinite(env.X1, env.Y1, env.X2, env.Y2); err != nil {
			return nil, err
		}
		if env.Type == KindLine {
			return &Line{X1: *env.X1, Y1: *env.Y1, X2: *env.X2, Y2: *env.Y2, Style: env.Style}, nil
		}
		return &Arrow{X1: *env.X1, Y1: *env.Y1, X2: *env.X2, Y2: *env.Y2, Style: env.Style}, nil
	case KindPencil:
		if len(env.Points) == 0 {
			return nil, fmt.Errorf("%w: pencil without points", ErrMalformedShape)
		}
		for _, p := range env.Points {
			if !finite(p.X) || !finite(p.Y) {
				return nil, fmt.Errorf("%w: non-finite point", ErrMalformedShape)
			}
		}
		return &Pencil{Points: env.Points, Style: env.Style}, nil
	case KindText:
		if err := requireFinite(env.X, env.Y, env.Width, env.Height); err != nil {
			return nil, err
		}
		fontSize := 16.0
		if env.FontSize != nil {
			if !finite(*env.FontSize) {
				return nil, fmt.Errorf("%w: non-finite font size", ErrMalformedShape)
			}
			fontSize = *env.FontSize
		}
		return &Text{X: *env.X, Y: *env.Y, Width: *env.Width, Height: *env.Height, Content: env.Text, FontSize: fontSize, Style: env.Style}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedShape, env.Type)
	}
}

func envelopeFrom(s Shape) (shapeEnvelope, error) {
	switch v := s.(type) {
	case *Rect:
		return shapeEnvelope{Type: KindRect, X: &v.X, Y: &v.Y, Width: &v.Width, Height: &v.Height, Style: v.Style}, nil
	case *Diamond:
		return shapeEnvelope{Type: KindDiamond, X: &v.X, Y: &v.Y, Width: &v.Width, Height: &v.Height, Style: v.Style}, nil
	case *Ellipse:
		return shapeEnvelope{Type: KindEllipse, CenterX: &v.CenterX, CenterY: &v.CenterY, RadiusX: &v.RadiusX, RadiusY: &v.RadiusY, Style: v.Style}, nil
	case *Line:
		return shapeEnvelope{Type: KindLine, X1: &v.X1, Y1: &v.Y1, X2: &v.X2, Y2: &v.Y2, Style: v.Style}, nil
	case *Arrow:
		return shapeEnvelope{Type: KindArrow, X1: &v.X1, Y1: &v.Y1, X2: &v.X2, Y2: &v.Y2, Style: v.Style}, nil
	case *Pencil:
		return shapeEnvelope{Type: KindPencil, Points: v.Points, Style: v.Style}, nil
	case *Text:
		return shapeEnvelope{Type: KindText, X: &v.X, Y: &v.Y, Width: &v.Width, Height: &v.Height, Text: v.Content, FontSize: &v.FontSize, Style: v.Style}, nil
	default:
		return shapeEnvelope{}, fmt.Errorf("%w: %T", ErrMalformedShape, s)
	}
}

func requireFinite(values ...*float64) error {
	for _, v := range values {
		if v == nil {
			return fmt.Errorf("%w: missing geometry field", ErrMalformedShape)
		}
		if !finite(*v) {
			return fmt.Errorf("%w: non-finite geometry field", ErrMalformedShape)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
