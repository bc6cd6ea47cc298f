package core

import (
	"testing"

	"pkt.systems/sketchroom/schema"
)

func sampleShapes() map[string]schema.Shape {
	return map[string]schema.Shape{
		"rect":    &schema.Rect{X: 10, Y: 20, Width: 100, Height: 50},
		"diamond": &schema.Diamond{X: -30, Y: 0, Width: 60, Height: 40},
		"ellipse": &schema.Ellipse{CenterX: 0, CenterY: 0, RadiusX: 40, RadiusY: 20},
		"line":    &schema.Line{X1: 0, Y1: 0, X2: 100, Y2: 100},
		"arrow":   &schema.Arrow{X1: 50, Y1: 0, X2: 0, Y2: 50},
		"pencil":  &schema.Pencil{Points: []schema.Point{{X: 1, Y: 2}, {X: 10, Y: 12}, {X: 20, Y: 5}}},
		"text":    &schema.Text{X: 5, Y: 5, Width: 80, Height: 20, Content: "hi", FontSize: 16},
	}
}

func interiorPoint(s schema.Shape) schema.Point {
	switch v := s.(type) {
	case *schema.Ellipse:
		return schema.Point{X: v.CenterX, Y: v.CenterY}
	case *schema.Line:
		return schema.Point{X: (v.X1 + v.X2) / 2, Y: (v.Y1 + v.Y2) / 2}
	case *schema.Arrow:
		return schema.Point{X: (v.X1 + v.X2) / 2, Y: (v.Y1 + v.Y2) / 2}
	case *schema.Pencil:
		return v.Points[1]
	default:
		box, _ := BoundingBox(s)
		return schema.Point{X: (box.MinX + box.MaxX) / 2, Y: (box.MinY + box.MaxY) / 2}
	}
}

func TestHitTestReflexivity(t *testing.T) {
	for name, shape := range sampleShapes() {
		t.Run(name, func(t *testing.T) {
			if !hitShape(shape, interiorPoint(shape), schema.DefaultHitThreshold) {
				t.Fatal("interior point missed its own shape")
			}
		})
	}
}

func TestHitTestMiss(t *testing.T) {
	far := schema.Point{X: 10_000, Y: 10_000}
	for name, shape := range sampleShapes() {
		t.Run(name, func(t *testing.T) {
			if hitShape(shape, far, schema.DefaultHitThreshold) {
				t.Fatal("far point hit the shape")
			}
		})
	}
}

func TestBoundingBoxTranslateDuality(t *testing.T) {
	const dx, dy = 17.5, -42.0
	for name, shape := range sampleShapes() {
		t.Run(name, func(t *testing.T) {
			before, ok := BoundingBox(shape)
			if !ok {
				t.Fatal("no bounding box")
			}
			Translate(shape, dx, dy)
			after, ok := BoundingBox(shape)
			if !ok {
				t.Fatal("no bounding box after translate")
			}
			if want := before.Translated(dx, dy); after != want {
				t.Fatalf("box = %+v, want %+v", after, want)
			}
		})
	}
}

func TestBoundingBoxEmptyPencil(t *testing.T) {
	if _, ok := BoundingBox(&schema.Pencil{}); ok {
		t.Fatal("empty pencil must have no bounding box")
	}
}

func TestResizeFloor(t *testing.T) {
	handles := []Handle{HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW}
	for _, handle := range handles {
		t.Run(string(handle), func(t *testing.T) {
			rect := &schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}
			Resize(rect, handle, -10_000, -10_000, schema.DefaultMinShapeSize)
			Resize(rect, handle, 10_000, 10_000, schema.DefaultMinShapeSize)
			Resize(rect, handle, -20_000, -20_000, schema.DefaultMinShapeSize)
			if rect.Width < schema.DefaultMinShapeSize || rect.Height < schema.DefaultMinShapeSize {
				t.Fatalf("size collapsed: %gx%g", rect.Width, rect.Height)
			}
		})
	}
}

func TestResizeKeepsOppositeCornerFixed(t *testing.T) {
	rect := &schema.Rect{X: 10, Y: 10, Width: 100, Height: 100}
	Resize(rect, HandleSE, 30, -20, schema.DefaultMinShapeSize)
	if rect.X != 10 || rect.Y != 10 {
		t.Fatalf("nw corner moved: (%g, %g)", rect.X, rect.Y)
	}
	if rect.Width != 130 || rect.Height != 80 {
		t.Fatalf("extent = %gx%g, want 130x80", rect.Width, rect.Height)
	}

	rect = &schema.Rect{X: 10, Y: 10, Width: 100, Height: 100}
	Resize(rect, HandleNW, 25, 15, schema.DefaultMinShapeSize)
	if se := rect.X + rect.Width; se != 110 {
		t.Fatalf("se x moved: %g", se)
	}
	if se := rect.Y + rect.Height; se != 110 {
		t.Fatalf("se y moved: %g", se)
	}
}

func TestResizeNonBoxIsNoop(t *testing.T) {
	line := &schema.Line{X1: 0, Y1: 0, X2: 50, Y2: 50}
	Resize(line, HandleSE, 10, 10, schema.DefaultMinShapeSize)
	if line.X2 != 50 || line.Y2 != 50 {
		t.Fatalf("line mutated by resize: %+v", line)
	}
}

func TestSegmentDistance(t *testing.T) {
	a := schema.Point{X: 0, Y: 0}
	b := schema.Point{X: 10, Y: 0}
	cases := []struct {
		name string
		p    schema.Point
		want float64
	}{
		{"on segment", schema.Point{X: 5, Y: 0}, 0},
		{"above midpoint", schema.Point{X: 5, Y: 3}, 3},
		{"beyond end", schema.Point{X: 14, Y: 3}, 5},
		{"before start", schema.Point{X: -3, Y: 4}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := segmentDistance(tc.p, a, b); got != tc.want {
				t.Fatalf("distance = %g, want %g", got, tc.want)
			}
		})
	}
}
