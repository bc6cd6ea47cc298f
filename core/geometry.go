package core

import (
	"math"

	"pkt.systems/sketchroom/schema"
)

// Box is an axis-aligned bounding box in canvas coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Translated returns the box shifted by (dx, dy).
func (b Box) Translated(dx, dy float64) Box {
	return Box{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

// Handle names one of the eight resize grips on a box shape's selection frame.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// BoundingBox computes the extent of a shape. The ok result is false only
// for a pencil with no points, which cannot occur through the create path.
func BoundingBox(s schema.Shape) (Box, bool) {
	switch v := s.(type) {
	case *schema.Rect:
		return boxFromOrigin(v.X, v.Y, v.Width, v.Height), true
	case *schema.Diamond:
		return boxFromOrigin(v.X, v.Y, v.Width, v.Height), true
	case *schema.Text:
		return boxFromOrigin(v.X, v.Y, v.Width, v.Height), true
	case *schema.Ellipse:
		rx, ry := math.Abs(v.RadiusX), math.Abs(v.RadiusY)
		return Box{MinX: v.CenterX - rx, MinY: v.CenterY - ry, MaxX: v.CenterX + rx, MaxY: v.CenterY + ry}, true
	case *schema.Line:
		return boxFromSegment(v.X1, v.Y1, v.X2, v.Y2), true
	case *schema.Arrow:
		return boxFromSegment(v.X1, v.Y1, v.X2, v.Y2), true
	case *schema.Pencil:
		if len(v.Points) == 0 {
			return Box{}, false
		}
		box := Box{MinX: v.Points[0].X, MinY: v.Points[0].Y, MaxX: v.Points[0].X, MaxY: v.Points[0].Y}
		for _, p := range v.Points[1:] {
			box.MinX = math.Min(box.MinX, p.X)
			box.MinY = math.Min(box.MinY, p.Y)
			box.MaxX = math.Max(box.MaxX, p.X)
			box.MaxY = math.Max(box.MaxY, p.Y)
		}
		return box, true
	default:
		return Box{}, false
	}
}

// Translate shifts every positional field of a shape by a uniform delta.
func Translate(s schema.Shape, dx, dy float64) {
	switch v := s.(type) {
	case *schema.Rect:
		v.X += dx
		v.Y += dy
	case *schema.Diamond:
		v.X += dx
		v.Y += dy
	case *schema.Text:
		v.X += dx
		v.Y += dy
	case *schema.Ellipse:
		v.CenterX += dx
		v.CenterY += dy
	case *schema.Line:
		v.X1 += dx
		v.Y1 += dy
		v.X2 += dx
		v.Y2 += dy
	case *schema.Arrow:
		v.X1 += dx
		v.Y1 += dy
		v.X2 += dx
		v.Y2 += dy
	case *schema.Pencil:
		for i := range v.Points {
			v.Points[i].X += dx
			v.Points[i].Y += dy
		}
	}
}

// Resize drags a handle of a box shape by (dx, dy). The edge under the
// handle moves; the opposite edge stays fixed; width and height never drop
// below minSize. Non-box kinds are a deliberate no-op: tool gating prevents
// them from reaching here, and a stray call must not crash.
func Resize(s schema.Shape, handle Handle, dx, dy, minSize float64) {
	var x, y, w, h *float64
	switch v := s.(type) {
	case *schema.Rect:
		x, y, w, h = &v.X, &v.Y, &v.Width, &v.Height
	case *schema.Diamond:
		x, y, w, h = &v.X, &v.Y, &v.Width, &v.Height
	case *schema.Text:
		x, y, w, h = &v.X, &v.Y, &v.Width, &v.Height
	default:
		return
	}

	left, top := *x, *y
	right, bottom := left+*w, top+*h

	switch handle {
	case HandleW, HandleNW, HandleSW:
		left = math.Min(left+dx, right-minSize)
	case HandleE, HandleNE, HandleSE:
		right = math.Max(right+dx, left+minSize)
	}
	switch handle {
	case HandleN, HandleNE, HandleNW:
		top = math.Min(top+dy, bottom-minSize)
	case HandleS, HandleSE, HandleSW:
		bottom = math.Max(bottom+dy, top+minSize)
	}

	*x, *y = left, top
	*w, *h = right-left, bottom-top
}

// hitShape reports whether the point falls within the shape's hit geometry,
// padded by the threshold.
func hitShape(s schema.Shape, p schema.Point, threshold float64) bool {
	switch v := s.(type) {
	case *schema.Rect, *schema.Diamond, *schema.Text:
		box, ok := BoundingBox(s)
		if !ok {
			return false
		}
		return p.X >= box.MinX-threshold && p.X <= box.MaxX+threshold &&
			p.Y >= box.MinY-threshold && p.Y <= box.MaxY+threshold
	case *schema.Ellipse:
		rx := math.Abs(v.RadiusX) + threshold
		ry := math.Abs(v.RadiusY) + threshold
		if rx == 0 || ry == 0 {
			return false
		}
		dx := (p.X - v.CenterX) / rx
		dy := (p.Y - v.CenterY) / ry
		return dx*dx+dy*dy <= 1
	case *schema.Line:
		return segmentDistance(p, schema.Point{X: v.X1, Y: v.Y1}, schema.Point{X: v.X2, Y: v.Y2}) <= threshold
	case *schema.Arrow:
		return segmentDistance(p, schema.Point{X: v.X1, Y: v.Y1}, schema.Point{X: v.X2, Y: v.Y2}) <= threshold
	case *schema.Pencil:
		for _, vertex := range v.Points {
			if math.Hypot(p.X-vertex.X, p.Y-vertex.Y) <= threshold {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// segmentDistance is the distance from p to the closest point on segment ab.
func segmentDistance(p, a, b schema.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func boxFromOrigin(x, y, w, h float64) Box {
	return Box{
		MinX: math.Min(x, x+w),
		MinY: math.Min(y, y+h),
		MaxX: math.Max(x, x+w),
		MaxY: math.Max(y, y+h),
	}
}

func boxFromSegment(x1, y1, x2, y2 float64) Box {
	return Box{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}
