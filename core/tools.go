package core

import (
	"context"
	"math"

	"pkt.systems/sketchroom/schema"
)

// Tool selects how pointer gestures are interpreted.
type Tool string

const (
	ToolSelect  Tool = "select"
	ToolRect    Tool = "rect"
	ToolDiamond Tool = "diamond"
	ToolEllipse Tool = "ellipse"
	ToolLine    Tool = "line"
	ToolArrow   Tool = "arrow"
	ToolPencil  Tool = "pencil"
	ToolEraser  Tool = "eraser"
	ToolText    Tool = "text"
)

type gestureState int

const (
	gestureIdle gestureState = iota
	gestureDragging
	gestureResizing
	gestureDrawing
	gestureErasing
	gestureWriting
)

// gesture is the transient state of the active pointer gesture. The state
// field makes illegal combinations unrepresentable: resizing always has a
// target and a handle, drawing always has an anchor.
type gesture struct {
	state      gestureState
	anchor     schema.Point
	last       schema.Point
	points     []schema.Point
	handle     Handle
	target     *Record
	moved      bool
	textTarget *Record
}

// SetTool switches the active tool, cancelling any gesture in progress.
// Selection only survives while the selection tool is active.
func (s *Session) SetTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gesture = gesture{}
	if tool != ToolSelect {
		s.store.ClearSelection()
	}
	s.tool = tool
	s.repaintLocked()
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetPan records the canvas pan offset applied to incoming pointer
// coordinates.
func (s *Session) SetPan(offset schema.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pan = offset
}

func (s *Session) canvasPoint(p schema.Point) schema.Point {
	return schema.Point{X: p.X - s.pan.X, Y: p.Y - s.pan.Y}
}

// PointerDown begins a gesture at the given screen point.
func (s *Session) PointerDown(p schema.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.canvasPoint(p)
	switch s.tool {
	case ToolSelect:
		s.selectDownLocked(cp)
	case ToolRect, ToolDiamond, ToolEllipse, ToolLine, ToolArrow:
		s.gesture = gesture{state: gestureDrawing, anchor: cp, last: cp}
	case ToolPencil:
		s.gesture = gesture{state: gestureDrawing, points: []schema.Point{cp}}
	case ToolEraser:
		s.gesture = gesture{state: gestureErasing}
	case ToolText:
		g := gesture{state: gestureWriting, anchor: cp}
		if rec, ok := s.store.HitTest(cp); ok {
			if _, isText := rec.Shape.(*schema.Text); isText {
				g.textTarget = rec
			}
		}
		s.gesture = g
	}
}

// selectDownLocked resolves a selection-tool pointer-down: resize handles of
// the current selection first, then its body, then the whole store.
func (s *Session) selectDownLocked(cp schema.Point) {
	if rec, ok := s.store.Selected(); ok {
		if handle, ok := s.handleAtLocked(rec, cp); ok {
			s.gesture = gesture{state: gestureResizing, target: rec, handle: handle, last: cp}
			return
		}
		if hitShape(rec.Shape, cp, s.cfg.HitThreshold) {
			s.gesture = gesture{state: gestureDragging, target: rec, last: cp}
			return
		}
	}
	if rec, ok := s.store.HitTest(cp); ok {
		s.store.Select(rec)
		s.gesture = gesture{state: gestureDragging, target: rec, last: cp}
	} else {
		s.store.ClearSelection()
		s.gesture = gesture{}
	}
	s.repaintLocked()
}

// PointerMove advances the active gesture. The eraser deletes on every
// move sample rather than waiting for pointer-up.
func (s *Session) PointerMove(ctx context.Context, p schema.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.canvasPoint(p)
	switch s.gesture.state {
	case gestureDragging:
		Translate(s.gesture.target.Shape, cp.X-s.gesture.last.X, cp.Y-s.gesture.last.Y)
		s.gesture.last = cp
		s.gesture.moved = true
		s.repaintLocked()
	case gestureResizing:
		Resize(s.gesture.target.Shape, s.gesture.handle, cp.X-s.gesture.last.X, cp.Y-s.gesture.last.Y, s.cfg.MinShapeSize)
		s.gesture.last = cp
		s.gesture.moved = true
		s.repaintLocked()
	case gestureDrawing:
		if s.tool == ToolPencil {
			s.gesture.points = append(s.gesture.points, cp)
		} else {
			s.gesture.last = cp
		}
		s.repaintLocked()
	case gestureErasing:
		s.eraseAtLocked(ctx, cp)
	}
}

// PointerUp completes the active gesture, emitting the resulting mutation.
func (s *Session) PointerUp(ctx context.Context, p schema.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.canvasPoint(p)
	switch s.gesture.state {
	case gestureDragging, gestureResizing:
		if s.gesture.moved {
			s.commitUpdateLocked(ctx, s.gesture.target)
		}
		s.gesture = gesture{}
	case gestureDrawing:
		if s.tool == ToolPencil {
			// Fewer than two samples is a stray click, not a path.
			if len(s.gesture.points) >= 2 {
				if _, err := s.createShapeLocked(ctx, &schema.Pencil{Points: s.gesture.points}); err != nil {
					s.logger.Warn("session pencil create failed", "err", err)
				}
			}
		} else if shape := buildShape(s.tool, s.gesture.anchor, cp); shape != nil {
			if _, err := s.createShapeLocked(ctx, shape); err != nil {
				s.logger.Warn("session shape create failed", "err", err)
			}
		}
		s.gesture = gesture{}
		s.repaintLocked()
	case gestureErasing:
		s.gesture = gesture{}
	}
}

// PreviewShape returns the live preview of an in-progress drawing gesture.
// The preview never enters the store.
func (s *Session) PreviewShape() (schema.Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture.state != gestureDrawing {
		return nil, false
	}
	if s.tool == ToolPencil {
		if len(s.gesture.points) < 2 {
			return nil, false
		}
		points := make([]schema.Point, len(s.gesture.points))
		copy(points, s.gesture.points)
		return &schema.Pencil{Points: points}, true
	}
	shape := buildShape(s.tool, s.gesture.anchor, s.gesture.last)
	return shape, shape != nil
}

// TextEntry reports the anchor of an open text-entry surface and the record
// being edited, if the gesture targets an existing text shape.
func (s *Session) TextEntry() (schema.Point, schema.ShapeRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture.state != gestureWriting {
		return schema.Point{}, schema.ShapeRef{}, false
	}
	if s.gesture.textTarget != nil {
		return s.gesture.anchor, s.gesture.textTarget.Ref, true
	}
	return s.gesture.anchor, schema.ShapeRef{}, true
}

// CommitText finishes a text-entry gesture with the measured bounds of the
// rendered content. An empty commit cancels.
func (s *Session) CommitText(ctx context.Context, content string, width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture.state != gestureWriting {
		return
	}
	g := s.gesture
	s.gesture = gesture{}
	if content == "" {
		return
	}
	if g.textTarget != nil {
		if text, ok := g.textTarget.Shape.(*schema.Text); ok {
			text.Content = content
			text.Width = width
			text.Height = height
			s.commitUpdateLocked(ctx, g.textTarget)
			s.repaintLocked()
		}
		return
	}
	shape := &schema.Text{
		X:        g.anchor.X,
		Y:        g.anchor.Y,
		Width:    width,
		Height:   height,
		Content:  content,
		FontSize: s.cfg.DefaultFontSize,
	}
	if _, err := s.createShapeLocked(ctx, shape); err != nil {
		s.logger.Warn("session text create failed", "err", err)
	}
}

// CancelText abandons an open text-entry gesture without mutating anything.
func (s *Session) CancelText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gesture.state == gestureWriting {
		s.gesture = gesture{}
	}
}

func (s *Session) eraseAtLocked(ctx context.Context, cp schema.Point) {
	hits := s.store.HitTestAll(cp)
	for _, rec := range hits {
		s.deleteRecordLocked(ctx, rec)
	}
	if len(hits) > 0 {
		s.repaintLocked()
	}
}

// handleAtLocked maps a point to one of the eight resize grips on the
// selection frame of a box shape. Non-box shapes expose no handles.
func (s *Session) handleAtLocked(rec *Record, cp schema.Point) (Handle, bool) {
	switch rec.Shape.(type) {
	case *schema.Rect, *schema.Diamond, *schema.Text:
	default:
		return "", false
	}
	box, ok := BoundingBox(rec.Shape)
	if !ok {
		return "", false
	}
	midX := (box.MinX + box.MaxX) / 2
	midY := (box.MinY + box.MaxY) / 2
	grips := []struct {
		handle Handle
		at     schema.Point
	}{
		{HandleNW, schema.Point{X: box.MinX, Y: box.MinY}},
		{HandleNE, schema.Point{X: box.MaxX, Y: box.MinY}},
		{HandleSW, schema.Point{X: box.MinX, Y: box.MaxY}},
		{HandleSE, schema.Point{X: box.MaxX, Y: box.MaxY}},
		{HandleN, schema.Point{X: midX, Y: box.MinY}},
		{HandleS, schema.Point{X: midX, Y: box.MaxY}},
		{HandleW, schema.Point{X: box.MinX, Y: midY}},
		{HandleE, schema.Point{X: box.MaxX, Y: midY}},
	}
	for _, grip := range grips {
		if math.Hypot(cp.X-grip.at.X, cp.Y-grip.at.Y) <= s.cfg.HitThreshold {
			return grip.handle, true
		}
	}
	return "", false
}

// buildShape normalizes the anchor/cursor pair of a completed drawing
// gesture into a shape. Box kinds normalize to a minimal bounding box so a
// drag in any direction produces the same shape; lines and arrows keep
// their direction.
func buildShape(tool Tool, anchor, cursor schema.Point) schema.Shape {
	minX := math.Min(anchor.X, cursor.X)
	minY := math.Min(anchor.Y, cursor.Y)
	width := math.Abs(cursor.X - anchor.X)
	height := math.Abs(cursor.Y - anchor.Y)
	switch tool {
	case ToolRect:
		return &schema.Rect{X: minX, Y: minY, Width: width, Height: height}
	case ToolDiamond:
		return &schema.Diamond{X: minX, Y: minY, Width: width, Height: height}
	case ToolEllipse:
		return &schema.Ellipse{CenterX: minX + width/2, CenterY: minY + height/2, RadiusX: width / 2, RadiusY: height / 2}
	case ToolLine:
		return &schema.Line{X1: anchor.X, Y1: anchor.Y, X2: cursor.X, Y2: cursor.Y}
	case ToolArrow:
		return &schema.Arrow{X1: anchor.X, Y1: anchor.Y, X2: cursor.X, Y2: cursor.Y}
	default:
		return nil
	}
}
