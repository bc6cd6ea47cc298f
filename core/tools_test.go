package core

import (
	"context"
	"testing"

	"pkt.systems/sketchroom/schema"
)

func drawRect(t *testing.T, session *Session, down, up schema.Point) *schema.Rect {
	t.Helper()
	ctx := context.Background()
	session.SetTool(ToolRect)
	session.PointerDown(down)
	session.PointerMove(ctx, up)
	session.PointerUp(ctx, up)
	records := session.Records()
	rect, ok := records[len(records)-1].Shape.(*schema.Rect)
	if !ok {
		t.Fatalf("drew %T, want *schema.Rect", records[len(records)-1].Shape)
	}
	return rect
}

func TestDrawNormalizesDragDirection(t *testing.T) {
	a := schema.Point{X: 10, Y: 20}
	b := schema.Point{X: 110, Y: 80}
	want := schema.Rect{X: 10, Y: 20, Width: 100, Height: 60}
	cases := []struct {
		name     string
		down, up schema.Point
	}{
		{"se", a, b},
		{"nw", b, a},
		{"ne", schema.Point{X: 10, Y: 80}, schema.Point{X: 110, Y: 20}},
		{"sw", schema.Point{X: 110, Y: 20}, schema.Point{X: 10, Y: 80}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, _, _ := newTestSession(t)
			rect := drawRect(t, session, tc.down, tc.up)
			if *rect != want {
				t.Fatalf("rect = %+v, want %+v", *rect, want)
			}
		})
	}
}

func TestDrawEllipseFromDrag(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolEllipse)
	session.PointerDown(schema.Point{X: 100, Y: 100})
	session.PointerMove(ctx, schema.Point{X: 0, Y: 60})
	session.PointerUp(ctx, schema.Point{X: 0, Y: 60})
	records := session.Records()
	ellipse, ok := records[0].Shape.(*schema.Ellipse)
	if !ok {
		t.Fatalf("drew %T, want *schema.Ellipse", records[0].Shape)
	}
	if ellipse.CenterX != 50 || ellipse.CenterY != 80 || ellipse.RadiusX != 50 || ellipse.RadiusY != 20 {
		t.Fatalf("ellipse = %+v", ellipse)
	}
}

func TestDrawLineKeepsDirection(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolArrow)
	session.PointerDown(schema.Point{X: 100, Y: 100})
	session.PointerUp(ctx, schema.Point{X: 0, Y: 0})
	records := session.Records()
	arrow, ok := records[0].Shape.(*schema.Arrow)
	if !ok {
		t.Fatalf("drew %T, want *schema.Arrow", records[0].Shape)
	}
	if arrow.X1 != 100 || arrow.Y1 != 100 || arrow.X2 != 0 || arrow.Y2 != 0 {
		t.Fatalf("arrow = %+v, head must stay at the cursor", arrow)
	}
}

func TestPencilDiscardsShortGesture(t *testing.T) {
	session, channel, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolPencil)
	session.PointerDown(schema.Point{X: 5, Y: 5})
	session.PointerUp(ctx, schema.Point{X: 5, Y: 5})
	if n := len(session.Records()); n != 0 {
		t.Fatalf("records = %d, want 0 for a single-sample gesture", n)
	}
	if len(channel.sent) != 0 {
		t.Fatalf("sent = %v, want none", channel.sent)
	}
}

func TestPencilAccumulatesSamples(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolPencil)
	session.PointerDown(schema.Point{X: 0, Y: 0})
	session.PointerMove(ctx, schema.Point{X: 1, Y: 1})
	session.PointerMove(ctx, schema.Point{X: 2, Y: 3})
	session.PointerUp(ctx, schema.Point{X: 2, Y: 3})
	records := session.Records()
	pencil, ok := records[0].Shape.(*schema.Pencil)
	if !ok {
		t.Fatalf("drew %T, want *schema.Pencil", records[0].Shape)
	}
	if len(pencil.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(pencil.Points))
	}
}

func TestPreviewNeverEntersStore(t *testing.T) {
	session, channel, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolRect)
	session.PointerDown(schema.Point{X: 0, Y: 0})
	session.PointerMove(ctx, schema.Point{X: 50, Y: 50})
	if _, ok := session.PreviewShape(); !ok {
		t.Fatal("no preview during drawing gesture")
	}
	if n := len(session.Records()); n != 0 {
		t.Fatalf("records = %d, preview leaked into store", n)
	}
	if len(channel.sent) != 0 {
		t.Fatalf("sent = %v, preview leaked onto channel", channel.sent)
	}
}

func TestEraserDeletesImmediatelyOnMove(t *testing.T) {
	session, channel, logClient := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}, "")
	session.HandleInbound(ctx, echoFor(t, 11, message))
	message, _ = schema.EncodeCreatePayload(&schema.Rect{X: 20, Y: 20, Width: 60, Height: 60}, "")
	session.HandleInbound(ctx, echoFor(t, 12, message))

	session.SetTool(ToolEraser)
	session.PointerDown(schema.Point{X: 50, Y: 50})
	session.PointerMove(ctx, schema.Point{X: 50, Y: 50})

	// Both stacked shapes go before pointer-up.
	if n := len(session.Records()); n != 0 {
		t.Fatalf("records = %d, want 0 before pointer-up", n)
	}
	if len(logClient.deleted) != 2 {
		t.Fatalf("log deletes = %v, want both shapes", logClient.deleted)
	}
	if len(channel.sent) != 2 {
		t.Fatalf("sent = %d messages, want 2 delete broadcasts", len(channel.sent))
	}
}

func TestSelectDragEmitsUpdate(t *testing.T) {
	session, channel, logClient := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}, "")
	session.HandleInbound(ctx, echoFor(t, 42, message))

	session.SetTool(ToolSelect)
	session.PointerDown(schema.Point{X: 50, Y: 50})
	session.PointerMove(ctx, schema.Point{X: 80, Y: 70})
	session.PointerUp(ctx, schema.Point{X: 80, Y: 70})

	records := session.Records()
	rect := records[0].Shape.(*schema.Rect)
	if rect.X != 30 || rect.Y != 20 {
		t.Fatalf("rect origin = (%g, %g), want (30, 20)", rect.X, rect.Y)
	}
	if _, ok := logClient.updated[42]; !ok {
		t.Fatalf("updated = %v, want entry 42", logClient.updated)
	}
	if len(channel.sent) != 1 {
		t.Fatalf("sent = %d, want 1 update broadcast", len(channel.sent))
	}
}

func TestSelectClickWithoutDragEmitsNothing(t *testing.T) {
	session, channel, logClient := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}, "")
	session.HandleInbound(ctx, echoFor(t, 42, message))

	session.SetTool(ToolSelect)
	session.PointerDown(schema.Point{X: 50, Y: 50})
	session.PointerUp(ctx, schema.Point{X: 50, Y: 50})

	if _, ok := session.Selected(); !ok {
		t.Fatal("click did not select")
	}
	if len(channel.sent) != 0 || len(logClient.updated) != 0 {
		t.Fatal("stationary click emitted a mutation")
	}
}

func TestSelectResizeViaHandle(t *testing.T) {
	session, _, logClient := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}, "")
	session.HandleInbound(ctx, echoFor(t, 42, message))

	session.SetTool(ToolSelect)
	session.PointerDown(schema.Point{X: 50, Y: 50})
	session.PointerUp(ctx, schema.Point{X: 50, Y: 50})

	// Grab the SE corner and pull it out.
	session.PointerDown(schema.Point{X: 100, Y: 100})
	session.PointerMove(ctx, schema.Point{X: 140, Y: 130})
	session.PointerUp(ctx, schema.Point{X: 140, Y: 130})

	rect := session.Records()[0].Shape.(*schema.Rect)
	if rect.X != 0 || rect.Y != 0 {
		t.Fatalf("origin moved: (%g, %g)", rect.X, rect.Y)
	}
	if rect.Width != 140 || rect.Height != 130 {
		t.Fatalf("extent = %gx%g, want 140x130", rect.Width, rect.Height)
	}
	if _, ok := logClient.updated[42]; !ok {
		t.Fatal("resize did not emit an update")
	}
}

func TestPanAdjustsCanvasCoordinates(t *testing.T) {
	session, _, _ := newTestSession(t)
	session.SetPan(schema.Point{X: 100, Y: 50})
	rect := drawRect(t, session, schema.Point{X: 110, Y: 70}, schema.Point{X: 210, Y: 170})
	if rect.X != 10 || rect.Y != 20 {
		t.Fatalf("origin = (%g, %g), want pan-adjusted (10, 20)", rect.X, rect.Y)
	}
}

func TestTextCommitCreatesShape(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	session.SetTool(ToolText)
	session.PointerDown(schema.Point{X: 30, Y: 40})
	if _, _, ok := session.TextEntry(); !ok {
		t.Fatal("text entry not open")
	}
	session.CommitText(ctx, "hello", 80, 20)

	records := session.Records()
	text, ok := records[0].Shape.(*schema.Text)
	if !ok {
		t.Fatalf("drew %T, want *schema.Text", records[0].Shape)
	}
	if text.X != 30 || text.Y != 40 || text.Content != "hello" || text.Width != 80 {
		t.Fatalf("text = %+v", text)
	}
	if text.FontSize != 16 {
		t.Fatalf("fontSize = %g, want default 16", text.FontSize)
	}
}

func TestTextCommitEditsExisting(t *testing.T) {
	session, _, logClient := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Text{X: 0, Y: 0, Width: 50, Height: 20, Content: "old", FontSize: 16}, "")
	session.HandleInbound(ctx, echoFor(t, 7, message))

	session.SetTool(ToolText)
	session.PointerDown(schema.Point{X: 25, Y: 10})
	if _, ref, _ := session.TextEntry(); !ref.Valid() {
		t.Fatal("pointer-down on existing text must target it")
	}
	session.CommitText(ctx, "new", 60, 20)

	text := session.Records()[0].Shape.(*schema.Text)
	if text.Content != "new" || text.Width != 60 {
		t.Fatalf("text = %+v", text)
	}
	if _, ok := logClient.updated[7]; !ok {
		t.Fatal("text edit did not emit an update")
	}
	if n := len(session.Records()); n != 1 {
		t.Fatalf("records = %d, edit must not insert", n)
	}
}

func TestTextEscapeCancels(t *testing.T) {
	session, channel, _ := newTestSession(t)
	session.SetTool(ToolText)
	session.PointerDown(schema.Point{X: 30, Y: 40})
	session.CancelText()
	if n := len(session.Records()); n != 0 || len(channel.sent) != 0 {
		t.Fatal("cancel mutated state")
	}
}

func TestSetToolCancelsGestureAndSelection(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()
	message, _ := schema.EncodeCreatePayload(&schema.Rect{X: 0, Y: 0, Width: 100, Height: 100}, "")
	session.HandleInbound(ctx, echoFor(t, 1, message))

	session.SetTool(ToolSelect)
	session.PointerDown(schema.Point{X: 50, Y: 50})
	session.PointerUp(ctx, schema.Point{X: 50, Y: 50})
	if _, ok := session.Selected(); !ok {
		t.Fatal("not selected")
	}
	session.SetTool(ToolRect)
	if _, ok := session.Selected(); ok {
		t.Fatal("selection survived tool switch")
	}
}
