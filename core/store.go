package core

import (
	"errors"

	"pkt.systems/sketchroom/schema"
)

// Record binds one shape to its identifier pair. The shape pointer is
// mutated in place by drags, resizes, and remote updates.
type Record struct {
	Ref   schema.ShapeRef
	Shape schema.Shape
}

// Store is the in-memory ordered projection of one room's shape log. It is
// not safe for concurrent use; Session serializes every access.
type Store struct {
	cfg      schema.EngineConfig
	records  []*Record
	selected *Record
}

// NewStore constructs an empty store with normalized thresholds.
func NewStore(cfg schema.EngineConfig) (*Store, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{cfg: normalized}, nil
}

func (s *Store) Len() int { return len(s.records) }

// Records returns the records in insertion order. Callers must not retain
// the slice across mutations.
func (s *Store) Records() []*Record { return s.records }

// Append adds a record at the top of the z-order.
func (s *Store) Append(ref schema.ShapeRef, shape schema.Shape) (*Record, error) {
	if !ref.Valid() {
		return nil, errors.New("record without identifier")
	}
	if shape == nil {
		return nil, errors.New("record without shape")
	}
	rec := &Record{Ref: ref, Shape: shape}
	s.records = append(s.records, rec)
	return rec, nil
}

// FindLocal returns the record carrying the given temporary id.
func (s *Store) FindLocal(id schema.LocalID) (*Record, bool) {
	for _, rec := range s.records {
		if local, ok := rec.Ref.Local(); ok && local == id {
			return rec, true
		}
	}
	return nil, false
}

// FindDurable returns the record carrying the given durable id.
func (s *Store) FindDurable(id schema.ChatID) (*Record, bool) {
	for _, rec := range s.records {
		if durable, ok := rec.Ref.Durable(); ok && durable == id {
			return rec, true
		}
	}
	return nil, false
}

// Remove deletes the record from the store, clearing the selection if it
// pointed at the removed record.
func (s *Store) Remove(rec *Record) bool {
	for i, candidate := range s.records {
		if candidate == rec {
			s.records = append(s.records[:i], s.records[i+1:]...)
			if s.selected == rec {
				s.selected = nil
			}
			return true
		}
	}
	return false
}

// RemoveDurable deletes the record carrying the given durable id.
func (s *Store) RemoveDurable(id schema.ChatID) (*Record, bool) {
	rec, ok := s.FindDurable(id)
	if !ok {
		return nil, false
	}
	s.Remove(rec)
	return rec, true
}

// HitTest returns the topmost record whose padded hit geometry contains p.
// Records are tested in reverse insertion order so the most recently drawn
// shape wins.
func (s *Store) HitTest(p schema.Point) (*Record, bool) {
	for i := len(s.records) - 1; i >= 0; i-- {
		if hitShape(s.records[i].Shape, p, s.cfg.HitThreshold) {
			return s.records[i], true
		}
	}
	return nil, false
}

// HitTestAll returns every record whose padded hit geometry contains p, in
// reverse insertion order. The eraser uses this to delete stacked shapes in
// one pass.
func (s *Store) HitTestAll(p schema.Point) []*Record {
	var hits []*Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if hitShape(s.records[i].Shape, p, s.cfg.HitThreshold) {
			hits = append(hits, s.records[i])
		}
	}
	return hits
}

func (s *Store) Select(rec *Record) { s.selected = rec }

func (s *Store) ClearSelection() { s.selected = nil }

// Selected returns the currently selected record, if any.
func (s *Store) Selected() (*Record, bool) {
	return s.selected, s.selected != nil
}
