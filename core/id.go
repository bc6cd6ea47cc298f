package core

import (
	"github.com/google/uuid"

	"pkt.systems/sketchroom/schema"
)

func newLocalID() schema.LocalID {
	return schema.LocalID(uuid.NewString())
}
