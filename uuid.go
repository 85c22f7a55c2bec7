package main

import (
	"encoding/json"

	"github.com/google/uuid"
)

// newUUID generates an opaque random identifier, grounded on the same
// google/uuid usage a comparable system uses for naming stored artifacts.
func newUUID() string {
	return uuid.New().String()
}

func marshalPayload(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
