package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NullableID tells an absent JSON key apart from an explicit null.
type NullableID struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON only runs when the key is present.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("expected an integer id or null: %w", err)
	}
	n.Value = &id
	return nil
}
