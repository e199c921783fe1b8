package entity

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalSnapshot encodes items as the persisted JSON array of
// {product, size, quantity} records.
func MarshalSnapshot(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	data, err := snapshotJSON.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	return data, nil
}

func UnmarshalSnapshot(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := snapshotJSON.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}
	return items, nil
}
