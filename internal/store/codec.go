package store

import (
	"fmt"

	"github.com/goccy/go-json"
)

func encode(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return data, nil
}

func decode[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return &v, nil
}
