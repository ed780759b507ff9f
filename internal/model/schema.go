package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Schema is the JSON schema every optimized CV must satisfy.
//
//go:embed cv_content.schema.json
var Schema []byte

// Decode maps loosely typed content onto CVContent. Missing keys decode to
// zero values; keys holding the wrong shape are an error.
func Decode(m map[string]any) (*CVContent, error) {
	if m == nil {
		return &CVContent{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	var out CVContent
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return &out, nil
}

// ToMap is the inverse of Decode.
func (c *CVContent) ToMap() (map[string]any, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
