package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeToken turns a backend cursor into an opaque continuation token.
func EncodeToken(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeToken reverses EncodeToken into v.
func DecodeToken(token string, v any) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// copyItem deep-copies through JSON so callers never share maps with a backend
// and numbers come back as float64.
func copyItem(item Item) (Item, error) {
	if item == nil {
		return nil, nil
	}
	b, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var out Item
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
