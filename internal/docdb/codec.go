// Encodes single records into line-safe tokens.

package docdb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Encode serializes v to JSON then to base64. The result never contains '\n'.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return base64.StdEncoding.AppendEncode(nil, data), nil
}

// Decode is the inverse of [Encode]. Malformed tokens return an error
// wrapping [ErrCorruptRecord].
func Decode(token []byte, v any) error {
	data, err := base64.StdEncoding.AppendDecode(nil, token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return nil
}
