// Package utils provides small shared helpers for the climbauth service:
// bearer token handling, request validation, and encoding conversions used
// by the persistence and audit layers.
package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// ================================================================================
// Base64 Encoding
// ================================================================================

// Base64Encode encodes bytes to a standard base64 string
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes a standard base64 string to bytes
func Base64Decode(encoded string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return decoded, nil
}

// ================================================================================
// Time Conversion
// ================================================================================

// TimeToUnix converts time.Time to a Unix timestamp in seconds
func TimeToUnix(t time.Time) int64 {
	return t.Unix()
}

// UnixToTime converts a Unix timestamp in seconds to time.Time
func UnixToTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0)
}

// DurationToSeconds converts a duration to whole seconds
func DurationToSeconds(d time.Duration) int64 {
	return int64(d.Seconds())
}

// ================================================================================
// Map Conversion
// ================================================================================

// StructToMap flattens a struct to a map through its JSON representation.
func StructToMap(v interface{}) (map[string]interface{}, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}
	return result, nil
}
