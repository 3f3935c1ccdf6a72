package entity

import (
	"encoding/json"
	"fmt"
)

// splitRecord decodes data into known and returns every top-level key that is
// not listed in knownKeys, raw and untouched.
func splitRecord(data []byte, known interface{}, knownKeys []string) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if all == nil {
		return nil, fmt.Errorf("record is not a JSON object")
	}

	for _, key := range knownKeys {
		delete(all, key)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeRecord encodes the known fields on top of the carried-through extras
func mergeRecord(extra map[string]json.RawMessage, known map[string]interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(extra)+len(known))
	for key, value := range extra {
		out[key] = value
	}
	for key, value := range known {
		out[key] = value
	}
	return json.Marshal(out)
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for key, value := range extra {
		out[key] = append(json.RawMessage(nil), value...)
	}
	return out
}
