package domain

import (
	"encoding/json"
	"maps"
)

// Extra holds object fields the remote service sent that this client does
// not model. They are kept so a cached record round-trips without loss.
type Extra map[string]json.RawMessage

// decodeExtra unmarshals data into known and returns the leftover fields
// whose keys are not listed in modeled.
func decodeExtra(data []byte, known any, modeled ...string) (Extra, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range modeled {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}

// encodeExtra marshals known and merges extra into the resulting object.
// Modeled fields win over an extra entry with the same key.
func encodeExtra(known any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	merged := maps.Clone(map[string]json.RawMessage(extra))
	maps.Copy(merged, obj)
	return json.Marshal(merged)
}
