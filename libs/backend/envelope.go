package backend

import (
	"encoding/json"
)

// Envelope is the response shape shared by the authentication and
// registration routes.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Data    T      `json:"data"`
}

// Extensions holds response fields the client has no typed slot for.
type Extensions map[string]json.RawMessage

// Get decodes the extension named key into v. It reports whether the key
// was present.
func (e Extensions) Get(key string, v any) (bool, error) {
	raw, ok := e[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// splitExtensions decodes raw into known (a pointer to an alias type
// without custom unmarshalling) and returns the fields not listed in keys.
func splitExtensions(raw []byte, known any, keys ...string) (Extensions, error) {
	if err := json.Unmarshal(raw, known); err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extensions(all), nil
}
