// Package classes flattens extracted entities into independent class
// records and renders their property values as strings.
package classes

import (
	"encoding/json"
	"fmt"
)

// Property is a rendered key/value pair. It is persisted as a two-element
// JSON array, ["key", "value"].
type Property struct {
	Key   string
	Value string
}

// MarshalJSON implements json.Marshaler.
func (p Property) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Key, p.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Property) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("property must be a [key, value] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("property must be a [key, value] pair, got %d elements", len(pair))
	}
	p.Key, p.Value = pair[0], pair[1]
	return nil
}

// ClassRecord is one flattened class. Parent is the raw identifier from
// the inheritance clause and is never resolved. SourceFile is empty when
// the record did not come from a file.
type ClassRecord struct {
	Name       string     `json:"name"`
	Parent     string     `json:"parent,omitempty"`
	Properties []Property `json:"properties"`
	SourceFile string     `json:"file_path,omitempty"`
}

// HasParent reports whether the record declares a parent class.
func (r *ClassRecord) HasParent() bool {
	return r.Parent != ""
}

// Property returns the value of the first property named key.
func (r *ClassRecord) Property(key string) (string, bool) {
	for _, p := range r.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// HasPropertyNamed reports whether any property key equals key.
func (r *ClassRecord) HasPropertyNamed(key string) bool {
	_, ok := r.Property(key)
	return ok
}

// HasPropertyValue reports whether any property value equals value exactly.
func (r *ClassRecord) HasPropertyValue(value string) bool {
	for _, p := range r.Properties {
		if p.Value == value {
			return true
		}
	}
	return false
}
