package optimizer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is a single-key mapping from an equipment set name to its ids.
type Entry struct {
	Name string
	IDs  []int
}

// MarshalJSON encodes the entry as {"<name>":[ids]}.
func (e Entry) MarshalJSON() ([]byte, error) {
	ids := e.IDs
	if ids == nil {
		ids = []int{}
	}
	return json.Marshal(map[string][]int{e.Name: ids})
}

// UnmarshalJSON decodes a single-key object. Zero or several keys is an error.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string][]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("optimizer: entry: %w", err)
	}
	if m == nil {
		return fmt.Errorf("optimizer: entry: null")
	}
	if len(m) != 1 {
		return fmt.Errorf("optimizer: entry: want a map with a single key, got %d keys", len(m))
	}
	for name, ids := range m {
		e.Name = name
		e.IDs = ids
	}
	if e.IDs == nil {
		e.IDs = []int{}
	}
	return nil
}

// Payload is the body of a sync request.
type Payload []Entry

// MarshalJSON encodes an empty or nil payload as [].
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Entry(p))
}

// Labels returns the entry names in payload order.
func (p Payload) Labels() []string {
	labels := make([]string, len(p))
	for i, e := range p {
		labels[i] = e.Name
	}
	return labels
}

// Index maps each label to its ids. When a label repeats, the last entry wins.
func (p Payload) Index() map[string][]int {
	m := make(map[string][]int, len(p))
	for _, e := range p {
		m[e.Name] = e.IDs
	}
	return m
}

// BuildPayload turns the saved sets into a payload. Sets without a name are
// dropped; the others keep their relative order.
func BuildPayload(sets []EquipmentSet) Payload {
	mapped := make([]*Entry, len(sets))
	for i, s := range sets {
		if s.Name == nil {
			continue
		}
		mapped[i] = &Entry{Name: *s.Name, IDs: s.IDs()}
	}

	payload := make(Payload, 0, len(mapped))
	for _, e := range mapped {
		if e != nil {
			payload = append(payload, *e)
		}
	}
	return payload
}

// DecodePayload parses a sync request body.
func DecodePayload(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("optimizer: empty payload")
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}
