package preferences

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Weights maps categories to preference strength. It remembers insertion
// order: overwriting a category keeps its position, new ones are appended.
// The zero value is an empty, usable set.
type Weights struct {
	keys   []string
	values map[string]float64
}

func NewWeights() *Weights {
	return &Weights{values: make(map[string]float64)}
}

func (w *Weights) Set(category string, weight float64) {
	if w.values == nil {
		w.values = make(map[string]float64)
	}
	if _, ok := w.values[category]; !ok {
		w.keys = append(w.keys, category)
	}
	w.values[category] = weight
}

func (w *Weights) Get(category string) (float64, bool) {
	if w == nil {
		return 0, false
	}
	v, ok := w.values[category]
	return v, ok
}

func (w *Weights) Has(category string) bool {
	_, ok := w.Get(category)
	return ok
}

// Keys returns the categories in insertion order.
func (w *Weights) Keys() []string {
	if w == nil {
		return nil
	}
	out := make([]string, len(w.keys))
	copy(out, w.keys)
	return out
}

func (w *Weights) Len() int {
	if w == nil {
		return 0
	}
	return len(w.keys)
}

// Merge copies every weight of other into w, replacing existing values.
// Categories not present in other are left untouched.
func (w *Weights) Merge(other *Weights) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		w.Set(k, other.values[k])
	}
}

func (w *Weights) Clone() *Weights {
	out := NewWeights()
	out.Merge(w)
	return out
}

// Map returns an unordered copy.
func (w *Weights) Map() map[string]float64 {
	out := make(map[string]float64, w.Len())
	if w == nil {
		return out
	}
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the weights as an object in insertion order.
func (w *Weights) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range w.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(w.values[k])
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of numbers, keeping source order.
func (w *Weights) UnmarshalJSON(data []byte) error {
	pairs, err := decodeObject(data)
	if err != nil {
		return err
	}

	out := NewWeights()
	for _, p := range pairs {
		v, err := p.number()
		if err != nil {
			return fmt.Errorf("weight %q: %w", p.key, err)
		}
		out.Set(p.key, v)
	}
	*w = *out

	return nil
}
