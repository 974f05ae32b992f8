// Package serialize renders domain records as transport-safe views: ids as
// strings, times as ISO-8601 strings, references as Ref values.
package serialize

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimeLayout is ISO-8601 with millisecond precision. Times are rendered in UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Time formats t with TimeLayout in UTC. The zero time renders as "".
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// Identified is implemented by views that can stand behind a Ref.
type Identified interface {
	RefID() string
}

// Ref is either a bare id or an expanded view of the referenced record.
// It encodes to a JSON string in the first case and to an object in the second.
type Ref[T Identified] struct {
	id       string
	expanded *T
}

// IDRef returns an unexpanded reference.
func IDRef[T Identified](id string) Ref[T] {
	return Ref[T]{id: id}
}

// Expanded returns a reference carrying the full view.
func Expanded[T Identified](v T) Ref[T] {
	return Ref[T]{id: v.RefID(), expanded: &v}
}

// ID returns the referenced id in either shape.
func (r Ref[T]) ID() string {
	return r.id
}

// IsExpanded reports whether r carries a view.
func (r Ref[T]) IsExpanded() bool {
	return r.expanded != nil
}

// Value returns the expanded view, if any.
func (r Ref[T]) Value() (T, bool) {
	if r.expanded == nil {
		var zero T
		return zero, false
	}
	return *r.expanded, true
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(*r.expanded)
	}
	return json.Marshal(r.id)
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = IDRef[T](id)
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Expanded(v)
	return nil
}

// IDs returns the referenced ids in order.
func IDs[T Identified](refs []Ref[T]) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID()
	}
	return out
}
