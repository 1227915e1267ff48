package statetracker

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// State is a full JSON-shaped capture of one entity
type State map[string]any

// FieldChange is one key that differs between two states
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// StateOf converts any JSON-marshalable value (typically a domain struct)
// into a detached State
func StateOf(v any) (State, error) {
	if v == nil {
		return State{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if s == nil {
		s = State{}
	}
	return s, nil
}

// Clone returns a deep copy. Values that are not plain JSON shapes are
// normalized through a JSON round trip.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64, int, int64, json.Number:
		return t
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case State:
		return map[string]any(t.Clone())
	case []any:
		l := make([]any, len(t))
		for i, vv := range t {
			l[i] = cloneValue(vv)
		}
		return l
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Sprint(t)
		}
		return out
	}
}

// Diff lists every key whose value differs between previous and current,
// sorted by field name. A nil previous records every current key as new.
func Diff(previous, current State) []FieldChange {
	keys := make(map[string]struct{}, len(previous)+len(current))
	for k := range previous {
		keys[k] = struct{}{}
	}
	for k := range current {
		keys[k] = struct{}{}
	}

	var changes []FieldChange
	for k := range keys {
		oldV, inOld := previous[k]
		newV, inNew := current[k]
		if inOld && inNew && reflect.DeepEqual(oldV, newV) {
			continue
		}
		changes = append(changes, FieldChange{Field: k, OldValue: oldV, NewValue: newV})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Field < changes[j].Field
	})
	return changes
}
