// Package models holds the data types shared across the corpus parser,
// pattern compiler, expression evaluator, and suite runner.
package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/sjson"
)

// Kind identifies the dynamic type of a Value in the evaluator universe.
type Kind string

const (
	KindNumber Kind = "number"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindNull   Kind = "null"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// Value is the single dynamic type that flows through hole bindings, JSON
// fragments, and the `where` expression evaluator.
type Value struct {
	kind   Kind
	num    float64
	str    string
	boo    bool
	arr    []Value
	object *Object
}

// Object is an ordered string->Value mapping. Insertion order is preserved
// for rendering (InsertionKeys); Equal ignores key order; SortedKeys returns
// alphabetical order for the `keys`/`values` builtins (deterministic test
// authoring).
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{values: map[string]Value{}}
}

// Set inserts or overwrites a key, preserving first-insertion order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value and whether the key is present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// InsertionKeys returns keys in insertion order.
func (o *Object) InsertionKeys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// SortedKeys returns keys in alphabetical order, for `keys`/`values`.
func (o *Object) SortedKeys() []string {
	out := o.InsertionKeys()
	sort.Strings(out)
	return out
}

// Equal compares two objects by key set and value equality, ignoring order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, k := range o.keys {
		v1 := o.values[k]
		v2, ok := other.values[k]
		if !ok || !v1.Equal(v2) {
			return false
		}
	}
	return true
}

func Number(f float64) Value  { return Value{kind: KindNumber, num: f} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Bool(b bool) Value       { return Value{kind: KindBool, boo: b} }
func Null() Value             { return Value{kind: KindNull} }
func Array(vs []Value) Value  { return Value{kind: KindArray, arr: vs} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, object: o} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) Num() float64 { return v.num }
func (v Value) Str() string  { return v.str }
func (v Value) Bool() bool   { return v.boo }
func (v Value) Arr() []Value { return v.arr }
func (v Value) Obj() *Object { return v.object }

// Equal performs deep equality used by `contains`, `in`, `==`/`!=`.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.boo == other.boo
	case KindNull:
		return true
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.object.Equal(other.object)
	}
	return false
}

// String renders the value as plain text: integral numbers without a
// fraction, strings unquoted, arrays and objects in a JSON-like form with
// object keys in insertion order.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindBool:
		if v.boo {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindArray:
		out := "["
		for i, e := range v.arr {
			if i > 0 {
				out += ", "
			}
			out += e.String()
		}
		return out + "]"
	case KindObject:
		out := "{"
		for i, k := range v.object.InsertionKeys() {
			if i > 0 {
				out += ", "
			}
			val, _ := v.object.Get(k)
			out += fmt.Sprintf("%q: %s", k, val.String())
		}
		return out + "}"
	}
	return ""
}

// CanonicalJSON renders a bound value as compact JSON text, used in
// ConstraintFailed binding snapshots so a captured array/object reads the
// same regardless of the whitespace the command happened to produce.
// Built incrementally with sjson rather than a hand-rolled encoder.
func (v Value) CanonicalJSON() (string, error) {
	switch v.kind {
	case KindArray:
		json := "[]"
		var err error
		for i, e := range v.arr {
			elemJSON, eerr := e.CanonicalJSON()
			if eerr != nil {
				return "", eerr
			}
			json, err = sjson.SetRaw(json, fmt.Sprintf("%d", i), elemJSON)
			if err != nil {
				return "", err
			}
		}
		return json, nil
	case KindObject:
		json := "{}"
		var err error
		for _, k := range v.object.InsertionKeys() {
			val, _ := v.object.Get(k)
			valJSON, verr := val.CanonicalJSON()
			if verr != nil {
				return "", verr
			}
			json, err = sjson.SetRaw(json, k, valJSON)
			if err != nil {
				return "", err
			}
		}
		return json, nil
	case KindString:
		b, err := json.Marshal(v.str)
		return string(b), err
	case KindNumber:
		return formatNumber(v.num), nil
	case KindBool:
		if v.boo {
			return "true", nil
		}
		return "false", nil
	case KindNull:
		return "null", nil
	}
	return "", fmt.Errorf("unhandled kind %s", v.kind)
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
