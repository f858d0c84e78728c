package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindObject
)

// String returns the lowercase kind name used in error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one dynamically-typed structured value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	a    []Value
	o    map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array Value holding elems in order.
// The slice is retained; callers must not modify it afterwards.
func Array(elems ...Value) Value { return Value{kind: KindArray, a: elems} }

// Object returns an object Value holding fields. A nil map is an empty object.
// The map is retained; callers must not modify it afterwards.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, o: fields} }

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the bool payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload and whether v is an integer.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInteger }

// AsFloat returns the float payload and whether v is a float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the element slice and whether v is an array.
// The slice is v's backing storage; callers must not modify it.
func (v Value) AsArray() ([]Value, bool) { return v.a, v.kind == KindArray }

// AsObject returns the field map and whether v is an object.
// The map is v's backing storage; callers must not modify it.
func (v Value) AsObject() (map[string]Value, bool) { return v.o, v.kind == KindObject }

// Clone returns a deep copy of v. Mutating the copy (or containers reachable
// from it) never affects the original. Cloned objects always have a non-nil
// field map so callers can add fields directly.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		a := make([]Value, len(v.a))
		for i, e := range v.a {
			a[i] = e.Clone()
		}
		return Value{kind: KindArray, a: a}
	case KindObject:
		o := make(map[string]Value, len(v.o))
		for k, e := range v.o {
			o[k] = e.Clone()
		}
		return Value{kind: KindObject, o: o}
	default:
		return v
	}
}

// Equal reports deep equality. Kinds must match exactly: Int(1) and
// Float(1) are not equal. Array comparison is order-sensitive.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.a) != len(o.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(o.a[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.o) != len(o.o) {
			return false
		}
		for k, ve := range v.o {
			oe, ok := o.o[k]
			if !ok || !ve.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v as compact JSON for logs and error messages.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unencodable %s>", v.kind)
	}
	return string(b)
}

// MarshalJSON encodes v as JSON. Object keys are written in sorted order.
// Non-finite floats are rejected, as encoding/json does.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInteger:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.a {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range sortedKeys(v.o) {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.o[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes data into v. Numbers without a fraction or exponent
// decode as integers, everything else numeric as float.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	got, err := fromRaw(raw)
	if err != nil {
		return err
	}
	*v = got
	return nil
}

func fromRaw(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return Int(i), nil
			}
			// Integer literal out of int64 range, fall back to float.
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", x.String(), err)
		}
		return Float(f), nil
	case string:
		return String(x), nil
	case []interface{}:
		elems := make([]Value, 0, len(x))
		for _, e := range x {
			ev, err := fromRaw(e)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, ev)
		}
		return Array(elems...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := fromRaw(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = ev
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value of type %T", raw)
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
