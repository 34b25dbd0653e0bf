package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// JSON layout:
//
//	int     -> 3
//	float   -> 3.0 (always carries a '.' or exponent so it decodes as float)
//	vector  -> {"$vec":[x,y,z]}
//	node    -> {"key": ...}
//	array   -> [...]; an empty array is {"$empty":"<elem kind>"}
//
// Dirty flags are not serialized; decoded nodes start unchanged.

const (
	vecKey   = "$vec"
	emptyKey = "$empty"
)

// MarshalJSON encodes n with keys in sorted order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range n.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := n.props[k].encode(buf); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindInt:
		buf.WriteString(strconv.Itoa(v.i))
	case KindFloat:
		s, err := formatFloat(v.f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindVector:
		buf.WriteString(`{"` + vecKey + `":[`)
		for i, c := range []float64{v.v.X, v.v.Y, v.v.Z} {
			if i > 0 {
				buf.WriteByte(',')
			}
			s, err := formatFloat(c)
			if err != nil {
				return err
			}
			buf.WriteString(s)
		}
		buf.WriteString("]}")
	case KindNode:
		return v.n.encode(buf)
	case KindArray:
		if len(v.items) == 0 {
			buf.WriteString(`{"` + emptyKey + `":"` + v.elem.String() + `"}`)
			return nil
		}
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
	return nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported float value %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

// UnmarshalJSON replaces the contents of n with the decoded document.
// Values that cannot be typed (null, mixed arrays) are dropped.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	for _, v := range n.props {
		n.unlink(v)
	}
	n.props = make(map[string]Value, len(raw))
	n.fill(raw)
	n.dirty = false
	return nil
}

// Decode parses a JSON document into a new node.
func Decode(data []byte) (*Node, error) {
	n := New()
	if err := n.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) fill(raw map[string]any) {
	for k, r := range raw {
		if v, ok := decodeValue(r); ok {
			n.Set(k, v, false)
		}
	}
}

func decodeValue(r any) (Value, bool) {
	switch x := r.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.Atoi(s); err == nil {
				return OfInt(i), true
			}
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, false
		}
		return OfFloat(f), true
	case bool:
		return OfBool(x), true
	case string:
		return OfString(x), true
	case map[string]any:
		if vec, ok := decodeVector(x); ok {
			return OfVector(vec), true
		}
		if e, ok := x[emptyKey].(string); ok && len(x) == 1 {
			elem, ok := parseKind(e)
			if !ok {
				return Value{}, false
			}
			return Value{kind: KindArray, elem: elem, items: []Value{}}, true
		}
		c := New()
		c.fill(x)
		return OfNode(c), true
	case []any:
		if len(x) == 0 {
			return Value{}, false
		}
		items := make([]Value, 0, len(x))
		for _, e := range x {
			v, ok := decodeValue(e)
			if !ok || v.kind == KindArray {
				return Value{}, false
			}
			items = append(items, v)
		}
		return arrayOf(items[0].kind, items)
	}
	return Value{}, false
}

func decodeVector(m map[string]any) (v3.Vec, bool) {
	raw, ok := m[vecKey].([]any)
	if !ok || len(m) != 1 || len(raw) != 3 {
		return v3.Vec{}, false
	}
	var c [3]float64
	for i, r := range raw {
		num, ok := r.(json.Number)
		if !ok {
			return v3.Vec{}, false
		}
		f, err := num.Float64()
		if err != nil {
			return v3.Vec{}, false
		}
		c[i] = f
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, true
}
