package model

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// Coercer is implemented by descriptors that know the declared types of
// their fields. Query values arrive as strings; CoerceQuery converts those
// declared as integers, numbers or booleans before validation. Values that
// do not parse are left as they are for Validate to report.
type Coercer interface {
	CoerceQuery(fields map[string]any) map[string]any
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInteger
	kindNumber
	kindBoolean
)

// fieldKinds holds the scalar kind of each top-level field; for arrays it is
// the element kind.
type fieldKinds map[string]fieldKind

func (k fieldKinds) coerce(fields map[string]any) map[string]any {
	if len(k) == 0 || len(fields) == 0 {
		return fields
	}

	out := make(map[string]any, len(fields))
	for name, v := range fields {
		kind := k[name]
		if kind == kindString {
			out[name] = v
			continue
		}
		switch s := v.(type) {
		case string:
			out[name] = coerceScalar(s, kind)
		case []string:
			items := make([]any, len(s))
			for i, item := range s {
				items[i] = coerceScalar(item, kind)
			}
			out[name] = items
		default:
			out[name] = v
		}
	}
	return out
}

func coerceScalar(s string, kind fieldKind) any {
	switch kind {
	case kindInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case kindNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case kindBoolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

// schemaKinds reads the declared types of a JSON Schema's top-level
// properties. A type list such as ["integer", "null"] uses its first
// non-null entry.
func schemaKinds(document []byte) fieldKinds {
	var doc struct {
		Properties map[string]struct {
			Type  json.RawMessage `json:"type"`
			Items *struct {
				Type json.RawMessage `json:"type"`
			} `json:"items"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil
	}

	kinds := make(fieldKinds)
	for name, prop := range doc.Properties {
		typ := schemaType(prop.Type)
		if typ == "array" && prop.Items != nil {
			typ = schemaType(prop.Items.Type)
		}
		switch typ {
		case "integer":
			kinds[name] = kindInteger
		case "number":
			kinds[name] = kindNumber
		case "boolean":
			kinds[name] = kindBoolean
		}
	}
	return kinds
}

func schemaType(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, t := range list {
			if t != "null" {
				return t
			}
		}
	}
	return ""
}

// structKinds reads the kinds of T's exported fields under their JSON names.
func structKinds(t reflect.Type) fieldKinds {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	kinds := make(fieldKinds)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Slice && ft.Elem().Kind() != reflect.Uint8 {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			kinds[name] = kindInteger
		case reflect.Float32, reflect.Float64:
			kinds[name] = kindNumber
		case reflect.Bool:
			kinds[name] = kindBoolean
		}
	}
	return kinds
}
