package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"

	"github.com/gorilla/schema"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

var queryEncoder = func() *schema.Encoder {
	enc := schema.NewEncoder()
	enc.SetAliasTag("json")
	return enc
}()

// encodeQuery turns the caller's query into url.Values plus the typed
// fields used for validation.
func encodeQuery(q any) (url.Values, map[string]any, error) {
	switch v := q.(type) {
	case nil:
		return nil, nil, nil
	case url.Values:
		fields := make(map[string]any, len(v))
		for k, vals := range v {
			if len(vals) == 1 {
				fields[k] = vals[0]
			} else {
				fields[k] = vals
			}
		}
		return v, fields, nil
	case map[string]string:
		values := make(url.Values, len(v))
		fields := make(map[string]any, len(v))
		for k, s := range v {
			values.Set(k, s)
			fields[k] = s
		}
		return values, fields, nil
	case map[string]any:
		values := make(url.Values, len(v))
		for k, raw := range v {
			values[k] = queryStrings(raw)
		}
		return values, v, nil
	}

	rv := reflect.ValueOf(q)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("unsupported query type %T", q)
	}

	values := url.Values{}
	if err := queryEncoder.Encode(rv.Interface(), values); err != nil {
		return nil, nil, fmt.Errorf("encode query: %w", err)
	}
	fields, err := toObject(q)
	if err != nil {
		return nil, nil, err
	}
	return values, fields, nil
}

func queryStrings(v any) []string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, rv.Len())
		for i := range out {
			out[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

// mergePayload builds the object a model validates: URL parameters, query
// fields and body fields merged, later sources winning.
func mergePayload(params map[string]string, query map[string]any, body any) (map[string]any, error) {
	payload := make(map[string]any, len(params)+len(query))
	for k, v := range params {
		payload[k] = v
	}
	for k, v := range query {
		payload[k] = v
	}
	if body == nil {
		return payload, nil
	}

	fields, err := toObject(body)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		payload[k] = v
	}
	return payload, nil
}

// toObject converts v to a JSON object via its JSON encoding.
func toObject(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, mferrors.NewInvalidPayload(fmt.Sprintf("%T", v), []string{err.Error()})
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, mferrors.NewInvalidPayload(fmt.Sprintf("%T", v), []string{"request data must be a JSON object"})
	}
	return obj, nil
}
