package lms

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/alrightylabs/lutranscript/core"
)

// Well known collection keys.
const (
	KeyUsers       = "users"
	KeyGroups      = "groups"
	KeyEnrollments = "enrollments"
	KeyCompletions = "course_completions"
	KeyData        = "data"
)

// DecodeList negotiates the shape of a collection response. LearnUpon (and proxies in front of it)
// answer with either a bare array, an object holding the array under `key`, or an object holding
// it under "data". `key` wins over "data". A null/empty body is an empty list.
func DecodeList[T any](body []byte, key string) ([]T, error) {
	raw, err := unwrap(body, key, '[')
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if raw == nil {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, core.NewTransportError("decoding "+collectionName(key), err)
	}
	return out, nil
}

// DecodeObject negotiates the shape of a single record response: a bare object, an object under
// `key` or "data", or a one element array in any of those places.
func DecodeObject[T any](body []byte, key string) (T, error) {
	var zero T

	raw, err := unwrap(body, key, '{')
	if err != nil {
		if _, ok := errors.Cause(err).(*core.ShapeError); !ok {
			return zero, err
		}
		// maybe a list holding our record
		list, lerr := DecodeList[T](body, key)
		if lerr != nil || len(list) == 0 {
			return zero, err
		}
		return list[0], nil
	}
	if raw == nil {
		return zero, &core.ShapeError{Want: "object", Got: "null"}
	}
	if err := json.Unmarshal(raw, &zero); err != nil {
		return zero, core.NewTransportError("decoding "+collectionName(key), err)
	}
	return zero, nil
}

// unwrap returns the JSON value that starts with `want` ('[' or '{').
func unwrap(body []byte, key string, want byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	switch body[0] {
	case want:
		if want == '{' {
			// the record may itself be wrapped
			if inner, ok := lookup(body, key, want); ok {
				return inner, nil
			}
		}
		if want == '[' || !isWrapper(body, key) {
			return body, nil
		}
		return nil, &core.ShapeError{Want: kindOf(want), Got: kindOf(body[0])}
	case '{':
		if inner, ok := lookup(body, key, want); ok {
			return inner, nil
		}
		return nil, &core.ShapeError{Want: kindOf(want), Got: kindOf(body[0])}
	case '[', '"', 't', 'f', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return nil, &core.ShapeError{Want: kindOf(want), Got: kindOf(body[0])}
	}
	return nil, core.NewTransportError("decoding "+collectionName(key), errors.Errorf("invalid JSON: %s", core.Snippet(string(body), 60)))
}

// lookup finds `key` then "data" in a JSON object, skipping null values.
func lookup(body []byte, key string, want byte) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, false
	}
	for _, k := range []string{key, KeyData} {
		if k == "" {
			continue
		}
		v := bytes.TrimSpace(obj[k])
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		if v[0] == want {
			return json.RawMessage(v), true
		}
	}
	return nil, false
}

// isWrapper reports whether an object is a wrapper around a non-object value for key or "data",
// e.g. {"groups": [...]} while an object was expected.
func isWrapper(body []byte, key string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return false
	}
	for _, k := range []string{key, KeyData} {
		if v, ok := obj[k]; ok && k != "" {
			v = bytes.TrimSpace(v)
			if len(v) > 0 && v[0] == '[' {
				return true
			}
		}
	}
	return false
}

func kindOf(b byte) string {
	switch b {
	case '[':
		return "array"
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	}
	return "number"
}

func collectionName(key string) string {
	if key == "" {
		return "response"
	}
	return key
}
