package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// fieldIndexCache caches JSON tag -> struct field index mappings per type
var fieldIndexCache sync.Map

func jsonFieldIndex(t reflect.Type) map[string]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string]int)
	}
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		idx[name] = i
	}
	fieldIndexCache.Store(t, idx)
	return idx
}

// flexUnmarshal decodes a JSON object into target (a pointer to a struct
// without its own UnmarshalJSON) and accepts both string-encoded and native
// JSON values. The stats service forwards nba_api payloads, which sometimes
// quote numbers and report minutes as "MM:SS".
func flexUnmarshal(data []byte, target any) error {
	// Fast path: everything matches natively
	if err := json.Unmarshal(data, target); err == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	v := reflect.ValueOf(target).Elem()
	fieldMap := jsonFieldIndex(v.Type())

	for key, rawVal := range raw {
		idx, ok := fieldMap[key]
		if !ok {
			continue
		}

		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		// Value is a JSON string but the target is numeric/bool
		if len(rawVal) > 1 && rawVal[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				continue
			}
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			coerceStringToField(fv, s)
		}
	}

	return nil
}

// coerceStringToField converts a string value to the field's native type and
// reports whether it succeeded.
func coerceStringToField(fv reflect.Value, s string) bool {
	switch fv.Kind() {
	case reflect.Ptr:
		elem := reflect.New(fv.Type().Elem())
		if coerceStringToField(elem.Elem(), s) {
			fv.Set(elem)
			return true
		}
	case reflect.Float32, reflect.Float64:
		if n, err := parseFlexFloat(s); err == nil {
			fv.SetFloat(n)
			return true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// "28.5" truncates to 28
		if n, err := parseFlexFloat(s); err == nil {
			fv.SetInt(int64(n))
			return true
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			fv.SetBool(b)
			return true
		}
	case reflect.String:
		fv.SetString(s)
		return true
	}
	return false
}

// parseFlexFloat parses plain decimals and "MM:SS" durations (as minutes).
func parseFlexFloat(s string) (float64, error) {
	if mins, secs, ok := strings.Cut(s, ":"); ok {
		m, err := strconv.ParseFloat(mins, 64)
		if err != nil {
			return 0, err
		}
		sec, err := strconv.ParseFloat(secs, 64)
		if err != nil {
			return 0, err
		}
		return m + sec/60, nil
	}
	return strconv.ParseFloat(s, 64)
}
