package commandstructure

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Params arrive from YAML (int, float64, bool, string) or from Go code (any numeric
// type). Numbers written as strings are accepted so that quoted YAML values work.

func lookup[T any](params map[string]any, key string, convert func(any) (T, bool), defaultValue T) T {
	val, ok := params[key]
	if !ok {
		return defaultValue
	}
	if v, ok := convert(val); ok {
		return v
	}
	return defaultValue
}

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint8:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(val any) (int, bool) {
	f, ok := asFloat(val)
	return int(f), ok
}

func asString(val any) (string, bool) {
	s, ok := val.(string)
	return s, ok
}

func asBool(val any) (bool, bool) {
	switch v := val.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// GetStringParam returns the string stored under key, or defaultValue.
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	return lookup(params, key, asString, defaultValue)
}

// GetIntParam returns the number stored under key truncated to int, or defaultValue.
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	return lookup(params, key, asInt, defaultValue)
}

// GetFloatParam returns the number stored under key, or defaultValue.
func GetFloatParam(params map[string]any, key string, defaultValue float64) float64 {
	return lookup(params, key, asFloat, defaultValue)
}

// GetBoolParam returns the bool stored under key, or defaultValue.
// The strings true and false are accepted in any case.
func GetBoolParam(params map[string]any, key string, defaultValue bool) bool {
	return lookup(params, key, asBool, defaultValue)
}

// GetEnumParam returns the string stored under key if it is one of allowed.
func GetEnumParam(params map[string]any, key string, allowed ...string) (string, error) {
	value := GetStringParam(params, key, "")
	if !slices.Contains(allowed, value) {
		return "", fmt.Errorf("invalid %s: %q (must be one of %s)", key, value, strings.Join(allowed, ", "))
	}
	return value, nil
}

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}
