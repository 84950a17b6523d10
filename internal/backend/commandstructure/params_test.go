package commandstructure

import (
	"testing"
)

func TestGetStringParam(t *testing.T) {
	params := map[string]any{
		"key1": "value1",
		"key2": 123,
	}

	// Test existing string parameter
	if val := GetStringParam(params, "key1", "default"); val != "value1" {
		t.Errorf("Expected 'value1', got '%s'", val)
	}

	// Test non-string parameter
	if val := GetStringParam(params, "key2", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}

	// Test non-existent parameter
	if val := GetStringParam(params, "key3", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{
		"key1": 123,
		"key2": int64(456),
		"key3": float64(789),
		"key4": "not-an-int",
	}

	// Test int parameter
	if val := GetIntParam(params, "key1", 0); val != 123 {
		t.Errorf("Expected 123, got %d", val)
	}

	// Test int64 parameter
	if val := GetIntParam(params, "key2", 0); val != 456 {
		t.Errorf("Expected 456, got %d", val)
	}

	// Test float64 parameter
	if val := GetIntParam(params, "key3", 0); val != 789 {
		t.Errorf("Expected 789, got %d", val)
	}

	// Test non-int parameter
	if val := GetIntParam(params, "key4", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}

	// Test non-existent parameter
	if val := GetIntParam(params, "key5", 999); val != 999 {
		t.Errorf("Expected 999, got %d", val)
	}
}

func TestGetFloatParam(t *testing.T) {
	params := map[string]any{
		"float": 2.5,
		"int":   3,
		"int64": int64(4),
		"str":   "1.5",
	}

	if val := GetFloatParam(params, "float", 0); val != 2.5 {
		t.Errorf("Expected 2.5, got %f", val)
	}
	if val := GetFloatParam(params, "int", 0); val != 3 {
		t.Errorf("Expected 3, got %f", val)
	}
	if val := GetFloatParam(params, "int64", 0); val != 4 {
		t.Errorf("Expected 4, got %f", val)
	}
	if val := GetFloatParam(params, "str", 9); val != 1.5 {
		t.Errorf("Expected quoted 1.5, got %f", val)
	}
	if val := GetFloatParam(params, "missing", 7); val != 7 {
		t.Errorf("Expected default 7, got %f", val)
	}
}

func TestValidateRequiredParams(t *testing.T) {
	params := map[string]any{
		"param1": "value1",
		"param2": 123,
	}

	// Test all required params present
	err := ValidateRequiredParams(params, []string{"param1", "param2"})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test missing required param
	err = ValidateRequiredParams(params, []string{"param1", "param3"})
	if err == nil {
		t.Error("Expected error for missing required param")
	}

	// Test no required params
	err = ValidateRequiredParams(params, []string{})
	if err != nil {
		t.Errorf("Expected no error for empty required list, got %v", err)
	}
}

func TestGetBoolParam(t *testing.T) {
	params := map[string]any{
		"native":  true,
		"upper":   "TRUE",
		"falsey":  " false ",
		"garbage": "maybe",
		"number":  1,
	}

	if !GetBoolParam(params, "native", false) {
		t.Error("Expected native bool to be true")
	}
	if !GetBoolParam(params, "upper", false) {
		t.Error("Expected 'TRUE' to be true")
	}
	if GetBoolParam(params, "falsey", true) {
		t.Error("Expected ' false ' to be false")
	}
	if !GetBoolParam(params, "garbage", true) {
		t.Error("Expected unrecognized string to fall back to default")
	}
	if GetBoolParam(params, "number", false) {
		t.Error("Expected non-bool type to fall back to default")
	}
}

func TestGetEnumParam(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    string
		wantErr bool
	}{
		{"allowed", map[string]any{"op": "open"}, "open", false},
		{"not allowed", map[string]any{"op": "dilate"}, "", true},
		{"wrong type", map[string]any{"op": 1}, "", true},
		{"missing", map[string]any{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetEnumParam(tt.params, "op", "open", "close")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetEnumParam() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetEnumParam() = %q, want %q", got, tt.want)
			}
		})
	}
}
