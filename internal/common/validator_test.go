package common

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type item struct {
	Name string `json:"name" validate:"required"`
}

type request struct {
	Items []item `json:"items" validate:"required,min=1,dive"`
}

func TestGenericEchoValidator(t *testing.T) {
	v := NewGenericEchoValidator()

	if err := v.Validate(&request{Items: []item{{Name: "a"}}}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	tests := []struct {
		name string
		req  request
		want string
	}{
		{"empty list", request{Items: []item{}}, "request.items failed on min"},
		{"missing field", request{Items: []item{{Name: "a"}, {}}}, "request.items[1].name failed on required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *echo.HTTPError, got %v", err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want %d", httpErr.Code, http.StatusBadRequest)
			}
			if msg, _ := httpErr.Message.(string); !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestGenericEchoValidator_ZeroValue(t *testing.T) {
	var v GenericEchoValidator
	if err := v.Validate(&request{}); err == nil {
		t.Fatalf("expected error for missing items")
	}
}
