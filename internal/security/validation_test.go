package security

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		maxSize int
		depth   int
		wantErr error
	}{
		{"empty", "", 0, 0, nil},
		{"flat object", `{"limit":6}`, 0, 0, nil},
		{"too large", `{"a":"` + strings.Repeat("x", 100) + `"}`, 50, 0, ErrPayloadTooLarge},
		{"too deep", `{"a":{"b":{"c":1}}}`, 0, 2, ErrJSONTooDeep},
		{"at depth limit", `{"a":{"b":1}}`, 0, 2, nil},
		{"arrays count", `[[[1]]]`, 0, 2, ErrJSONTooDeep},
		{"invalid", `{"a":`, 0, 0, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePayload([]byte(tt.data), tt.maxSize, tt.depth)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJSONDepth_DefaultLimit(t *testing.T) {
	t.Parallel()

	deep := strings.Repeat("[", DefaultMaxJSONDepth+1) + strings.Repeat("]", DefaultMaxJSONDepth+1)
	if err := ValidateJSONDepth([]byte(deep), 0); !errors.Is(err, ErrJSONTooDeep) {
		t.Fatalf("err = %v, want ErrJSONTooDeep", err)
	}
}
