package tool_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/provisionkit/provision-go/domain/tool"
)

func TestObjectSchema_Validate(t *testing.T) {
	t.Parallel()

	schema := tool.ObjectSchema(map[string]tool.Property{
		"name":   tool.String("Resource name"),
		"region": tool.StringEnum("Region", "us-east-1", "eu-central-1"),
		"count":  tool.Number("How many"),
	}, []string{"name"})

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid input",
			input:   `{"name":"app","region":"us-east-1"}`,
			wantErr: false,
		},
		{
			name:    "missing required field",
			input:   `{"region":"us-east-1"}`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   `{"name":42}`,
			wantErr: true,
		},
		{
			name:    "enum violation",
			input:   `{"name":"app","region":"mars-1"}`,
			wantErr: true,
		},
		{
			name:    "empty input fails required check",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := schema.Validate(json.RawMessage(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, tool.ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput in chain", err)
			}
		})
	}
}

func TestEmptySchema_AcceptsAnything(t *testing.T) {
	t.Parallel()

	schema := tool.EmptySchema()
	for _, input := range []string{``, `{}`, `{"anything":"goes"}`, `[1,2,3]`} {
		if err := schema.Validate(json.RawMessage(input)); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", input, err)
		}
	}
}

func TestSchema_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	schema := tool.ObjectSchema(map[string]tool.Property{
		"key": tool.String("Secret name"),
	}, []string{"key"})

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["type"] != "object" {
		t.Errorf("type = %v, want object", decoded["type"])
	}
	if _, ok := decoded["properties"]; !ok {
		t.Error("properties missing from marshaled schema")
	}
}
