package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain string", `"electricity"`, "electricity"},
		{"integer", `5000`, "5000"},
		{"float", `0.453`, "0.453"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlexibleStringValue(json.RawMessage(tt.raw))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
		ok       bool
	}{
		{"plain number", `5000`, 5000, true},
		{"float", `2.27`, 2.27, true},
		{"quoted number", `"5000"`, 5000, true},
		{"number with unit", `"5000 kWh"`, 5000, true},
		{"thousands separators", `"1,250.5"`, 1250.5, true},
		{"negative", `"-3.5"`, -3.5, true},
		{"null", `null`, 0, false},
		{"empty", ``, 0, false},
		{"non-numeric string", `"a lot"`, 0, false},
		{"object", `{"value": 5}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleFloatValue(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 0.0001)
			}
		})
	}
}
