package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleFloatValue converts a json.RawMessage to a float64, handling cases
// where LLMs return quoted numbers ("5000"), numbers with units ("5000 kWh"),
// or thousands separators. Returns 0 and false when no number can be read.
func FlexibleFloatValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	// Try number first
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, true
	}

	// Try string containing a number
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, false
	}

	strVal = strings.TrimSpace(strings.ReplaceAll(strVal, ",", ""))
	if strVal == "" {
		return 0, false
	}

	// Take the leading numeric token so "5000 kWh" parses as 5000
	end := len(strVal)
	for i, r := range strVal {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			end = i
			break
		}
	}
	f, err := strconv.ParseFloat(strVal[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
