package core

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"
)

// ExtractSecurityAlert returns the alert fields of an Advanced Security
// "alert created" delivery. It reports false for any other event type or when
// the document has no resource object.
func ExtractSecurityAlert(eventType string, document any) (SecurityAlert, bool) {
	if eventType != EventTypeSecurityAlertCreated {
		return SecurityAlert{}, false
	}
	root, ok := document.(map[string]any)
	if !ok {
		return SecurityAlert{}, false
	}
	resource, ok := root["resource"].(map[string]any)
	if !ok {
		return SecurityAlert{}, false
	}

	alert := SecurityAlert{
		AlertID:  integerField(resource, "alertId"),
		RuleID:   stringField(resource, "ruleId"),
		RuleName: stringField(resource, "ruleName"),
		Severity: stringField(resource, "severity"),
		State:    stringField(resource, "state"),
		Branch:   stringField(resource, "branch"),
		AlertURL: stringField(resource, "url"),
	}
	if repository, ok := resource["repository"].(map[string]any); ok {
		alert.RepositoryName = stringField(repository, "name")
	}
	return alert, true
}

// DecodeDocument parses a raw body keeping numbers exact.
func DecodeDocument(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, ErrInvalidPayload
	}
	return document, nil
}

func stringField(values map[string]any, key string) *string {
	value, ok := values[key].(string)
	if !ok {
		return nil
	}
	return &value
}

func integerField(values map[string]any, key string) *int64 {
	switch typed := values[key].(type) {
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return &parsed
		}
		parsed, err := typed.Float64()
		if err != nil {
			return nil
		}
		return integralFloat(parsed)
	case float64:
		return integralFloat(typed)
	case string:
		number := json.Number(strings.TrimSpace(typed))
		if parsed, err := number.Int64(); err == nil {
			return &parsed
		}
	}
	return nil
}

func integralFloat(value float64) *int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return nil
	}
	if value > math.MaxInt64 || value < math.MinInt64 {
		return nil
	}
	parsed := int64(value)
	return &parsed
}
