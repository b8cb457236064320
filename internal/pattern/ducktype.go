package pattern

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/andreasjansson/cctr/models"
)

// DuckType classifies raw captured text for an `auto` hole by priority:
// object, array, string-literal, bool, null, number, fallback string.
func DuckType(raw string) models.Kind {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") {
		if n, err := ScanObject(trimmed); err == nil && n == len(trimmed) {
			return models.KindObject
		}
	}
	if strings.HasPrefix(trimmed, "[") {
		if n, err := ScanArray(trimmed); err == nil && n == len(trimmed) {
			return models.KindArray
		}
	}
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return models.KindString
	}
	if trimmed == "true" || trimmed == "false" {
		return models.KindBool
	}
	if trimmed == "null" {
		return models.KindNull
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return models.KindNumber
	}
	return models.KindString
}

// ParseValue converts raw captured text for a hole of the given Kind into a
// Value. For auto holes, call DuckType first and pass the resolved Kind.
func ParseValue(raw string, kind models.Kind) (models.Value, error) {
	switch kind {
	case models.KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return models.Value{}, err
		}
		return models.Number(f), nil
	case models.KindBool:
		return models.Bool(strings.TrimSpace(raw) == "true"), nil
	case models.KindNull:
		return models.Null(), nil
	case models.KindString:
		trimmed := strings.TrimSpace(raw)
		if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
			var s string
			if err := jsonUnquote(trimmed, &s); err == nil {
				return models.String(s), nil
			}
		}
		return models.String(raw), nil
	case models.KindArray, models.KindObject:
		res := gjson.Parse(raw)
		return gjsonToValue(res), nil
	}
	return models.String(raw), nil
}

func gjsonToValue(r gjson.Result) models.Value {
	switch r.Type {
	case gjson.Null:
		return models.Null()
	case gjson.False:
		return models.Bool(false)
	case gjson.True:
		return models.Bool(true)
	case gjson.Number:
		return models.Number(r.Num)
	case gjson.String:
		return models.String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			var vals []models.Value
			r.ForEach(func(_, v gjson.Result) bool {
				vals = append(vals, gjsonToValue(v))
				return true
			})
			return models.Array(vals)
		}
		obj := models.NewObject()
		r.ForEach(func(k, v gjson.Result) bool {
			obj.Set(k.Str, gjsonToValue(v))
			return true
		})
		return models.ObjectValue(obj)
	}
	return models.Null()
}

// jsonUnquote unescapes a double-quoted JSON string literal.
func jsonUnquote(quoted string, out *string) error {
	res := gjson.Parse(quoted)
	if res.Type != gjson.String {
		return errNotAString
	}
	*out = res.Str
	return nil
}

var errNotAString = &unquoteError{}

type unquoteError struct{}

func (e *unquoteError) Error() string { return "not a JSON string literal" }
