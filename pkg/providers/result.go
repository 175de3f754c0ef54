package providers

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeResult turns a loosely typed payload (decoded JSON, YAML) into an
// ActionResult. Scalar variables are stringified; nested values become JSON.
func DecodeResult(raw map[string]any) (domain.ActionResult, error) {
	var res domain.ActionResult
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringify,
		Result:     &res,
		TagName:    "json",
	})
	if err != nil {
		return res, err
	}
	if err := dec.Decode(raw); err != nil {
		return res, fmt.Errorf("invalid action result: %w", err)
	}
	return res, nil
}

// DecodeVariables converts an arbitrary map into session variables.
func DecodeVariables(raw map[string]any) (map[string]string, error) {
	vars := map[string]string{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringify,
		Result:     &vars,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}
	return vars, nil
}

func stringify(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || data == nil {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return data, nil
	case reflect.Map, reflect.Slice, reflect.Struct:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", reflect.ValueOf(data).Float()), nil
	default:
		return fmt.Sprint(data), nil
	}
}
