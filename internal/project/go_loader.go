package project

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const goDescriptorFuncName = "ProjectDescriptor"

// loadGoDescriptor evaluates a project.go file and converts the map returned
// by ProjectDescriptor() into a Descriptor via the YAML decoder.
func loadGoDescriptor(path string) (Descriptor, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return Descriptor{}, fmt.Errorf("project: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return Descriptor{}, fmt.Errorf("project: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return Descriptor{}, fmt.Errorf("project: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(goDescriptorFuncName)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: %s must define %s() (map[string]any, error): %w", path, goDescriptorFuncName, err)
	}
	raw, err := invokeDescriptorFunc(fnValue)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: %s: %w", path, err)
	}
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: %s: encode descriptor: %w", path, err)
	}
	desc, err := ParseDescriptorYAML(payload)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: %s: %w", path, err)
	}
	return desc, nil
}

func invokeDescriptorFunc(fn reflect.Value) (map[string]any, error) {
	if !fn.IsValid() {
		return nil, fmt.Errorf("missing %s function", goDescriptorFuncName)
	}
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDescriptorFuncName)
	}
	if fn.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must not take arguments", goDescriptorFuncName)
	}
	results := fn.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return (map[string]any[, error])", goDescriptorFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned non-error second value", goDescriptorFuncName)
	}
	value := results[0]
	if value.Kind() == reflect.Map && value.IsNil() {
		return nil, nil
	}
	if m, ok := value.Interface().(map[string]any); ok {
		return m, nil
	}
	if value.Kind() != reflect.Map || value.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%s must return map[string]any", goDescriptorFuncName)
	}
	out := make(map[string]any, value.Len())
	iter := value.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}
