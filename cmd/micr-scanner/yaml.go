package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseYAML reads a YAML config file for ff. Nested maps are flattened with
// dashes, so
//
//	gemini:
//	  key: abc
//
// sets --gemini-key. Lists set the flag once per element.
func parseYAML(r io.Reader, set func(name, value string) error) error {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decoding yaml config: %w", err)
	}
	return setAll("", doc, set)
}

func setAll(prefix string, doc map[string]any, set func(name, value string) error) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "-" + k
		}
		if err := setValue(name, doc[k], set); err != nil {
			return err
		}
	}
	return nil
}

func setValue(name string, v any, set func(name, value string) error) error {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return setAll(name, val, set)
	case []any:
		for _, item := range val {
			if err := setValue(name, item, set); err != nil {
				return err
			}
		}
		return nil
	default:
		if err := set(name, strings.TrimSpace(fmt.Sprint(val))); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
		return nil
	}
}
