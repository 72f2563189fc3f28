// Package schema provides JSON schema validation for calcheck suite files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/calcheck/schema"
)

var (
	suiteSchema *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles the embedded schema once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		data, err := schemafs.FS.ReadFile(schemafs.SuiteSchema)
		if err != nil {
			compileErr = fmt.Errorf("read suite schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal suite schema: %w", err)
			return
		}

		if err := compiler.AddResource(schemafs.SuiteSchema, doc); err != nil {
			compileErr = fmt.Errorf("add suite schema resource: %w", err)
			return
		}

		suiteSchema, err = compiler.Compile(schemafs.SuiteSchema)
		if err != nil {
			compileErr = fmt.Errorf("compile suite schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateSuite validates a decoded suite document, as produced by the
// YAML or JSON decoders, against the suite schema.
//
// Non-finite numbers have no JSON form; they are validated as strings, so
// they are accepted only where the schema allows any value.
func ValidateSuite(doc any) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	data, err := json.Marshal(jsonSafe(doc))
	if err != nil {
		return fmt.Errorf("encode suite: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("encode suite: %w", err)
	}

	if err := suiteSchema.Validate(v); err != nil {
		return fmt.Errorf("suite validation failed: %w", err)
	}

	return nil
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonSafe(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = jsonSafe(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonSafe(e)
		}
		return out
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Sprint(x)
		}
		return x
	default:
		return v
	}
}
