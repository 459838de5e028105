// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaPath = "embed/config.schema.json"

type schemaValidator struct{}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	content, err := embeddedFiles.ReadFile(schemaPath)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaPath, bytes.NewReader(content)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaPath)
})

// validate checks the user-provided YAML against the embedded JSON schema
func (*schemaValidator) validate(content []byte) error {
	slog.Debug("Validating user-provided config file")

	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	var genericContent any
	if err := yaml.Unmarshal(content, &genericContent); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if genericContent == nil {
		return nil
	}

	// the validator expects JSON-decoded values
	raw, err := json.Marshal(genericContent)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	jsonContent, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	if err := schema.Validate(jsonContent); err != nil {
		return fmt.Errorf("validation failed:\n%v", err)
	}
	return nil
}
