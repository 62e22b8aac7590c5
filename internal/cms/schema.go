package cms

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidRecord reports a record missing fields the CMS requires.
var ErrInvalidRecord = errors.New("invalid record")

//go:embed schemas/*.json
var schemaFiles embed.FS

// Record kinds, named after their schema file.
const (
	KindWebTemplate    = "web-template"
	KindContentSnippet = "content-snippet"
	KindWebPage        = "web-page"
	KindWebFile        = "web-file"
)

const schemaBaseURL = "https://portalsync.invalid/schemas/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	kinds := []string{KindWebTemplate, KindContentSnippet, KindWebPage, KindWebFile}
	for _, kind := range kinds {
		raw, err := schemaFiles.ReadFile("schemas/" + kind + ".json")
		if err != nil {
			schemasErr = fmt.Errorf("reading %s schema: %w", kind, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemasErr = fmt.Errorf("parsing %s schema: %w", kind, err)
			return
		}
		if err := c.AddResource(schemaBaseURL+kind+".json", doc); err != nil {
			schemasErr = fmt.Errorf("adding %s schema: %w", kind, err)
			return
		}
	}
	compiled := make(map[string]*jsonschema.Schema, len(kinds))
	for _, kind := range kinds {
		sch, err := c.Compile(schemaBaseURL + kind + ".json")
		if err != nil {
			schemasErr = fmt.Errorf("compiling %s schema: %w", kind, err)
			return
		}
		compiled[kind] = sch
	}
	schemas = compiled
}

// ValidateRecord checks that v, once encoded, carries the fields the CMS
// requires for a record of the given kind.
func ValidateRecord(kind string, v any) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	sch, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("no schema for record kind %q", kind)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, kind, err)
	}
	return nil
}
