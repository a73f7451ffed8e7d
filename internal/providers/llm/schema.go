package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaError lists the fields of a model response that did not match the expected shape.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "model output does not match schema: " + strings.Join(e.Problems, "; ")
}

// DecodeValidated extracts JSON from model output, checks it against schema and unmarshals it into dst.
func DecodeValidated(output, schema string, dst any) error {
	raw, err := ExtractJSON(output)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("validate model output: %w", err)
	}
	if !result.Valid() {
		se := &SchemaError{}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			se.Problems = append(se.Problems, field+": "+desc.Description())
		}
		return se
	}
	return json.Unmarshal([]byte(raw), dst)
}
