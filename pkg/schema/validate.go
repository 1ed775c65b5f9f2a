package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed session-report-v1.json
var sessionReportSchema []byte

// ValidateJSON checks a serialized report document against the embedded
// JSON Schema. The returned error lists every violation.
func ValidateJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(sessionReportSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("document does not conform to session-report-v1:")
	for _, desc := range result.Errors() {
		sb.WriteString(fmt.Sprintf("\n  - %s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%s", sb.String())
}
