package platform

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	configResponseSchema = `{
  "type": "object",
  "required": ["ok"],
  "properties": {
    "ok": {"type": "boolean"},
    "data": {"type": ["object", "null"]}
  }
}`

	saveResponseSchema = `{
  "type": "object",
  "required": ["ok"],
  "properties": {
    "ok": {"type": "boolean"}
  }
}`

	previewResponseSchema = `{
  "type": "object",
  "properties": {
    "ok": {"type": "boolean"},
    "results": {"type": "array"},
    "errors": {"type": "array"}
  }
}`
)

var (
	configSchema  = jsonschema.MustCompileString("https://gema.local/schemas/evaluation_config.schema.json", configResponseSchema)
	saveSchema    = jsonschema.MustCompileString("https://gema.local/schemas/evaluation_config_save.schema.json", saveResponseSchema)
	previewSchema = jsonschema.MustCompileString("https://gema.local/schemas/evaluation_preview.schema.json", previewResponseSchema)
)
