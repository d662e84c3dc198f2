package registry

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nudgekit/nudgekit/pkg/models"
)

// Settings schemas, keyed by node type. Validated at workflow activation so
// the per-event hot path never sees malformed action settings it did not
// already log at activation time. Condition settings errors at runtime still
// evaluate to fail, they never abort the chain.
var settingsSchemas = map[string]string{
	models.NodeTypeAddTag: `{
		"type": "object",
		"required": ["tagName"],
		"properties": {"tagName": {"type": "string", "minLength": 1}}
	}`,
	models.NodeTypeRemoveTag: `{
		"type": "object",
		"required": ["tagName"],
		"properties": {"tagName": {"type": "string", "minLength": 1}}
	}`,
	models.NodeTypeSendEmail: `{
		"type": "object",
		"required": ["subject", "body"],
		"properties": {
			"subject": {"type": "string"},
			"body": {"type": "string"},
			"recipient": {"type": "string"}
		}
	}`,
	models.NodeTypeWebhook: `{
		"type": "object",
		"required": ["webhookUrl"],
		"properties": {
			"webhookUrl": {"type": "string", "format": "uri"},
			"webhookMethod": {"type": "string", "enum": ["POST", "PUT", "PATCH"]},
			"webhookHeaders": {"type": "object"},
			"webhookBody": {"type": "string"}
		}
	}`,
	models.NodeTypeShowModal: `{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"content": {"type": "string"}
		}
	}`,
	models.NodeTypeShowBanner: `{
		"type": "object",
		"properties": {
			"content": {"type": "string"},
			"position": {"type": "string", "enum": ["top", "bottom"]}
		}
	}`,
	models.NodeTypeTrackEvent: `{
		"type": "object",
		"required": ["eventName"],
		"properties": {
			"eventName": {"type": "string", "minLength": 1},
			"properties": {"type": "object"}
		}
	}`,
}

// ValidateSettings checks a node's settings payload against the schema for
// its type. Types without a schema pass, since triggers and conditions carry
// free-form settings validated at evaluation time.
func (r *Registry) ValidateSettings(nodeType string, settings map[string]any) error {
	schema, ok := settingsSchemas[nodeType]
	if !ok {
		return nil
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings for %q: %w", nodeType, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(settingsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to validate settings for %q: %w", nodeType, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid settings for %q: %v", nodeType, result.Errors())
	}

	return nil
}
