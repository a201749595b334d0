// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/agaheman/ReqRepTransformation/internal/version"
	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/payload"
)

// isJSONValue checks if a string represents a JSON value (not a plain string)
func isJSONValue(value string) bool {
	value = strings.TrimSpace(value)

	// Check for quoted strings (JSON strings)
	if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
		return true
	}

	if value == "true" || value == "false" || value == "null" {
		return true
	}

	// Check for numbers (integers or floats, optionally signed or exponent form)
	if len(value) > 0 {
		first := value[0]
		if (first >= '0' && first <= '9') || first == '-' || first == '+' {
			isNumber := true
			for _, r := range value {
				if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
					isNumber = false
					break
				}
			}
			if isNumber {
				return true
			}
		}
	}

	// Check for objects or arrays
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		return true
	}
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		return true
	}

	// Default to plain string
	return false
}

// jsonDocument fetches the parsed body document, or nil when there is
// nothing to mutate.
func jsonDocument(msg *message.Buffered) (*payload.JSON, error) {
	doc, err := msg.Body().JSON()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// jsonBody gates JSON transforms: the body must exist and classify as JSON.
// The parse itself is deferred to Apply.
func jsonBody(msg *message.Buffered) bool {
	return msg.Body().HasBody() && msg.Body().IsJSON()
}

// setDocumentValue writes value at path, treating value as raw JSON when it
// looks like one (quoted string, number, boolean, object, array) and as a
// plain string otherwise.
func setDocumentValue(doc *payload.JSON, path, value string) error {
	if isJSONValue(value) {
		return doc.SetRaw(path, []byte(value))
	}
	return doc.Set(path, value)
}

// jsonFieldAdd sets a field on the body document, creating it if absent.
// Params: path (required), value.
type jsonFieldAdd struct {
	path, value string
}

// Name implements [Transform.Name].
func (t *jsonFieldAdd) Name() string { return "json-field-add" }

// Configure implements [Transform.Configure].
func (t *jsonFieldAdd) Configure(params Params) error {
	path, err := params.RequiredString("path")
	if err != nil {
		return err
	}
	t.path = path
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jsonFieldAdd) ShouldApply(msg *message.Buffered) bool { return jsonBody(msg) }

// Apply implements [Buffered.Apply].
func (t *jsonFieldAdd) Apply(_ context.Context, msg *message.Buffered) error {
	doc, err := jsonDocument(msg)
	if err != nil || doc == nil {
		return err
	}
	return setDocumentValue(doc, t.path, t.value)
}

// jsonFieldRemove deletes a field from the body document.
// Params: path (required).
type jsonFieldRemove struct {
	path string
}

// Name implements [Transform.Name].
func (t *jsonFieldRemove) Name() string { return "json-field-remove" }

// Configure implements [Transform.Configure].
func (t *jsonFieldRemove) Configure(params Params) error {
	path, err := params.RequiredString("path")
	if err != nil {
		return err
	}
	t.path = path
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jsonFieldRemove) ShouldApply(msg *message.Buffered) bool { return jsonBody(msg) }

// Apply implements [Buffered.Apply].
func (t *jsonFieldRemove) Apply(_ context.Context, msg *message.Buffered) error {
	doc, err := jsonDocument(msg)
	if err != nil || doc == nil {
		return err
	}
	return doc.Delete(t.path)
}

// jsonFieldRename moves a field to a new name, leaving the document
// untouched when the source is absent. Params: from (required), to (required).
type jsonFieldRename struct {
	from, to string
}

// Name implements [Transform.Name].
func (t *jsonFieldRename) Name() string { return "json-field-rename" }

// Configure implements [Transform.Configure].
func (t *jsonFieldRename) Configure(params Params) error {
	from, err := params.RequiredString("from")
	if err != nil {
		return err
	}
	to, err := params.RequiredString("to")
	if err != nil {
		return err
	}
	t.from, t.to = from, to
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jsonFieldRename) ShouldApply(msg *message.Buffered) bool { return jsonBody(msg) }

// Apply implements [Buffered.Apply].
func (t *jsonFieldRename) Apply(_ context.Context, msg *message.Buffered) error {
	doc, err := jsonDocument(msg)
	if err != nil || doc == nil {
		return err
	}
	return doc.Rename(t.from, t.to)
}

// jsonPathSet writes a value at a nested path, creating intermediate objects
// as needed. Params: path (required, dotted), value.
type jsonPathSet struct {
	path, value string
}

// Name implements [Transform.Name].
func (t *jsonPathSet) Name() string { return "json-path-set" }

// Configure implements [Transform.Configure].
func (t *jsonPathSet) Configure(params Params) error {
	path, err := params.RequiredString("path")
	if err != nil {
		return err
	}
	t.path = path
	t.value = params.String("value", "")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jsonPathSet) ShouldApply(msg *message.Buffered) bool { return jsonBody(msg) }

// Apply implements [Buffered.Apply].
func (t *jsonPathSet) Apply(_ context.Context, msg *message.Buffered) error {
	doc, err := jsonDocument(msg)
	if err != nil || doc == nil {
		return err
	}
	return setDocumentValue(doc, t.path, t.value)
}

// gatewayMetadata injects a top-level object recording that the gateway
// processed the message: the gateway version, the processing time, and a
// fresh request identifier. Params: field (default "_gateway"), version
// (default: the build version).
type gatewayMetadata struct {
	field   string
	version string
}

type gatewayMetadataBody struct {
	Version     string `json:"version"`
	ProcessedAt string `json:"processedAt"`
	RequestID   string `json:"requestId"`
}

// Name implements [Transform.Name].
func (t *gatewayMetadata) Name() string { return "gateway-metadata" }

// Configure implements [Transform.Configure].
func (t *gatewayMetadata) Configure(params Params) error {
	t.field = params.String("field", "_gateway")
	t.version = params.String("version", version.Version)
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *gatewayMetadata) ShouldApply(msg *message.Buffered) bool { return jsonBody(msg) }

// Apply implements [Buffered.Apply].
func (t *gatewayMetadata) Apply(_ context.Context, msg *message.Buffered) error {
	doc, err := jsonDocument(msg)
	if err != nil || doc == nil {
		return err
	}
	meta, err := json.Marshal(gatewayMetadataBody{
		Version:     t.version,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		RequestID:   newHexID(),
	})
	if err != nil {
		return err
	}
	return doc.SetRaw(t.field, meta)
}
