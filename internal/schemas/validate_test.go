package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notesSchema = "notes.schema.json"

func validNotes() map[string]any {
	return map[string]any{
		"title":            "Weekly sync",
		"topics_discussed": []string{"Roadmap"},
		"decisions_made":   []string{},
		"action_items":     []string{"Speaker A: send the deck"},
	}
}

func TestValidateDocument_Valid(t *testing.T) {
	assert.NoError(t, ValidateDocument(notesSchema, validNotes()))
}

func TestValidateDocument_OptionalKeyPoints(t *testing.T) {
	doc := validNotes()
	doc["key_points"] = []string{"Budget"}
	assert.NoError(t, ValidateDocument(notesSchema, doc))
}

func TestValidateDocument_MissingRequiredKeys(t *testing.T) {
	doc := validNotes()
	delete(doc, "title")
	delete(doc, "action_items")

	err := ValidateDocument(notesSchema, doc)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Len(t, validationErr.Errors, 2)
	for _, fe := range validationErr.Errors {
		assert.Equal(t, "(root)", fe.Field)
	}
}

func TestValidateDocument_WrongType(t *testing.T) {
	doc := validNotes()
	doc["decisions_made"] = "none"

	err := ValidateDocument(notesSchema, doc)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "decisions_made", validationErr.Errors[0].Field)
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	err := ValidateDocument("missing.schema.json", validNotes())

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "error should be SchemaLoadError, got %T", err)
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"age": 30}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{ not json`, `{}`)

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "title", Message: "is required"},
			{Field: "action_items", Message: "must be an array"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "1. title: is required")
	assert.Contains(t, errorMsg, "2. action_items: must be an array")
}
