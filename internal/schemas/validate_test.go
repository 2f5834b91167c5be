package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_JobDescription(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		field   string
	}{
		{"full payload", `{"title":"SWE","company":"Acme","description":"Build","keywords":["Go"]}`, false, ""},
		{"description only", `{"description":"Build things"}`, false, ""},
		{"missing description", `{"title":"SWE"}`, true, "(root)"},
		{"empty description", `{"description":""}`, true, "description"},
		{"keywords wrong type", `{"description":"x","keywords":"Go"}`, true, "keywords"},
		{"empty keyword", `{"description":"x","keywords":[""]}`, true, "keywords.0"},
		{"unknown field", `{"description":"x","salary":1}`, true, "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(JobDescription, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, JobDescription, ve.Schema)
			assert.Equal(t, tt.field, ve.First().Field)
		})
	}
}

func TestValidate_NotJSON(t *testing.T) {
	err := Validate(JobDescription, []byte("{not json"))

	var le *SchemaLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("resume", []byte(`{}`))

	var le *SchemaLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "unknown schema")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))

	err := ValidateJSONString(schema, `{"name":1}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.First().Field)
	assert.Contains(t, err.Error(), "1. name:")
}

func TestValidationError_FirstWhenEmpty(t *testing.T) {
	assert.Equal(t, "(root)", (&ValidationError{}).First().Field)
}
