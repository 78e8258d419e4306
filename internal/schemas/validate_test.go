package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJobProfile(t *testing.T) {
	valid := []byte(`{
		"role_title": "Backend Engineer",
		"company": "Acme",
		"skills": ["Go", "Postgres"],
		"requirements": ["5 years experience"]
	}`)
	assert.NoError(t, ValidateJobProfile(valid))
}

func TestValidateJobProfileMissingFields(t *testing.T) {
	err := ValidateJobProfile([]byte(`{"company": "Acme"}`))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Errors)
	assert.Contains(t, verr.Error(), "role_title")
}

func TestValidateJobProfileWrongTypes(t *testing.T) {
	err := ValidateJobProfile([]byte(`{"role_title": "X", "skills": "Go", "requirements": []}`))
	assert.Error(t, err)
}

func TestValidateMatchReport(t *testing.T) {
	valid := []byte(`{
		"matches": [
			{"requirement": "Go experience", "evidence": "5 years of Go", "score": 0.9}
		],
		"overall_score": 0.8
	}`)
	assert.NoError(t, ValidateMatchReport(valid))

	outOfRange := []byte(`{"matches": [], "overall_score": 1.5}`)
	assert.Error(t, ValidateMatchReport(outOfRange))
}

func TestValidateUnknownSchema(t *testing.T) {
	err := Validate("nonexistent", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateMalformedDocument(t *testing.T) {
	err := ValidateJobProfile([]byte(`{not json`))
	assert.Error(t, err)
}
