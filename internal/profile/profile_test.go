package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *Profile {
	return &Profile{
		Name:   "Ada Lovelace",
		Email:  "ada@example.com",
		Skills: []string{"Go", "Distributed systems"},
		Experience: []Experience{
			{Company: "Analytical Engines", Role: "Engineer", Start: "2019", Bullets: []string{"Built the thing"}},
		},
		Education: []Education{{School: "Somerville", Degree: "BSc", Year: "2018"}},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validProfile().Validate())

	missing := validProfile()
	missing.Email = "not-an-email"
	assert.Error(t, missing.Validate())

	noSkills := validProfile()
	noSkills.Skills = nil
	assert.Error(t, noSkills.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"skills": ["Go"]
	}`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": ""}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPromptText(t *testing.T) {
	text := validProfile().PromptText()

	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "Go, Distributed systems")
	assert.Contains(t, text, "Engineer at Analytical Engines")
	assert.Contains(t, text, "(2019 to present)")
	assert.Contains(t, text, "- Built the thing")
}
