package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLenient(t *testing.T) {
	c, err := Decode(map[string]any{
		"professional_summary": "Backend engineer",
		"education": []any{
			map[string]any{"degree": "BSc", "institution": "Uni", "graduation_year": 2019},
		},
		"unknown_section": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Backend engineer", c.ProfessionalSummary)
	require.Len(t, c.Education, 1)
	assert.Equal(t, Text("2019"), c.Education[0].GraduationYear)
	assert.Empty(t, c.ProfessionalExperience)
	assert.Empty(t, c.CoreCompetencies.TechnicalSkills)
}

func TestDecodeNil(t *testing.T) {
	c, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, &CVContent{}, c)
}

func TestDecodeWrongShape(t *testing.T) {
	_, err := Decode(map[string]any{"professional_experience": "ten years at Acme"})
	assert.Error(t, err)
}

func TestToMapRoundTripKeepsExperience(t *testing.T) {
	in := &CVContent{
		ProfessionalSummary:    "s",
		ProfessionalExperience: []Experience{{JobTitle: "Dev", Company: "Acme", Achievements: []string{"a"}}},
	}
	m, err := in.ToMap()
	require.NoError(t, err)
	exp, ok := m["professional_experience"].([]any)
	require.True(t, ok)
	assert.Len(t, exp, 1)
}

func TestPersonalDataApply(t *testing.T) {
	name := "Ada Lovelace"
	empty := ""
	base := PersonalData{FullName: "Ada", Phone: "123", GitHub: "ada"}

	got := base.Apply(PersonalDataPatch{FullName: &name, GitHub: &empty})

	assert.Equal(t, "Ada Lovelace", got.FullName)
	assert.Equal(t, "123", got.Phone)
	assert.Equal(t, "", got.GitHub)
	assert.Equal(t, "Ada", base.FullName)
	assert.True(t, PersonalDataPatch{}.Empty())
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, string(Schema), "professional_experience")
}
