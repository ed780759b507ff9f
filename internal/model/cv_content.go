package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Go models matching cv_content.schema.json, used for rendering and storage.

// Text is a string that also accepts JSON numbers, so years typed as 2021 or
// "2021" decode the same way.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*t = Text(strconv.FormatInt(i, 10))
		return nil
	}
	*t = Text(n.String())
	return nil
}

type CoreCompetencies struct {
	TechnicalSkills []string `json:"technical_skills"`
}

type Experience struct {
	JobTitle     string   `json:"job_title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	StartDate    Text     `json:"start_date,omitempty"`
	EndDate      Text     `json:"end_date,omitempty"`
	Stack        string   `json:"stack,omitempty"`
	Achievements []string `json:"achievements"`
}

type Education struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	Location       string `json:"location,omitempty"`
	GraduationYear Text   `json:"graduation_year,omitempty"`
	StartYear      Text   `json:"start_year,omitempty"`
	Details        string `json:"details,omitempty"`
}

type Course struct {
	Name        string `json:"name"`
	Provider    string `json:"provider,omitempty"`
	Location    string `json:"location,omitempty"`
	Year        Text   `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	Name         string   `json:"name"`
	Period       Text     `json:"period,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Details      string   `json:"details,omitempty"`
}

type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// CVContent is the structured body of a CV, either the user's base content or
// an optimized version of it.
type CVContent struct {
	ProfessionalSummary    string           `json:"professional_summary"`
	CoreCompetencies       CoreCompetencies `json:"core_competencies"`
	ProfessionalExperience []Experience     `json:"professional_experience"`
	Education              []Education      `json:"education"`
	Courses                []Course         `json:"courses,omitempty"`
	KeyProjects            []Project        `json:"key_projects,omitempty"`
	Languages              []Language       `json:"languages,omitempty"`
}

// PersonalData is the contact block printed in the CV header.
type PersonalData struct {
	FullName    string `json:"full_name"`
	JobTitle    string `json:"job_title"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
	Nationality string `json:"nationality"`
	Website     string `json:"website"`
	LinkedIn    string `json:"linkedin"`
	GitHub      string `json:"github"`
}

// PersonalDataPatch carries a partial update; nil fields are left alone.
type PersonalDataPatch struct {
	FullName    *string `json:"full_name"`
	JobTitle    *string `json:"job_title"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	Nationality *string `json:"nationality"`
	Website     *string `json:"website"`
	LinkedIn    *string `json:"linkedin"`
	GitHub      *string `json:"github"`
}

func (p PersonalData) Apply(patch PersonalDataPatch) PersonalData {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FullName, patch.FullName)
	set(&p.JobTitle, patch.JobTitle)
	set(&p.Email, patch.Email)
	set(&p.Phone, patch.Phone)
	set(&p.Location, patch.Location)
	set(&p.Nationality, patch.Nationality)
	set(&p.Website, patch.Website)
	set(&p.LinkedIn, patch.LinkedIn)
	set(&p.GitHub, patch.GitHub)
	return p
}

// Empty reports whether the patch sets nothing.
func (p PersonalDataPatch) Empty() bool {
	return p.FullName == nil && p.JobTitle == nil && p.Email == nil && p.Phone == nil &&
		p.Location == nil && p.Nationality == nil && p.Website == nil && p.LinkedIn == nil && p.GitHub == nil
}
