package profile

import "strings"

// Profile is the structured personal and professional record the assistant
// speaks for. It is loaded once at startup and never mutated afterwards.
type Profile struct {
	Name       string       `yaml:"name" json:"name"`
	Title      string       `yaml:"title" json:"title"`
	Contact    Contact      `yaml:"contact" json:"contact"`
	Summary    string       `yaml:"summary" json:"summary"`
	Education  []Education  `yaml:"education" json:"education"`
	Experience []Experience `yaml:"experience" json:"experience"`
	Skills     Skills       `yaml:"skills" json:"skills"`
	Projects   []Project    `yaml:"projects" json:"projects"`

	Publications   []Publication   `yaml:"publications,omitempty" json:"publications,omitempty"`
	Certifications []Certification `yaml:"certifications,omitempty" json:"certifications,omitempty"`
	Languages      []Language      `yaml:"languages,omitempty" json:"languages,omitempty"`
	Interests      []string        `yaml:"interests,omitempty" json:"interests,omitempty"`
	AdditionalInfo *AdditionalInfo `yaml:"additional_info,omitempty" json:"additional_info,omitempty"`
}

// Contact holds the ways to reach the profile owner. Only Email and Location
// are required.
type Contact struct {
	Email    string `yaml:"email" json:"email"`
	Location string `yaml:"location" json:"location"`
	Phone    string `yaml:"phone,omitempty" json:"phone,omitempty"`
	LinkedIn string `yaml:"linkedin,omitempty" json:"linkedin,omitempty"`
	GitHub   string `yaml:"github,omitempty" json:"github,omitempty"`
}

type Education struct {
	Degree             string   `yaml:"degree" json:"degree"`
	Field              string   `yaml:"field" json:"field"`
	Institution        string   `yaml:"institution" json:"institution"`
	Location           string   `yaml:"location" json:"location"`
	GraduationDate     string   `yaml:"graduation_date" json:"graduation_date"`
	GPA                string   `yaml:"gpa,omitempty" json:"gpa,omitempty"`
	Honors             []string `yaml:"honors,omitempty" json:"honors,omitempty"`
	RelevantCoursework []string `yaml:"relevant_coursework,omitempty" json:"relevant_coursework,omitempty"`
}

type Experience struct {
	Title        string   `yaml:"title" json:"title"`
	Company      string   `yaml:"company" json:"company"`
	Duration     string   `yaml:"duration" json:"duration"`
	Location     string   `yaml:"location" json:"location"`
	Description  string   `yaml:"description" json:"description"`
	Achievements []string `yaml:"achievements" json:"achievements"`
}

type Project struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Technologies []string `yaml:"technologies" json:"technologies"`
	Highlights   []string `yaml:"highlights" json:"highlights"`
	Link         string   `yaml:"link,omitempty" json:"link,omitempty"`
}

type Publication struct {
	Title string `yaml:"title" json:"title"`
	Venue string `yaml:"venue" json:"venue"`
	Date  string `yaml:"date" json:"date"`
	Link  string `yaml:"link,omitempty" json:"link,omitempty"`
}

type Certification struct {
	Name   string `yaml:"name" json:"name"`
	Issuer string `yaml:"issuer" json:"issuer"`
	Date   string `yaml:"date" json:"date"`
}

type Language struct {
	Language    string `yaml:"language" json:"language"`
	Proficiency string `yaml:"proficiency" json:"proficiency"`
}

// AdditionalInfo carries free-form context; every field is optional.
type AdditionalInfo struct {
	CareerGoals       string   `yaml:"career_goals,omitempty" json:"career_goals,omitempty"`
	Personality       string   `yaml:"personality,omitempty" json:"personality,omitempty"`
	Availability      string   `yaml:"availability,omitempty" json:"availability,omitempty"`
	WorkAuthorization string   `yaml:"work_authorization,omitempty" json:"work_authorization,omitempty"`
	FunFacts          []string `yaml:"fun_facts,omitempty" json:"fun_facts,omitempty"`
}

// FirstName returns the first word of the profile name.
func (p Profile) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Empty reports whether no additional-info field is set.
func (a AdditionalInfo) Empty() bool {
	return a.CareerGoals == "" && a.Personality == "" && a.Availability == "" &&
		a.WorkAuthorization == "" && len(a.FunFacts) == 0
}
