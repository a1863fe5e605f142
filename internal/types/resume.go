// Package types provides type definitions for structured data used throughout the candidate pipeline.
package types

import (
	"strings"
)

// EmploymentType classifies an experience entry
type EmploymentType string

// EmploymentType constants
const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentInternship EmploymentType = "internship"
)

// NormalizeEmploymentType maps free-form model output onto the two supported values.
// Anything mentioning an internship is an internship; everything else is full time.
func NormalizeEmploymentType(raw string) EmploymentType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(lower, "intern") {
		return EmploymentInternship
	}
	return EmploymentFullTime
}

// Experience is a single role on a résumé
type Experience struct {
	Role      string         `json:"role"`
	Company   string         `json:"company"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Type      EmploymentType `json:"type"`
}

// ParsedResume is the structured profile extracted from résumé text
type ParsedResume struct {
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone,omitempty"`
	Location       string       `json:"location,omitempty"`
	Experience     []Experience `json:"experience"`
	URLs           []string     `json:"urls"`
	Projects       []string     `json:"projects,omitempty"`
	Certifications []string     `json:"certifications,omitempty"`
	Awards         []string     `json:"awards,omitempty"`
	Interests      []string     `json:"interests,omitempty"`
}

// Normalize trims string fields, drops empty list entries and coerces employment types.
// Experience and URLs are never nil after normalization so they serialize as arrays.
func (p *ParsedResume) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Location = strings.TrimSpace(p.Location)

	experience := make([]Experience, 0, len(p.Experience))
	for _, exp := range p.Experience {
		exp.Role = strings.TrimSpace(exp.Role)
		exp.Company = strings.TrimSpace(exp.Company)
		exp.StartDate = strings.TrimSpace(exp.StartDate)
		exp.EndDate = strings.TrimSpace(exp.EndDate)
		exp.Type = NormalizeEmploymentType(string(exp.Type))
		if exp.Role == "" && exp.Company == "" {
			continue
		}
		experience = append(experience, exp)
	}
	p.Experience = experience

	p.URLs = compactStrings(p.URLs)
	if p.URLs == nil {
		p.URLs = []string{}
	}
	p.Projects = compactStrings(p.Projects)
	p.Certifications = compactStrings(p.Certifications)
	p.Awards = compactStrings(p.Awards)
	p.Interests = compactStrings(p.Interests)
}

func compactStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
