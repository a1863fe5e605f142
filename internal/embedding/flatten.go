package embedding

import (
	"strings"

	"github.com/jonathan/candidate-pipeline/internal/types"
)

// Flatten renders a parsed résumé as the text that gets embedded.
// The output depends only on the résumé, so equal résumés always yield equal text.
//
//	Name: Ada Lovelace
//	Email: ada@example.com
//	Analyst at Analytical Engines 1842–1843 (full_time)
//	Projects: Note G
func Flatten(r *types.ParsedResume) string {
	if r == nil {
		return ""
	}

	var lines []string
	addLabeled := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	addList := func(label string, values []string) {
		var kept []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			lines = append(lines, label+": "+strings.Join(kept, ", "))
		}
	}

	addLabeled("Name", r.Name)
	addLabeled("Email", r.Email)
	addLabeled("Phone", r.Phone)
	addLabeled("Location", r.Location)

	for _, exp := range r.Experience {
		if line := experienceLine(exp); line != "" {
			lines = append(lines, line)
		}
	}

	addList("Projects", r.Projects)
	addList("Certifications", r.Certifications)
	addList("Awards", r.Awards)
	addList("Interests", r.Interests)
	addList("URLs", r.URLs)

	return strings.Join(lines, "\n")
}

// experienceLine renders "<role> at <company> <start>–<end> (<type>)".
// A missing start shows as "?" and a missing end as "present"; with neither the dates are left out.
func experienceLine(exp types.Experience) string {
	role := strings.TrimSpace(exp.Role)
	company := strings.TrimSpace(exp.Company)

	var sb strings.Builder
	switch {
	case role != "" && company != "":
		sb.WriteString(role + " at " + company)
	case role != "":
		sb.WriteString(role)
	case company != "":
		sb.WriteString(company)
	default:
		return ""
	}

	start := strings.TrimSpace(exp.StartDate)
	end := strings.TrimSpace(exp.EndDate)
	if start != "" || end != "" {
		if start == "" {
			start = "?"
		}
		if end == "" {
			end = "present"
		}
		sb.WriteString(" " + start + "–" + end)
	}

	if exp.Type != "" {
		sb.WriteString(" (" + string(exp.Type) + ")")
	}
	return sb.String()
}
