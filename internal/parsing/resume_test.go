package parsing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeChat) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.reply, f.err
}

func (f *fakeChat) ChatModel() string { return "fake-chat" }

const adaReply = `{
	"name": "Ada Lovelace",
	"email": "Ada@Example.com",
	"phone": "+44 20 7946 0000",
	"location": "London",
	"experience": [
		{"role": "Analyst", "company": "Analytical Engines", "start_date": "1842", "end_date": "1843", "type": "Full-time"},
		{"role": "Research Intern", "company": "Royal Society", "start_date": "1840", "end_date": "1841", "type": "Internship"}
	],
	"urls": ["github.com/ada", "https://github.com/ada/"],
	"projects": ["Note G"],
	"interests": ["poetry", ""]
}`

func TestStructure_Success(t *testing.T) {
	chat := &fakeChat{reply: adaReply}
	s := NewStructurer(chat, nil)

	resume, err := s.Structure(context.Background(), "Ada Lovelace\nAnalyst at Analytical Engines")
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", resume.Name)
	assert.Equal(t, "ada@example.com", resume.Email)
	assert.Equal(t, "London", resume.Location)
	require.Len(t, resume.Experience, 2)
	assert.Equal(t, types.EmploymentFullTime, resume.Experience[0].Type)
	assert.Equal(t, types.EmploymentInternship, resume.Experience[1].Type)
	assert.Equal(t, []string{"https://github.com/ada"}, resume.URLs)
	assert.Equal(t, []string{"poetry"}, resume.Interests)

	assert.Equal(t, 1, chat.calls)
	assert.Contains(t, chat.system, `"experience"`)
	assert.Contains(t, chat.system, "Return ONLY valid JSON")
	assert.Contains(t, chat.user, "Analyst at Analytical Engines")
}

func TestStructure_ToleratesCommentaryAndFences(t *testing.T) {
	replies := []string{
		"```json\n" + adaReply + "\n```",
		"Here is the parsed résumé:\n" + adaReply + "\nLet me know if you need anything else.",
		"Sure! ```\n" + adaReply + "\n``` Done.",
		"Filled every {field} as asked:\n" + adaReply,
	}

	for i, reply := range replies {
		t.Run(fmt.Sprintf("reply %d", i), func(t *testing.T) {
			resume, err := NewStructurer(&fakeChat{reply: reply}, nil).Structure(context.Background(), "text")
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", resume.Name)
		})
	}
}

func TestParseResumeJSON_SkipsBracesInProse(t *testing.T) {
	resume, err := ParseResumeJSON("Filled every {field} as asked:\n{\"name\":\"Ada\",\"email\":\"a@x.com\",\"experience\":[]}")
	require.NoError(t, err)
	assert.Equal(t, "Ada", resume.Name)
	assert.Equal(t, "a@x.com", resume.Email)
	assert.Empty(t, resume.Experience)
}

func TestStructure_EmptyExperience(t *testing.T) {
	chat := &fakeChat{reply: `{"name": "Grace Hopper", "email": "grace@navy.mil", "experience": []}`}

	resume, err := NewStructurer(chat, nil).Structure(context.Background(), "Grace Hopper")
	require.NoError(t, err)
	assert.NotNil(t, resume.Experience)
	assert.Empty(t, resume.Experience)
	assert.NotNil(t, resume.URLs)
}

// Every reply missing any of name, email or experience must be rejected.
func TestStructure_MissingRequiredFields(t *testing.T) {
	required := []string{"name", "email", "experience"}
	values := map[string]string{
		"name":       `"Ada"`,
		"email":      `"ada@example.com"`,
		"experience": `[]`,
	}

	for mask := 0; mask < 1<<len(required)-1; mask++ {
		var parts, missing []string
		for i, field := range required {
			if mask&(1<<i) != 0 {
				parts = append(parts, fmt.Sprintf("%q: %s", field, values[field]))
			} else {
				missing = append(missing, field)
			}
		}
		reply := "{" + strings.Join(append(parts, `"phone": "555"`), ", ") + "}"

		t.Run(strings.Join(missing, "+"), func(t *testing.T) {
			_, err := NewStructurer(&fakeChat{reply: reply}, nil).Structure(context.Background(), "text")
			require.Error(t, err)

			var schemaErr *SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			for _, field := range missing {
				assert.Contains(t, schemaErr.Fields, field)
			}
		})
	}
}

func TestStructure_InvalidReplies(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantMsg string
	}{
		{"no json", "I could not read this résumé.", "no JSON object"},
		{"empty", "", "no JSON object"},
		{"object inside array", `[{"name": "Ada"}]`, "does not match"},
		{"experience wrong type", `{"name": "Ada", "email": "a@b.c", "experience": "none"}`, "does not match"},
		{"null name", `{"name": null, "email": "a@b.c", "experience": []}`, "does not match"},
		{"empty name", `{"name": "", "email": "a@b.c", "experience": []}`, "does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStructurer(&fakeChat{reply: tt.reply}, nil).Structure(context.Background(), "text")
			require.Error(t, err)

			var schemaErr *SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestStructure_UpstreamErrorPassesThrough(t *testing.T) {
	upstream := &llm.UpstreamServiceError{Service: llm.ServiceCompletion, StatusCode: 503, Message: "unavailable"}
	chat := &fakeChat{err: upstream}

	_, err := NewStructurer(chat, nil).Structure(context.Background(), "text")
	require.Error(t, err)

	var got *llm.UpstreamServiceError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 503, got.StatusCode)

	var schemaErr *SchemaValidationError
	assert.False(t, errors.As(err, &schemaErr))
}

func TestResumeSchema_RequiredFields(t *testing.T) {
	schema := ResumeSchema()
	assert.Equal(t, []string{"name", "email", "experience"}, schema.RequiredFields())
	assert.NotEmpty(t, schema.Rules)
	assert.NotEmpty(t, schema.Description)
}

func TestSchemaValidationError_Message(t *testing.T) {
	err := &SchemaValidationError{Message: "bad reply", Fields: []string{"name", "email"}}
	assert.Equal(t, "schema validation error: bad reply (fields: name, email)", err.Error())

	cause := errors.New("boom")
	wrapped := &SchemaValidationError{Message: "bad reply", Cause: cause}
	assert.ErrorIs(t, wrapped, cause)
}
