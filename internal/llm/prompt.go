package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON object a prompt asks the model to return.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField is one key of the expected output.
type SchemaField struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// BuildExtractionPrompt renders schema and the input text into a single prompt.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\nReturn ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		fmt.Fprintf(&sb, "  %q: %s", field.Name, typeHint)
		if field.Required {
			sb.WriteString(" (required)")
		}
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use only information present in the text. Leave a field empty rather than guessing.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// JobKeywordsSchema asks for the title, company and skill keywords of a job posting.
func JobKeywordsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobKeywords",
		Description: `You read job postings for a candidate preparing for interviews.
Identify the role title, the hiring company, and the skills, tools and domains an interviewer
is likely to ask about. Keywords are short noun phrases such as "Go", "Kubernetes", "system design".
EXCLUDE: benefits, EEO statements, locations, salary.`,
		Fields: []SchemaField{
			{Name: "title", Description: "Job title as written in the posting"},
			{Name: "company", Description: "Hiring company name"},
			{
				Name:        "keywords",
				Type:        `["string"]`,
				Description: "At most 25 distinct skills or topics, most important first",
				Required:    true,
			},
		},
	}
}
