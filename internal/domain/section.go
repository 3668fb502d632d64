package domain

import "time"

type SectionRequest struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	Prompt     string `json:"prompt"`
	Order      int    `json:"order"`
}

// LineReference cites a character span of one transcript line.
type LineReference struct {
	LineNumber int    `json:"line_number"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Text       string `json:"text"`
	Speaker    string `json:"speaker,omitempty"`
}

type SectionStatus string

const (
	SectionSuccess SectionStatus = "SUCCESS"
	SectionFailed  SectionStatus = "FAILED"
)

// SectionResult is the terminal outcome of generating one section.
type SectionResult struct {
	SectionID          string          `json:"section_id"`
	SectionName        string          `json:"section_name"`
	TemplateID         string          `json:"template_id,omitempty"`
	Status             SectionStatus   `json:"status"`
	Content            string          `json:"content"`
	LineReferences     []LineReference `json:"line_references"`
	TermMappings       []TermMapping   `json:"term_mappings"`
	ConfidenceScore    float64         `json:"confidence_score"`
	AttemptCount       int             `json:"attempt_count"`
	ProcessingTime     time.Duration   `json:"processing_time"`
	Language           string          `json:"language,omitempty"`
	PreferencesApplied bool            `json:"preferences_applied"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	ErrorTrace         string          `json:"error_trace,omitempty"`
}

func (r SectionResult) Succeeded() bool { return r.Status == SectionSuccess }
