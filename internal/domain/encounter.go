package domain

import "strings"

const (
	LanguageEnglish = "en"
	LanguageFrench  = "fr"
	DefaultLanguage = LanguageEnglish
)

// NormalizeLanguage maps unknown or empty codes to the default.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case LanguageFrench:
		return LanguageFrench
	default:
		return DefaultLanguage
	}
}

// LanguageName is the prompt-facing name of a language code.
func LanguageName(lang string) string {
	if NormalizeLanguage(lang) == LanguageFrench {
		return "French"
	}
	return "English"
}

type EncounterRequest struct {
	EncounterID       string            `json:"encounterId"`
	ClinicID          string            `json:"clinicId"`
	DoctorID          string            `json:"doctorId,omitempty"`
	Language          string            `json:"language,omitempty"`
	SystemPrompt      string            `json:"systemPrompt,omitempty"`
	Transcript        []RawTurn         `json:"encounterTranscript"`
	Sections          []SectionRequest  `json:"sections"`
	DoctorPreferences map[string]string `json:"doctor_preferences,omitempty"`
	PatientInfo       bool              `json:"patientInfo,omitempty"`
}

// PatientInfo holds demographics extracted from the conversation. Nil
// fields were not mentioned.
type PatientInfo struct {
	FirstName   *string `json:"firstName" jsonschema:"oneof_type=string;null" jsonschema_description:"Patient first name, null if not stated"`
	LastName    *string `json:"lastName" jsonschema:"oneof_type=string;null" jsonschema_description:"Patient last name, null if not stated"`
	DateOfBirth *string `json:"dateOfBirth" jsonschema:"oneof_type=string;null" jsonschema_description:"Date of birth as YYYY-MM-DD, null if not stated"`
	Gender      *string `json:"gender" jsonschema:"oneof_type=string;null" jsonschema_description:"Patient gender, null if not stated"`
}

func (p PatientInfo) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DateOfBirth == nil && p.Gender == nil
}
