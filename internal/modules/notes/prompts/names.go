package prompts

type PromptName string

const (
	PromptTermExtraction   PromptName = "term_extraction"
	PromptSectionNote      PromptName = "section_note"
	PromptConsistencyScore PromptName = "consistency_score"
	PromptPatientInfo      PromptName = "patient_info"
)
