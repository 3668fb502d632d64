package prompts

func RegisterAll() {
	RegisterSpec(Spec{
		Name:       PromptTermExtraction,
		Version:    1,
		SchemaName: "medical_terms",
		Schema:     TermListSchema,
		System: `
You are a clinical terminology assistant.
Extract every medical term mentioned in the conversation: conditions, symptoms, findings, procedures, medications and anatomy.
Return each term once, in {{.Language}}, as worded in the conversation.
Return an empty list when no medical terms are present.`,
		User: `
Conversation:
{{.Transcript}}

Respond with a JSON object {"terms": [...]}.`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", func(in Input) string { return in.Transcript }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSectionNote,
		Version:    1,
		SchemaName: "section_note",
		Schema:     SectionNoteSchema,
		System: `
{{if .SystemPrompt}}{{.SystemPrompt}}

{{end}}You are a clinical documentation assistant writing the "{{.SectionName}}" section of a medical note in {{.Language}}.
Use only information stated in the transcript and context provided. Never infer diagnoses, findings or values that were not said.
Apply the doctor's terminology preferences literally: wherever a listed term would appear, write its preferred form instead.
Do not repeat information already written in previous sections.
Cite the transcript: every lineReferences entry points at a transcript line by its [line N] number, with the character span and text of the supporting words.
Return a single JSON object {"noteContent": string, "lineReferences": [{"line_number": int, "start_char": int, "end_char": int, "text": string}]}.`,
		User: `
Section instructions:
{{.SectionPrompt}}
{{if .TermMappings}}
SNOMED CT mappings for terms in this encounter:
{{.TermMappings}}
{{end}}{{if .Preferences}}
Doctor terminology preferences (term -> preferred):
{{.Preferences}}
{{end}}{{if .PriorSections}}
Previous sections (do not repeat):
{{.PriorSections}}
{{end}}
Relevant context:
{{if .Context}}{{.Context}}{{else}}(none retrieved){{end}}

Full transcript:
{{.Transcript}}`,
		Validators: []Validator{
			RequireNonEmpty("SectionName", func(in Input) string { return in.SectionName }),
			RequireNonEmpty("SectionPrompt", func(in Input) string { return in.SectionPrompt }),
			RequireNonEmpty("Transcript", func(in Input) string { return in.Transcript }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptConsistencyScore,
		Version:    1,
		SchemaName: "consistency_score",
		Schema:     ConsistencySchema,
		System: `
You audit clinical notes for hallucinations.
Rate from 1 to 10 how well every claim in the note is supported by the source context: 10 means every claim is supported, 1 means most claims are unsupported.`,
		User: `
Source context:
{{.Context}}

Note:
{{.Content}}

Respond with a JSON object {"factualConsistencyScore": number}.`,
		Validators: []Validator{
			RequireNonEmpty("Content", func(in Input) string { return in.Content }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptPatientInfo,
		Version:    1,
		SchemaName: "patient_info",
		Schema:     PatientInfoSchema,
		System: `
You extract patient demographics from a clinical conversation.
Report only what is explicitly stated. Use null for anything not mentioned. Dates use YYYY-MM-DD.`,
		User: `
Conversation:
{{.Transcript}}

Respond with a JSON object {"firstName", "lastName", "dateOfBirth", "gender"}.`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", func(in Input) string { return in.Transcript }),
		},
	})
}
