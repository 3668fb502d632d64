package prompts

import (
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
)

type TermListOutput struct {
	Terms []string `json:"terms" jsonschema_description:"Medical terms mentioned in the conversation"`
}

type LineReferenceOutput struct {
	LineNumber int    `json:"line_number" jsonschema_description:"Transcript line number as shown in [line N]"`
	StartChar  int    `json:"start_char" jsonschema_description:"Start offset of the cited text within the line"`
	EndChar    int    `json:"end_char" jsonschema_description:"End offset of the cited text within the line"`
	Text       string `json:"text" jsonschema_description:"The cited text"`
}

type SectionNoteOutput struct {
	NoteContent    string                `json:"noteContent" jsonschema_description:"Section text"`
	LineReferences []LineReferenceOutput `json:"lineReferences" jsonschema_description:"Transcript citations supporting the section"`
}

type ConsistencyOutput struct {
	FactualConsistencyScore float64 `json:"factualConsistencyScore" jsonschema_description:"1 to 10"`
}

func TermListSchema() map[string]any    { return llm.GenerateSchema[TermListOutput]() }
func SectionNoteSchema() map[string]any { return llm.GenerateSchema[SectionNoteOutput]() }
func ConsistencySchema() map[string]any { return llm.GenerateSchema[ConsistencyOutput]() }
func PatientInfoSchema() map[string]any { return llm.GenerateSchema[domain.PatientInfo]() }
