package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Output language name, e.g. "English".
	Language string
	// Caller-supplied instructions prepended to the section prompt.
	SystemPrompt string
	// Section
	SectionName   string
	SectionPrompt string
	// Grounding
	Transcript    string
	Context       string
	TermMappings  string
	Preferences   string
	PriorSections string
	// Consistency scoring
	Content string
}
