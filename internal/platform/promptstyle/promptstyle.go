package promptstyle

import "strings"

const marker = "NOTEGEN_PROMPT_STYLE_V1"

// ApplySystem prepends a short clinical-safety guidance block to system
// prompts. It is applied once; prompts already carrying the marker are
// returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou support clinicians documenting a patient encounter.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nTreat the transcript as the only source of truth; do not invent facts or citations.")
	b.WriteString("\nIf information is missing, leave it out rather than guessing.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON value that conforms to the schema and contains no extra keys or commentary.")
	} else {
		b.WriteString("\nBe concise and use standard clinical phrasing.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
