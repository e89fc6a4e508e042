package verdict

import (
	"fmt"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

const systemPrompt = "You are a rigorous fact-checking analyst. Evaluate claims strictly against the evidence provided and respond only in the JSON format requested."

// buildVerdictPrompt renders the claim and its evidence bundle into the
// classification prompt. Verified-claim matches arrive inside the evidence
// list already, marked by their internal domain.
func buildVerdictPrompt(claimText string, evidence []models.EvidenceItem) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("CLAIM TO VERIFY:\n%s\n\n", claimText))

	if len(evidence) == 0 {
		sb.WriteString("EVIDENCE: none available. Classify based on your general knowledge, ")
		sb.WriteString("use a low confidence, and say in the explanation that no external evidence was found.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("EVIDENCE (%d items, most relevant first):\n", len(evidence)))
		for i, item := range evidence {
			sb.WriteString(fmt.Sprintf("%d. [%s | relevance %.2f] %s\n   URL: %s\n   %s\n",
				i+1, item.Domain, item.RelevanceScore, item.Title, item.URL, item.Snippet))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("CLASSIFICATION RULES:\n")
	sb.WriteString("- Verified: the evidence substantiates the claim\n")
	sb.WriteString("- Debunked: the evidence contradicts the claim\n")
	sb.WriteString("- Misleading: the claim mixes accurate and inaccurate elements, or lacks critical context\n")
	sb.WriteString("- Unverified: the evidence is insufficient to decide\n\n")

	sb.WriteString("Respond with a single JSON object, no other text:\n")
	sb.WriteString(`{"status": "Verified|Debunked|Misleading|Unverified", `)
	sb.WriteString(`"confidence": 0.0, `)
	sb.WriteString(`"explanation": "one concise paragraph", `)
	sb.WriteString(`"key_evidence_points": ["..."], `)
	sb.WriteString(`"sources": ["only URLs copied verbatim from the evidence above"]}`)

	return sb.String()
}
