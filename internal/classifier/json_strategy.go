package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"AptScanner/internal/domain"
)

const noReason = "No reason provided"

// JSONStrategy asks for {"decision","reason"} and requires an allow-listed area.
type JSONStrategy struct {
	areas Areas
}

// NewJSONStrategy builds the structured-output strategy.
func NewJSONStrategy(areas Areas) *JSONStrategy {
	return &JSONStrategy{areas: areas}
}

// Name identifies the strategy inside the registry.
func (s *JSONStrategy) Name() string {
	return "json"
}

// Prompt renders the qualification request.
func (s *JSONStrategy) Prompt(title, body string) string {
	var b strings.Builder
	b.WriteString("You are an AI Real Estate Agent filtering NYC apartments.\n\n")
	b.WriteString("TASK: Analyze this listing and provide a JSON response.\n\n")
	b.WriteString("CRITERIA FOR \"SEND\":\n")
	b.WriteString(sharedCriteria)
	fmt.Fprintf(&b, "4. Location is %s only", strings.ToUpper(joinAreas(s.areas.Allowed, " or ")))
	if excluded := joinAreas(s.areas.Excluded, ", "); excluded != "" {
		fmt.Fprintf(&b, " (Exclude %s)", excluded)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "LISTING:\nTitle: %s\nBody: %s\n\n", title, body)
	b.WriteString("OUTPUT FORMAT:\n")
	b.WriteString("You must output strictly valid JSON with no markdown formatting:\n")
	b.WriteString("{\n    \"decision\": \"SEND\" or \"SKIP\",\n    \"reason\": \"Brief explanation of why\"\n}\n")
	return b.String()
}

// Extract decodes the reply. Absent fields get defaults. A reply that is not
// an object, or whose decision is present but not a string (null included),
// is an error.
func (s *JSONStrategy) Extract(reply string) (domain.ClassificationResult, error) {
	raw := stripCodeFence(strings.TrimSpace(reply))

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode reply %q: %w", truncate(raw, 120), err)
	}
	if payload == nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode reply %q: not an object", truncate(raw, 120))
	}

	result := domain.ClassificationResult{Decision: domain.DecisionSkip, Reason: noReason}

	if v, ok := payload["decision"]; ok {
		decision, isString := v.(string)
		if !isString {
			return domain.ClassificationResult{}, fmt.Errorf("decision is %s, not a string", jsonKind(v))
		}
		if strings.ToUpper(strings.TrimSpace(decision)) == string(domain.DecisionSend) {
			result.Decision = domain.DecisionSend
		}
	}

	switch v := payload["reason"].(type) {
	case nil:
	case string:
		result.Reason = v
	default:
		result.Reason = fmt.Sprint(v)
	}
	return result, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case []any:
		return "an array"
	default:
		return "an object"
	}
}

// Fallback sends the listing anyway and notes the error in the reason.
func (s *JSONStrategy) Fallback(err error) domain.ClassificationResult {
	return domain.ClassificationResult{
		Decision: domain.DecisionSend,
		Reason:   "Error: " + err.Error(),
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
