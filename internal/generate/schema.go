package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validator is implemented by every artifact type: structural decoding is
// handled by decodeStrict, semantic checks by Validate.
type Validator interface {
	Validate() error
}

// StrategyArtifact is the strategy phase output: the chosen topic and its
// parts, plus the reasoning behind the choice.
type StrategyArtifact struct {
	Topic     string `json:"topic"`
	Problem   string `json:"problem"`
	Solution  string `json:"solution"`
	Rationale string `json:"rationale"`
	PostType  string `json:"post_type"`
}

func (a StrategyArtifact) Validate() error {
	if strings.TrimSpace(a.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(a.Problem) == "" {
		return fmt.Errorf("problem is required")
	}
	if strings.TrimSpace(a.Solution) == "" {
		return fmt.Errorf("solution is required")
	}
	if strings.TrimSpace(a.PostType) == "" {
		return fmt.Errorf("post_type is required")
	}
	return nil
}

// ContentArtifact is the content phase output: the post body and the
// product names it mentions. Mentions are resolved against the catalog
// downstream; the artifact itself only promises they are present.
type ContentArtifact struct {
	Body            string   `json:"body"`
	Hashtags        []string `json:"hashtags"`
	ProductMentions []string `json:"product_mentions"`
	CallToAction    string   `json:"call_to_action"`
}

func (a ContentArtifact) Validate() error {
	if strings.TrimSpace(a.Body) == "" {
		return fmt.Errorf("body is required")
	}
	for i, m := range a.ProductMentions {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("product_mentions[%d] is empty", i)
		}
	}
	return nil
}

// QAArtifact is the quality-check phase output.
type QAArtifact struct {
	Approved    bool     `json:"approved"`
	Issues      []string `json:"issues"`
	RevisedBody string   `json:"revised_body,omitempty"`
}

func (a QAArtifact) Validate() error {
	if !a.Approved && len(a.Issues) == 0 {
		return fmt.Errorf("rejection must list at least one issue")
	}
	return nil
}

// decodeStrict parses raw into v rejecting unknown fields and trailing
// content. Unknown fields are a schema violation, not noise: a model that
// invents fields is a model that may have misread the schema entirely.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing content after JSON object")
	}
	return nil
}

// extractJSON isolates the first complete JSON object from model output
// that may be wrapped in prose or a markdown code fence. It matches braces
// while respecting string literals and escapes; it never rewrites the
// object itself. Returns the input unchanged when no object is found, so
// the decoder reports the real problem.
func extractJSON(raw string) string {
	s := raw

	// Strip a markdown fence if the whole payload sits inside one.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return raw
}
