package generate

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"topic":"a → b"}`,
			want: `{"topic":"a → b"}`,
		},
		{
			name: "markdown fence",
			in:   "```json\n{\"topic\":\"a\"}\n```",
			want: "{\"topic\":\"a\"}",
		},
		{
			name: "prose around object",
			in:   `Aquí está el resultado: {"topic":"a"} espero que sirva.`,
			want: `{"topic":"a"}`,
		},
		{
			name: "nested braces",
			in:   `{"outer":{"inner":1}} extra`,
			want: `{"outer":{"inner":1}}`,
		},
		{
			name: "braces inside strings",
			in:   `{"body":"uso de {malla} y \"comillas\""} fin`,
			want: `{"body":"uso de {malla} y \"comillas\""}`,
		},
		{
			name: "no object returns input",
			in:   "no hay json aquí",
			want: "no hay json aquí",
		},
		{
			name: "unbalanced returns input",
			in:   `{"topic":"truncado`,
			want: `{"topic":"truncado`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := extractJSON(c.in); got != c.want {
				t.Errorf("extractJSON(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestDecodeStrict_RejectsUnknownFields(t *testing.T) {
	var a StrategyArtifact
	err := decodeStrict(`{"topic":"t","problem":"p","solution":"s","post_type":"x","invented":"y"}`, &a)
	if err == nil {
		t.Error("expected unknown field error")
	}
}

func TestDecodeStrict_RejectsTrailingContent(t *testing.T) {
	var a QAArtifact
	if err := decodeStrict(`{"approved":true} {"approved":false}`, &a); err == nil {
		t.Error("expected trailing content error")
	}
}

func TestStrategyArtifact_Validate(t *testing.T) {
	valid := StrategyArtifact{Topic: "a → b", Problem: "a", Solution: "b", PostType: "educativo"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid artifact rejected: %v", err)
	}

	missing := []StrategyArtifact{
		{Problem: "a", Solution: "b", PostType: "x"},
		{Topic: "t", Solution: "b", PostType: "x"},
		{Topic: "t", Problem: "a", PostType: "x"},
		{Topic: "t", Problem: "a", Solution: "b"},
	}
	for i, a := range missing {
		if err := a.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestContentArtifact_Validate(t *testing.T) {
	if err := (ContentArtifact{Body: "texto"}).Validate(); err != nil {
		t.Errorf("valid artifact rejected: %v", err)
	}
	if err := (ContentArtifact{}).Validate(); err == nil {
		t.Error("empty body accepted")
	}
	if err := (ContentArtifact{Body: "x", ProductMentions: []string{" "}}).Validate(); err == nil {
		t.Error("blank product mention accepted")
	}
}

func TestQAArtifact_Validate(t *testing.T) {
	if err := (QAArtifact{Approved: true}).Validate(); err != nil {
		t.Errorf("approval rejected: %v", err)
	}
	if err := (QAArtifact{Approved: false}).Validate(); err == nil {
		t.Error("rejection without issues accepted")
	}
	if err := (QAArtifact{Approved: false, Issues: []string{"tono"}}).Validate(); err != nil {
		t.Errorf("rejection with issues refused: %v", err)
	}
}

func TestExtractThenDecode_FencedResponse(t *testing.T) {
	raw := "```json\n{\"approved\": true, \"issues\": []}\n```"
	var a QAArtifact
	if err := decodeStrict(extractJSON(raw), &a); err != nil {
		t.Fatalf("decoding fenced response: %v", err)
	}
	if !a.Approved {
		t.Error("approved not decoded")
	}
}
