package composer

import (
	"fmt"
	"strings"

	"github.com/impag-mx/surco/internal/retrieval"
	"github.com/impag-mx/surco/internal/storage"
)

// Inputs carries everything the per-phase plans can draw on. Any field may
// be empty; Render drops empty sections.
type Inputs struct {
	Query       string
	Snippets    []retrieval.ContextSnippet
	RegionNotes string
	History     []storage.Post
	DedupeHints []string
	Products    []storage.Product
	// Prior holds the validated artifact JSON from the previous phase.
	Prior string
}

const systemPrompt = `Eres el redactor de contenido de IMPAG, proveedor de insumos agrícolas en Durango, México. Escribes para productores locales: directo, práctico, sin exageraciones. Responde únicamente con el JSON solicitado, sin texto adicional.`

// StrategyPrompt assembles the prompt for the strategy phase: pick a
// problem/solution topic grounded in retrieved context, regional notes and
// publishing history, steering away from recently used topics.
func StrategyPrompt(in Inputs) Prompt {
	sections := []Section{
		{Label: "Consulta", Text: in.Query},
		{Label: "Contexto recuperado", Text: renderSnippets(in.Snippets)},
		{Label: "Notas regionales", Text: in.RegionNotes, Budget: RegionBudget},
		{Label: "Publicaciones recientes", Text: renderHistory(in.History), Budget: HistoryBudget},
		{Label: "Temas a evitar", Text: renderHints(in.DedupeHints), Budget: HintsBudget},
		{Label: "Instrucciones", Text: strategyInstructions},
	}
	return Prompt{System: systemPrompt, User: Render(sections)}
}

// ContentPrompt assembles the prompt for the content phase. The strategy
// artifact and matched catalog entries are passed whole: the model must
// see exact product names and prices to avoid inventing them.
func ContentPrompt(in Inputs) Prompt {
	sections := []Section{
		{Label: "Estrategia aprobada", Text: in.Prior},
		{Label: "Notas regionales", Text: in.RegionNotes, Budget: RegionBudget},
		{Label: "Productos del catálogo", Text: renderProducts(in.Products)},
		{Label: "Temas a evitar", Text: renderHints(in.DedupeHints), Budget: HintsBudget},
		{Label: "Instrucciones", Text: contentInstructions},
	}
	return Prompt{System: systemPrompt, User: Render(sections)}
}

// QAPrompt assembles the prompt for the quality-check phase over the
// content artifact.
func QAPrompt(in Inputs) Prompt {
	sections := []Section{
		{Label: "Publicación a revisar", Text: in.Prior},
		{Label: "Instrucciones", Text: qaInstructions},
	}
	return Prompt{System: systemPrompt, User: Render(sections)}
}

const strategyInstructions = `Elige un tema con formato "problema → solución" relevante para la temporada actual. El problema y la solución deben ser concretos, no genéricos. Responde con JSON: {"topic": "...", "problem": "...", "solution": "...", "rationale": "...", "post_type": "..."}`

const contentInstructions = `Redacta la publicación siguiendo la estrategia. Menciona productos solo si aparecen en la sección de catálogo, con su nombre exacto. Responde con JSON: {"body": "...", "hashtags": ["..."], "product_mentions": ["..."], "call_to_action": "..."}`

const qaInstructions = `Evalúa la publicación: claridad, precisión de productos y tono. Responde con JSON: {"approved": true/false, "issues": ["..."], "revised_body": "..."} donde revised_body solo se incluye si approved es false.`

func renderSnippets(snippets []retrieval.ContextSnippet) string {
	var b strings.Builder
	for i, s := range snippets {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s] %s", s.SourceType, s.Text)
	}
	return b.String()
}

func renderHistory(posts []storage.Post) string {
	var b strings.Builder
	for i, p := range posts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", p.DateFor.Format("2006-01-02"), p.Topic)
	}
	return b.String()
}

func renderHints(hints []string) string {
	var b strings.Builder
	for i, h := range hints {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(h)
	}
	return b.String()
}

func renderProducts(products []storage.Product) string {
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s — $%.2f %s", p.Name, p.Price, p.Currency)
	}
	return b.String()
}
