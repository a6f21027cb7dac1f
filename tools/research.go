package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const (
	defaultResearchCacheSize = 128
	defaultResearchMaxChars  = 1000

	// ResearchUnavailable is returned to the model whenever the research capability fails.
	ResearchUnavailable = "Web research unavailable. Proceeding with existing knowledge."
)

// Researcher looks up evidence-based guidance for a query.
type Researcher interface {
	Research(ctx context.Context, query string) (string, error)
}

// ResearchCache holds research answers keyed by normalized query. It is safe for concurrent use
// and is meant to outlive a single review run.
type ResearchCache = lru.Cache[string, string]

// NewResearchCache creates a research cache holding up to size entries.
func NewResearchCache(size int) (*ResearchCache, error) {
	if size <= 0 {
		size = defaultResearchCacheSize
	}
	return lru.New[string, string](size)
}

type ResearchOptions struct {
	Cache    *ResearchCache
	MaxChars int
}

// ResearchNutrition answers nutrition and fitness questions through a Researcher.
type ResearchNutrition struct {
	researcher Researcher
	cache      *ResearchCache
	maxChars   int
}

func NewResearchNutrition(r Researcher, opts ResearchOptions) *ResearchNutrition {
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultResearchMaxChars
	}
	return &ResearchNutrition{researcher: r, cache: opts.Cache, maxChars: opts.MaxChars}
}

func (t *ResearchNutrition) Name() string { return "research_nutrition" }
func (t *ResearchNutrition) Description() string {
	return "Search for current nutrition and fitness guidelines relevant to the user's goal using web grounding."
}

func (t *ResearchNutrition) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "The nutrition or fitness topic to research",
			},
		},
		Required: []string{"query"},
	}
}

func (t *ResearchNutrition) Run(ctx context.Context, input map[string]any) (string, error) {
	query, ok := stringInput(input, "query")
	if !ok {
		return "", fmt.Errorf("missing required input %q", "query")
	}

	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if t.cache != nil {
		if cached, hit := t.cache.Get(key); hit {
			slog.Info("TOOLS: Research cache hit", "query", query)
			return cached, nil
		}
	}

	if t.researcher == nil {
		return ResearchUnavailable, nil
	}

	answer, err := t.researcher.Research(ctx, query)
	if err != nil {
		slog.Warn("TOOLS: Research failed, using fallback", "query", query, "error", err)
		return ResearchUnavailable, nil
	}

	answer = Truncate(answer, t.maxChars)
	if t.cache != nil {
		t.cache.Add(key, answer)
	}
	return answer, nil
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
