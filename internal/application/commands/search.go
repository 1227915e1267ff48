package commands

import (
	"context"
	"sort"

	"continuity/internal/application"
	"continuity/internal/domain"
	"continuity/internal/graph"
)

// SearchResult is a graph node with a relevance score
type SearchResult struct {
	Node  graph.Node
	Score int
}

// SearchCommand searches graph nodes by name with fuzzy matching
type SearchCommand struct {
	engine *application.Engine
	Query  string
	Type   string // empty searches every type
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(engine *application.Engine, query, entityType string) *SearchCommand {
	return &SearchCommand{
		engine: engine,
		Query:  query,
		Type:   entityType,
	}
}

// Validate checks if the search is valid
func (c *SearchCommand) Validate() error {
	if c.Type == "" {
		return nil
	}
	_, err := application.ValidateEntityType("type", c.Type)
	return err
}

// Execute runs the search command and returns scored, sorted results
func (c *SearchCommand) Execute(ctx context.Context) ([]SearchResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.Query) < 2 {
		return nil, nil
	}

	var t domain.EntityType
	if c.Type != "" {
		t, _ = domain.ParseEntityType(c.Type)
	}

	snap := c.engine.GraphSnapshot()
	var nodes []graph.Node
	for _, n := range snap.Nodes {
		if t == "" || n.Type == t {
			nodes = append(nodes, n)
		}
	}
	return FuzzySort(nodes, c.Query), nil
}

// FuzzySort scores nodes by label, entity id and description and sorts them
// by relevance to the query
func FuzzySort(nodes []graph.Node, query string) []SearchResult {
	scored := make([]SearchResult, 0, len(nodes))

	for _, n := range nodes {
		s1 := domain.FuzzyScore(n.Label, query)
		s2 := domain.FuzzyScore(n.Properties.EntityID, query)
		s3 := domain.FuzzyScore(n.Properties.Description, query)

		best := max(s1, s2, s3)

		if best > 0 {
			scored = append(scored, SearchResult{Node: n, Score: best})
		}
	}

	// Sort by score descending, then by id for stable output
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Node.ID < scored[j].Node.ID
	})

	return scored
}
