package searchquery

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
)

// CodecName registers the search strategy gene variant.
const CodecName = "searchquery"

// Codec parses oracle output into search strategy genes and retrieves each
// new gene's results as part of construction. Retrieval failure is not a
// parse failure: a gene with no results scores zero instead of aborting the
// generation.
type Codec struct {
	userQuery  string
	searcher   Searcher
	maxResults int
	timeout    time.Duration
}

// CodecConfig configures a search strategy codec.
type CodecConfig struct {
	// UserQuery is the question whose retrieval the run optimizes.
	UserQuery string
	// Searcher retrieves results for compiled queries.
	Searcher Searcher
	// MaxResults caps retrieval per query. Defaults to 5.
	MaxResults int
	// SearchTimeout bounds one retrieval. Defaults to 30s.
	SearchTimeout time.Duration
}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.UserQuery == "" {
		return nil, errors.New(errors.InvalidConfiguration, "search strategy codec requires a user query")
	}
	if cfg.Searcher == nil {
		return nil, errors.New(errors.InvalidConfiguration, "search strategy codec requires a searcher")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 30 * time.Second
	}
	return &Codec{
		userQuery:  cfg.UserQuery,
		searcher:   cfg.Searcher,
		maxResults: cfg.MaxResults,
		timeout:    cfg.SearchTimeout,
	}, nil
}

func (c *Codec) Name() string { return CodecName }

// SeedSpec requests a fresh dimension/keyword decomposition of the user
// query.
func (c *Codec) SeedSpec() core.PromptSpec {
	return core.PromptSpec{
		TemplateID: TemplateSeed,
		Variables:  map[string]string{"user_query": c.userQuery},
	}
}

type genePayload struct {
	UserQuery  string                     `json:"user_query"`
	Dimensions []string                   `json:"dimensions"`
	Keywords   map[string]json.RawMessage `json:"keywords"`
}

// Encode serializes a gene as its genotype JSON. Search results are derived
// data and are re-retrieved when the text is parsed back.
func (c *Codec) Encode(g core.Gene) (string, error) {
	gene, ok := g.(*Gene)
	if !ok {
		return "", errors.New(errors.ValidationFailed, "gene is not a search strategy")
	}
	return gene.genotype(), nil
}

// Parse decodes the oracle's JSON, selects one keyword per dimension,
// compiles the weighted query, and retrieves its results.
func (c *Codec) Parse(text string) (core.Gene, error) {
	var payload genePayload
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &payload); err != nil {
		return nil, errors.Wrap(err, errors.OracleMalformedResponse, "search strategy is not valid JSON")
	}
	if len(payload.Dimensions) == 0 {
		return nil, errors.New(errors.OracleMalformedResponse, "search strategy declares no dimensions")
	}

	keywords := make(map[string]string, len(payload.Dimensions))
	for _, dim := range payload.Dimensions {
		raw, ok := payload.Keywords[dim]
		if !ok {
			return nil, errors.WithFields(
				errors.New(errors.OracleMalformedResponse, "dimension has no keywords"),
				errors.Fields{"dimension": dim})
		}
		keyword, err := firstKeyword(raw)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.OracleMalformedResponse, "invalid keyword entry"),
				errors.Fields{"dimension": dim})
		}
		keywords[dim] = keyword
	}

	userQuery := payload.UserQuery
	if userQuery == "" {
		userQuery = c.userQuery
	}

	gene := &Gene{
		UserQuery:   userQuery,
		Dimensions:  payload.Dimensions,
		Keywords:    keywords,
		queryString: buildQueryString(payload.Dimensions, keywords),
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	results, err := c.searcher.Search(ctx, gene.queryString, c.maxResults)
	if err != nil {
		logging.GetLogger().Warn(ctx, "Retrieval failed for query %q, gene will score as empty: %v",
			gene.queryString, err)
		results = nil
	}
	gene.results = results
	return gene, nil
}

// firstKeyword accepts either a JSON array of strings or a bare string and
// returns the first non-empty entry. The choice is positional rather than
// random so parsing the same content always yields the same gene.
func firstKeyword(raw json.RawMessage) (string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, keyword := range list {
			if keyword != "" {
				return keyword, nil
			}
		}
		return "", errors.New(errors.OracleMalformedResponse, "keyword list is empty")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil || single == "" {
		return "", errors.New(errors.OracleMalformedResponse, "keyword is neither list nor string")
	}
	return single, nil
}

// stripCodeFences removes a wrapping markdown fence if the oracle ignored
// the no-markdown instruction.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
