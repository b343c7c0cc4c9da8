package searchquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
)

func staticSearcher(results []Result) Searcher {
	return SearcherFunc(func(context.Context, string, int) ([]Result, error) {
		return results, nil
	})
}

func failingSearcher(err error) Searcher {
	return SearcherFunc(func(context.Context, string, int) ([]Result, error) {
		return nil, err
	})
}

func newTestCodec(t *testing.T, searcher Searcher) *Codec {
	t.Helper()
	codec, err := NewCodec(CodecConfig{
		UserQuery: "impact of tariffs on semiconductors",
		Searcher:  searcher,
	})
	require.NoError(t, err)
	return codec
}

const validStrategy = `{
	"user_query": "impact of tariffs on semiconductors",
	"dimensions": ["Trade Policy", "Supply Chain", "Industry Response"],
	"keywords": {
		"Trade Policy": ["tariff reform", "import-export policy"],
		"Supply Chain": ["chip shortage"],
		"Industry Response": "fab investment"
	}
}`

func TestCodecParseSelectsFirstKeywordPerDimension(t *testing.T) {
	hits := []Result{{Title: "A tariff primer", Snippet: "..."}}
	codec := newTestCodec(t, staticSearcher(hits))

	parsed, err := codec.Parse(validStrategy)
	require.NoError(t, err)

	gene := parsed.(*Gene)
	assert.Equal(t, "tariff reform", gene.Keywords["Trade Policy"])
	assert.Equal(t, "chip shortage", gene.Keywords["Supply Chain"])
	assert.Equal(t, "fab investment", gene.Keywords["Industry Response"])
	assert.Equal(t, `"tariff reform"^2.0 "chip shortage"^1.5 fab investment`, gene.QueryString())
	assert.Equal(t, hits, gene.Results())
}

func TestCodecParseIsDeterministic(t *testing.T) {
	codec := newTestCodec(t, staticSearcher(nil))

	first, err := codec.Parse(validStrategy)
	require.NoError(t, err)
	second, err := codec.Parse(validStrategy)
	require.NoError(t, err)

	assert.Equal(t, core.Fingerprint(first), core.Fingerprint(second))
}

func TestCodecParseStripsCodeFences(t *testing.T) {
	codec := newTestCodec(t, staticSearcher(nil))
	fenced := "```json\n" + validStrategy + "\n```"

	parsed, err := codec.Parse(fenced)
	require.NoError(t, err)
	assert.Len(t, parsed.(*Gene).Dimensions, 3)
}

func TestCodecParseMalformedContent(t *testing.T) {
	codec := newTestCodec(t, staticSearcher(nil))

	cases := map[string]string{
		"not json":           "the best keywords are tariffs",
		"no dimensions":      `{"user_query": "q", "dimensions": [], "keywords": {}}`,
		"missing keywords":   `{"user_query": "q", "dimensions": ["A"], "keywords": {}}`,
		"empty keyword list": `{"user_query": "q", "dimensions": ["A"], "keywords": {"A": []}}`,
		"numeric keyword":    `{"user_query": "q", "dimensions": ["A"], "keywords": {"A": 5}}`,
	}
	for name, content := range cases {
		_, err := codec.Parse(content)
		assert.Equal(t, errors.OracleMalformedResponse, errors.Code(err), name)
	}
}

func TestCodecParseToleratesSearchFailure(t *testing.T) {
	codec := newTestCodec(t, failingSearcher(assert.AnError))

	parsed, err := codec.Parse(validStrategy)
	require.NoError(t, err)

	gene := parsed.(*Gene)
	assert.Empty(t, gene.Results())
	assert.Contains(t, gene.ToText(), "## Search Results: null")
}

func TestQueryStringCapsAtThreeKeywords(t *testing.T) {
	dims := []string{"A", "B", "C", "D"}
	keywords := map[string]string{"A": "one", "B": "two", "C": "three", "D": "four"}

	query := buildQueryString(dims, keywords)
	assert.Equal(t, `"one"^2.0 "two"^1.5 three`, query)
}

func TestQueryStringFewerKeywords(t *testing.T) {
	assert.Equal(t, `"solo"^2.0`, buildQueryString([]string{"A"}, map[string]string{"A": "solo"}))
	assert.Equal(t, `"one"^2.0 "two"^1.5`,
		buildQueryString([]string{"A", "B"}, map[string]string{"A": "one", "B": "two"}))
}

func TestGeneToTextIncludesResults(t *testing.T) {
	gene := &Gene{
		UserQuery:   "q",
		Dimensions:  []string{"A"},
		Keywords:    map[string]string{"A": "kw"},
		queryString: `"kw"^2.0`,
		results: []Result{
			{Title: "First", Snippet: "first snippet"},
			{Title: "Second", Snippet: "second snippet"},
		},
	}
	text := gene.ToText()
	assert.Contains(t, text, "## User Query:\nq")
	assert.Contains(t, text, `## Search Query:
"kw"^2.0`)
	assert.Contains(t, text, `Title: "First"`)
	assert.Contains(t, text, `Snippet: "second snippet"`)
}

func TestReproductionSpecsCarryGenotype(t *testing.T) {
	codec := newTestCodec(t, staticSearcher(nil))
	parsed, err := codec.Parse(validStrategy)
	require.NoError(t, err)
	gene := parsed.(*Gene)

	mutate := gene.MutateSpec()
	assert.Equal(t, TemplateMutate, mutate.TemplateID)
	assert.Contains(t, mutate.Variables["candidate"], "tariff reform")
	assert.NotContains(t, mutate.Variables["candidate"], "Search Results")

	crossover := gene.CrossoverSpec(gene)
	assert.Equal(t, TemplateCrossover, crossover.TemplateID)
	assert.Contains(t, crossover.Variables["parent_a"], "chip shortage")
	assert.Contains(t, crossover.Variables["parent_b"], "chip shortage")
}

func TestSeedSpecCarriesUserQuery(t *testing.T) {
	codec := newTestCodec(t, staticSearcher(nil))
	spec := codec.SeedSpec()
	assert.Equal(t, TemplateSeed, spec.TemplateID)
	assert.Equal(t, "impact of tariffs on semiconductors", spec.Variables["user_query"])
}

func TestConstraints(t *testing.T) {
	set := Constraints()

	valid := core.NewCandidate("t-000001", 0, &Gene{
		Keywords:    map[string]string{"A": "tariffs"},
		queryString: `"tariffs"^2.0`,
	}, nil)
	assert.Empty(t, set.Validate(valid))

	nonASCII := core.NewCandidate("t-000002", 0, &Gene{
		Keywords:    map[string]string{"A": "café tariffs"},
		queryString: `"x"^2.0`,
	}, nil)
	violations := set.Validate(nonASCII)
	require.Len(t, violations, 1)
	assert.Equal(t, "keywords_ascii", violations[0].Constraint)

	empty := core.NewCandidate("t-000003", 0, &Gene{Keywords: map[string]string{}}, nil)
	violations = set.Validate(empty)
	assert.NotEmpty(t, violations)
}

func TestCachingSearcherMemoizes(t *testing.T) {
	calls := 0
	inner := SearcherFunc(func(context.Context, string, int) ([]Result, error) {
		calls++
		return []Result{{Title: "hit"}}, nil
	})
	cached := NewCachingSearcher(inner)

	for i := 0; i < 3; i++ {
		results, err := cached.Search(context.Background(), "same query", 5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}
	assert.Equal(t, 1, calls)

	_, err := cached.Search(context.Background(), "other query", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
