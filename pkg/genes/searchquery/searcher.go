package searchquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/evoforge/evoforge/pkg/errors"
)

// Searcher retrieves web results for a compiled query expression.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, maxResults int) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f(ctx, query, maxResults)
}

// SerperSearcher queries a Serper-compatible search gateway.
type SerperSearcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSerperSearcher builds a searcher against the gateway base URL.
func NewSerperSearcher(baseURL, apiKey string) *SerperSearcher {
	return &SerperSearcher{
		endpoint: baseURL + "/api/v1/openapi/search/serper/v1",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type serperResponse struct {
	AnswerBox *serperHit  `json:"answerBox"`
	Organic   []serperHit `json:"organic"`
	AlsoAsk   []serperHit `json:"peopleAlsoAsk"`
}

type serperHit struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (s *SerperSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"q":    query,
		"page": 1,
		"num":  maxResults,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to encode search payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to build search request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(errors.Unknown, "search gateway returned non-200"),
			errors.Fields{"status": resp.StatusCode})
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to decode search response")
	}

	results := make([]Result, 0, maxResults)
	appendHit := func(hit serperHit) {
		if len(results) < maxResults {
			results = append(results, Result{URL: hit.Link, Title: hit.Title, Snippet: hit.Snippet})
		}
	}
	if parsed.AnswerBox != nil {
		appendHit(*parsed.AnswerBox)
	}
	for _, hit := range parsed.Organic {
		appendHit(hit)
	}
	for _, hit := range parsed.AlsoAsk {
		appendHit(hit)
	}
	return results, nil
}

// CachingSearcher memoizes results per query string. Identical genotypes
// compile to identical queries, so repeat lookups within a run are common.
type CachingSearcher struct {
	inner Searcher

	mu    sync.Mutex
	cache map[string][]Result
}

func NewCachingSearcher(inner Searcher) *CachingSearcher {
	return &CachingSearcher{inner: inner, cache: make(map[string][]Result)}
}

func (c *CachingSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := fmt.Sprintf("%d|%s", maxResults, query)

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	results, err := c.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = results
	c.mu.Unlock()
	return results, nil
}
