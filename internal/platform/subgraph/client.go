// Package subgraph reads market records from a Polymarket GraphQL subgraph.
// Unlike the Gamma API, subgraph markets carry the on-chain condition with
// its resolution time, which the resolver prefers over every endDate.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/flex"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/polymarket"
)

// Client is a GraphQL client for a Polymarket markets subgraph.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new subgraph client.
//
// graphqlURL is the subgraph endpoint. apiKey is sent as a bearer token when
// non-empty. timeout bounds each request; zero means 30 seconds.
func NewClient(graphqlURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const marketsQuery = `
	query Markets($first: Int!, $skip: Int!) {
		markets(
			first: $first
			skip: $skip
			orderBy: volume
			orderDirection: desc
		) {
			id
			question
			endDate
			volume
			condition {
				id
				resolutionTime
			}
		}
	}
`

type apiCondition struct {
	ID             flex.ID `json:"id"`
	ResolutionTime flex.ID `json:"resolutionTime"`
}

type apiMarket struct {
	ID        flex.ID       `json:"id"`
	Question  flex.Text     `json:"question"`
	EndDate   flex.Text     `json:"endDate"`
	Volume    flex.Float    `json:"volume"`
	Condition *apiCondition `json:"condition"`
}

func (m *apiMarket) toDomain() domain.RawMarket {
	rec := domain.RawMarket{
		ID:       m.ID.Optional(),
		Question: m.Question.Optional(),
		EndDate:  m.EndDate.Optional(),
		Volume:   m.Volume.Optional(),
	}
	if m.Condition != nil {
		rec.Condition = domain.Some(domain.ConditionRecord{
			ID:             m.Condition.ID.Optional(),
			ResolutionTime: m.Condition.ResolutionTime.Optional(),
		})
	}
	return rec
}

// FetchPage returns one page of markets. GraphQL paging uses first/skip,
// which map directly onto limit/offset.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) ([]domain.RawMarket, error) {
	respData, err := c.doQuery(ctx, marketsQuery, map[string]any{
		"first": limit,
		"skip":  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch markets skip=%d: %w", offset, err)
	}

	var result struct {
		Markets []json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode markets: %w: %v", domain.ErrMalformedPayload, err)
	}

	markets := make([]domain.RawMarket, 0, len(result.Markets))
	for _, raw := range result.Markets {
		var m apiMarket
		if flex.IsObject(raw) {
			// Field types are tolerant; only a nested condition of the wrong
			// shape can fail here, and then the record keeps what decoded.
			_ = json.Unmarshal(raw, &m)
		}
		markets = append(markets, m.toDomain())
	}
	return markets, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery executes a GraphQL query against the subgraph endpoint and returns
// the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}

	if err := polymarket.CheckHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("%w: decode graphql response: %v", domain.ErrMalformedPayload, err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql error: %s", domain.ErrMalformedPayload, gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}
