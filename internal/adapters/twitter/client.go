// Package twitter implements the upstream GraphQL API client.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// DefaultBaseURL is the GraphQL endpoint root
const DefaultBaseURL = "https://api.twitter.com/graphql"

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration // per request; zero means no client-side limit
	UserAgent string
	QueryIDs  map[string]string // per-operation query id overrides
}

// Client implements ports.Upstream over resty
type Client struct {
	http      *resty.Client
	templates Templates
}

// NewClient creates an upstream client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		slog.DebugContext(res.Request.Context(), "upstream response",
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"elapsed", res.Time(),
		)
		return nil
	})

	return &Client{
		http:      client,
		templates: DefaultTemplates().WithQueryIDs(opts.QueryIDs),
	}
}

func (c *Client) UserByScreenName(ctx context.Context, creds domain.Credentials, name string) (*ports.UserLookup, error) {
	body, err := c.query(ctx, creds, OpUserByScreenName, map[string]any{"screen_name": name})
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

func (c *Client) UserByRestID(ctx context.Context, creds domain.Credentials, targetID string) (*ports.UserLookup, error) {
	body, err := c.query(ctx, creds, OpUserByRestID, map[string]any{"userId": targetID})
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

func (c *Client) UserMedia(ctx context.Context, creds domain.Credentials, targetID, cursor string) (*ports.MediaTimeline, error) {
	vars := map[string]any{"userId": targetID}
	if cursor != "" {
		vars["cursor"] = cursor
	}
	body, err := c.query(ctx, creds, OpUserMedia, vars)
	if err != nil {
		return nil, err
	}
	tl, err := decodeMedia(body)
	if err != nil {
		return nil, err
	}
	tl.Raw = body
	return tl, nil
}

func (c *Client) ItemByRestID(ctx context.Context, creds domain.Credentials, itemID string) (*ports.ItemLookup, error) {
	body, err := c.query(ctx, creds, OpTweetResultByRestID, map[string]any{"tweetId": itemID})
	if err != nil {
		return nil, err
	}
	lookup, err := decodeItem(body)
	if err != nil {
		return nil, err
	}
	lookup.Raw = body
	return lookup, nil
}

// query issues one GraphQL GET and classifies transport and status failures
func (c *Client) query(ctx context.Context, creds domain.Credentials, op string, vars map[string]any) ([]byte, error) {
	tmpl, ok := c.templates[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	variables, err := json.Marshal(tmpl.variables(vars))
	if err != nil {
		return nil, fmt.Errorf("failed to encode variables: %w", err)
	}
	features, err := json.Marshal(tmpl.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"variables": string(variables),
			"features":  string(features),
		}).
		SetCookies([]*http.Cookie{
			{Name: "auth_token", Value: creds.AuthToken},
			{Name: "ct0", Value: creds.CSRFToken},
		}).
		SetHeader("authorization", creds.BearerToken).
		SetHeader("x-csrf-token", creds.CSRFToken).
		SetPathParams(map[string]string{
			"queryID":   tmpl.QueryID,
			"operation": op,
		}).
		Get("/{queryID}/{operation}")
	if err != nil {
		// the caller abandoning the request is not an upstream failure
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNetworkFailure, op, err)
	}

	switch {
	case res.StatusCode() == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case res.IsError() || res.StatusCode() >= 300:
		return nil, fmt.Errorf("%s: %w", op, &domain.StatusError{Code: res.StatusCode()})
	}
	return res.Body(), nil
}

var _ ports.Upstream = (*Client)(nil)
