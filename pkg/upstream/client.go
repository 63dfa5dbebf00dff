// Package upstream is the HTTP client for the third-party conversational
// messaging platform being mirrored (spec §4.1): authentication, the two
// paged export endpoints, and schema normalization of whatever shape the
// wire happens to send.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/chatsync/b2csync/pkg/config"
)

// Client talks to the upstream export endpoints over plain net/http — there
// is no generated SDK for a platform this specification only describes in
// prose, so requests are built and decoded by hand, the same way tarsy's
// pkg/llm providers hand-roll HTTP calls to model APIs with no SDK.
type Client struct {
	cfg        *config.UpstreamConfig
	password   string
	httpClient *http.Client
	tokenCache tokenCache
}

// NewClient builds a Client from the resolved upstream configuration. The
// HTTP Basic password is read once from the configured env var at
// construction time — config validation (validate in pkg/config/loader.go)
// already checked that it's set.
func NewClient(cfg *config.UpstreamConfig) *Client {
	return &Client{
		cfg:      cfg,
		password: os.Getenv(cfg.PasswordEnv),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// GetContacts fetches one page of /contacts/export.
func (c *Client) GetContacts(ctx context.Context, q ContactsQuery) (*ContactsPage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.UpdatedFrom != nil {
		params.Set("updated_from", q.UpdatedFrom.Format("2006-01-02"))
	}
	if q.UpdatedTo != nil {
		params.Set("updated_to", q.UpdatedTo.Format("2006-01-02"))
	}
	if q.Mobile != nil {
		params.Set("mobile", *q.Mobile)
	}
	if q.UpstreamID != nil {
		params.Set("contact_id", *q.UpstreamID)
	}

	var wire contactsWireResponse
	if err := c.getJSON(ctx, "/contacts/export", params, &wire); err != nil {
		return nil, err
	}

	page := &ContactsPage{Pagination: wire.Pagination.toPagination()}
	for i, raw := range wire.Data {
		contact, err := normalizeContact(raw)
		if err != nil {
			return nil, fmt.Errorf("contacts/export record %d: %w", i, err)
		}
		page.Data = append(page.Data, contact)
	}
	return page, nil
}

// GetChats fetches one page of /chats/export.
func (c *Client) GetChats(ctx context.Context, q ChatsQuery) (*ChatsPage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.DateRangeFrom != nil {
		params.Set("date_range_from", q.DateRangeFrom.Format("2006-01-02"))
	}
	if q.DateRangeTo != nil {
		params.Set("date_range_to", q.DateRangeTo.Format("2006-01-02"))
	}

	var wire chatsWireResponse
	if err := c.getJSON(ctx, "/chats/export", params, &wire); err != nil {
		return nil, err
	}

	page := &ChatsPage{Pagination: wire.Pagination.toPagination()}
	for i, raw := range wire.Data {
		chat, err := normalizeChat(raw)
		if err != nil {
			return nil, fmt.Errorf("chats/export record %d: %w", i, err)
		}
		page.Data = append(page.Data, chat)
	}
	return page, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ApiError{StatusCode: resp.StatusCode, Endpoint: path, RawBody: readBodySnippet(resp)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SchemaError{Endpoint: path, Field: "body", Reason: err.Error()}
	}
	return nil
}

func readBodySnippet(resp *http.Response) string {
	const maxSnippet = 2048
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxSnippet))
	return string(body)
}

type wirePagination struct {
	Total       int  `json:"total"`
	Exported    int  `json:"exported"`
	HasNextPage bool `json:"hasNextPage"`
}

func (p wirePagination) toPagination() Pagination {
	return Pagination{Total: p.Total, Exported: p.Exported, HasNextPage: p.HasNextPage}
}

type contactsWireResponse struct {
	Data       []json.RawMessage `json:"data"`
	Pagination wirePagination    `json:"pagination"`
}

type chatsWireResponse struct {
	Data       []json.RawMessage `json:"data"`
	Pagination wirePagination    `json:"pagination"`
}
