// Package pipedrive is a minimal client for the Pipedrive v1 REST API,
// covering the three endpoints the sync pipeline consumes.
package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.pipedrive.com/v1"

// Client exposes the Pipedrive operations used by the sync pipeline.
type Client interface {
	// ListDeals fetches one page of deals under the configured saved
	// filter, starting at the given pagination offset.
	ListDeals(ctx context.Context, start int) (*DealsPage, error)
	// AddDealProduct attaches a priced product line item to a deal.
	// Pipedrive answers 201 on success.
	AddDealProduct(ctx context.Context, dealID int, req AddProductRequest) error
	// CreateActivity records an activity associated with a deal.
	// Pipedrive answers 201 on success.
	CreateActivity(ctx context.Context, req ActivityRequest) error
}

// DealItem is one deal as returned by GET /deals.
type DealItem struct {
	ID        int    `json:"id"`
	OwnerName string `json:"owner_name"`
	Person    Person `json:"person_id"`
}

// Person is the contact nested in a deal listing.
type Person struct {
	Name  string         `json:"name"`
	Email []ContactValue `json:"email"`
	Phone []ContactValue `json:"phone"`
}

// ContactValue is a single labeled contact field entry.
type ContactValue struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// DealsPage is one page of the deal listing plus its pagination cursor.
type DealsPage struct {
	Deals     []DealItem
	MoreItems bool
	NextStart int
}

// AddProductRequest is the body for POST /deals/{id}/products.
type AddProductRequest struct {
	ProductID int     `json:"product_id"`
	ItemPrice float64 `json:"item_price"`
	Quantity  int     `json:"quantity"`
}

// ActivityRequest is the body for POST /activities. Done is 1/0 rather
// than a bool, matching the v1 API.
type ActivityRequest struct {
	DealID  int    `json:"deal_id"`
	DueDate string `json:"due_date"` // YYYY-MM-DD
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Done    int    `json:"done"`
}

type dealsResponse struct {
	Success        bool       `json:"success"`
	Data           []DealItem `json:"data"`
	AdditionalData struct {
		Pagination struct {
			MoreItems bool `json:"more_items_in_collection"`
			NextStart int  `json:"next_start"`
		} `json:"pagination"`
	} `json:"additional_data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiToken string
	filterID int
	baseURL  string
	http     *http.Client
}

// NewClient creates a Pipedrive client authenticating with the given API
// token and listing deals under the given saved filter.
func NewClient(apiToken string, filterID int, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		filterID: filterID,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ListDeals(ctx context.Context, start int) (*DealsPage, error) {
	params := url.Values{}
	params.Set("api_token", c.apiToken)
	params.Set("filter_id", strconv.Itoa(c.filterID))
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/deals?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pipedrive: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "pipedrive: list deals")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pipedrive: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pipedrive: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result dealsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "pipedrive: unmarshal response")
	}

	return &DealsPage{
		Deals:     result.Data,
		MoreItems: result.AdditionalData.Pagination.MoreItems,
		NextStart: result.AdditionalData.Pagination.NextStart,
	}, nil
}

func (c *httpClient) AddDealProduct(ctx context.Context, dealID int, req AddProductRequest) error {
	path := fmt.Sprintf("/deals/%d/products", dealID)
	return c.postCreated(ctx, path, req)
}

func (c *httpClient) CreateActivity(ctx context.Context, req ActivityRequest) error {
	return c.postCreated(ctx, "/activities", req)
}

// postCreated sends a JSON POST and requires a 201 Created response.
func (c *httpClient) postCreated(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "pipedrive: marshal %s", path)
	}

	params := url.Values{}
	params.Set("api_token", c.apiToken)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path+"?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "pipedrive: create request %s", path)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrapf(err, "pipedrive: POST %s", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "pipedrive: read response %s", path)
	}
	if resp.StatusCode != http.StatusCreated {
		return eris.Errorf("pipedrive: POST %s: unexpected status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}
