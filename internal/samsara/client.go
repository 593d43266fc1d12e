package samsara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// DefaultBaseURL is the production Samsara API endpoint.
const DefaultBaseURL = "https://api.samsara.com"

// Client is a minimal Samsara REST client for the driver and HOS-clock
// endpoints. It handles cursor pagination; callers get fully materialized
// batches.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a Samsara client.
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if token == "" {
		return nil, errors.New("samsara: empty api token")
	}
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// HOSClock is one driver's clock entry from /fleet/hos/clocks.
type HOSClock struct {
	Driver            DriverRef  `json:"driver"`
	CurrentDutyStatus DutyStatus `json:"currentDutyStatus"`
}

// DriverRef identifies a driver inside a clock entry.
type DriverRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DutyStatus is the current status block of a clock entry.
type DutyStatus struct {
	HOSStatusType      string `json:"hosStatusType"`
	HOSStatusStartTime string `json:"hosStatusStartTime"`
}

// Driver is a fleet driver from /fleet/drivers.
type Driver struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Tags []DriverTag `json:"tags"`
}

// DriverTag is a tag attached to a driver.
type DriverTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pagination struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

type clocksPage struct {
	Data       []HOSClock `json:"data"`
	Pagination pagination `json:"pagination"`
}

type driversPage struct {
	Data       []Driver   `json:"data"`
	Pagination pagination `json:"pagination"`
}

// GetHOSClocks fetches the current duty-status clock for every driver,
// optionally filtered upstream by tag ids.
func (c *Client) GetHOSClocks(ctx context.Context, tagIDs []string) ([]HOSClock, error) {
	var clocks []HOSClock
	cursor := ""
	for {
		params := url.Values{}
		if len(tagIDs) > 0 {
			params.Set("tagIds", strings.Join(tagIDs, ","))
		}
		if cursor != "" {
			params.Set("after", cursor)
		}
		var page clocksPage
		if err := c.getJSON(ctx, "/fleet/hos/clocks", params, &page); err != nil {
			return nil, err
		}
		clocks = append(clocks, page.Data...)
		if !page.Pagination.HasNextPage {
			return clocks, nil
		}
		cursor = page.Pagination.EndCursor
	}
}

// GetDrivers fetches fleet drivers, optionally filtered by tag ids.
func (c *Client) GetDrivers(ctx context.Context, tagIDs []string) ([]Driver, error) {
	var drivers []Driver
	cursor := ""
	for {
		params := url.Values{}
		if len(tagIDs) > 0 {
			params.Set("tagIds", strings.Join(tagIDs, ","))
		}
		if cursor != "" {
			params.Set("after", cursor)
		}
		var page driversPage
		if err := c.getJSON(ctx, "/fleet/drivers", params, &page); err != nil {
			return nil, err
		}
		drivers = append(drivers, page.Data...)
		if !page.Pagination.HasNextPage {
			return drivers, nil
		}
		cursor = page.Pagination.EndCursor
	}
}

// FetchStatusRecords fetches HOS clocks plus driver tags and normalizes them
// into analysis records. Malformed or missing status-start times map to a
// zero time; the analysis core flags those records as anomalous instead of
// failing the batch. Driver names and tags fall back to empty when the
// driver listing omits an entry.
func (c *Client) FetchStatusRecords(ctx context.Context, tagIDs []string) ([]analysis.DriverStatusRecord, error) {
	clocks, err := c.GetHOSClocks(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	tagsByDriver, err := c.driverTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	records := make([]analysis.DriverStatusRecord, 0, len(clocks))
	for _, clock := range clocks {
		record := analysis.DriverStatusRecord{
			DriverID:      clock.Driver.ID,
			DriverName:    clock.Driver.Name,
			CurrentStatus: analysis.ParseDutyStatus(clock.CurrentDutyStatus.HOSStatusType),
			Tags:          tagsByDriver[clock.Driver.ID],
		}
		if raw := clock.CurrentDutyStatus.HOSStatusStartTime; raw != "" {
			if at, err := time.Parse(time.RFC3339, raw); err == nil {
				record.StatusStartTime = at.UTC()
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) driverTags(ctx context.Context, tagIDs []string) (map[string][]string, error) {
	drivers, err := c.GetDrivers(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	tags := make(map[string][]string, len(drivers))
	for _, driver := range drivers {
		if driver.ID == "" || len(driver.Tags) == 0 {
			continue
		}
		ids := make([]string, 0, len(driver.Tags))
		for _, tag := range driver.Tags {
			if tag.ID != "" {
				ids = append(ids, tag.ID)
			}
		}
		tags[driver.ID] = ids
	}
	return tags, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("samsara: http %d on %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
