// Package cdp provides a typed HTTP client over the cdpd read-only query
// API (spec §6.1), mirroring sdk/lending.Client's method-naming convention
// (one method per endpoint, a thin Dial/New constructor, Raw() escape
// hatch) adapted to this API's plain net/http+encoding/json transport
// rather than gRPC.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"membranecore/rpc/modules"
)

// Client provides typed helpers over the cdpd query API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New wraps baseURL ("http://host:port", no trailing slash required) with
// typed query helpers. A nil httpClient defaults to http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Raw exposes the underlying *http.Client for advanced interactions.
func (c *Client) Raw() *http.Client {
	if c == nil {
		return nil
	}
	return c.http
}

// apiError mirrors the {"error": "..."} body rpc.writeResult encodes on
// failure.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("cdp: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("cdp: request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetBasket fetches the singleton Basket (spec §6.1 "GET /baskets/{id}").
func (c *Client) GetBasket(ctx context.Context) (*modules.BasketView, error) {
	view := &modules.BasketView{}
	if err := c.get(ctx, "/baskets/default", view); err != nil {
		return nil, err
	}
	return view, nil
}

// ListPositions fetches every Position owned by owner (bech32 address)
// (spec §6.1 "GET /positions/{owner}").
func (c *Client) ListPositions(ctx context.Context, owner string) ([]*modules.PositionView, error) {
	var views []*modules.PositionView
	path := fmt.Sprintf("/positions/%s", url.PathEscape(owner))
	if err := c.get(ctx, path, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetPosition fetches one Position by (owner, id) (spec §6.1 "GET
// /positions/{owner}/{id}").
func (c *Client) GetPosition(ctx context.Context, owner string, id uint64) (*modules.PositionView, error) {
	view := &modules.PositionView{}
	path := fmt.Sprintf("/positions/%s/%s", url.PathEscape(owner), strconv.FormatUint(id, 10))
	if err := c.get(ctx, path, view); err != nil {
		return nil, err
	}
	return view, nil
}

// QueueSlots fetches every configured PremiumSlot for denom (spec §6.1
// "GET /queue/{denom}/slots").
func (c *Client) QueueSlots(ctx context.Context, denom string) ([]*modules.PremiumSlotView, error) {
	var views []*modules.PremiumSlotView
	path := fmt.Sprintf("/queue/%s/slots", url.PathEscape(denom))
	if err := c.get(ctx, path, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetBid fetches one Bid by (denom, id) (spec §6.1 "GET
// /queue/{denom}/bids/{id}").
func (c *Client) GetBid(ctx context.Context, denom string, id uint64) (*modules.BidView, error) {
	view := &modules.BidView{}
	path := fmt.Sprintf("/queue/%s/bids/%s", url.PathEscape(denom), strconv.FormatUint(id, 10))
	if err := c.get(ctx, path, view); err != nil {
		return nil, err
	}
	return view, nil
}

// GetDebtAuction fetches the singleton in-flight DebtAuction, if any (spec
// §6.1 "GET /auctions/debt").
func (c *Client) GetDebtAuction(ctx context.Context) (*modules.DebtAuctionView, error) {
	view := &modules.DebtAuctionView{}
	if err := c.get(ctx, "/auctions/debt", view); err != nil {
		return nil, err
	}
	return view, nil
}

// GetFeeAuction fetches the in-flight FeeAuction for denom, if any (spec
// §6.1 "GET /auctions/fees/{denom}").
func (c *Client) GetFeeAuction(ctx context.Context, denom string) (*modules.FeeAuctionView, error) {
	view := &modules.FeeAuctionView{}
	path := fmt.Sprintf("/auctions/fees/%s", url.PathEscape(denom))
	if err := c.get(ctx, path, view); err != nil {
		return nil, err
	}
	return view, nil
}
