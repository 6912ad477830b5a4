package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"

	"github.com/glebk/pizza-bot/internal/domain"
)

// Flow slugs used by the bot
const (
	PizzeriaFlow        = "pizzeria"
	CustomerAddressFlow = "customer-address"
)

type siteEntry struct {
	Address   string  `mapstructure:"address"`
	Alias     string  `mapstructure:"alias"`
	Lat       float64 `mapstructure:"lat"`
	Lon       float64 `mapstructure:"lon"`
	CarrierID int64   `mapstructure:"carrier-id"`
}

type customerAddressEntry struct {
	CustomerID int64   `mapstructure:"customer-id"`
	Lat        float64 `mapstructure:"lat"`
	Lon        float64 `mapstructure:"lon"`
}

// FlowEntries returns the raw entries of a flow.
// Numbers are kept as json.Number so large identifiers survive decoding.
func (c *Client) FlowEntries(ctx context.Context, slug string) ([]map[string]any, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "list flow entries",
		method: http.MethodGet,
		path:   "/v2/flows/" + url.PathEscape(slug) + "/entries",
	}, &resp)
	if err != nil {
		return nil, err
	}

	entries := make([]map[string]any, 0, len(resp.Data))
	for _, raw := range resp.Data {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode %s entry: %w", slug, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CreateEntry appends an entry with the given fields to a flow
func (c *Client) CreateEntry(ctx context.Context, slug string, fields map[string]any) error {
	data := map[string]any{"type": "entry"}
	for k, v := range fields {
		data[k] = v
	}
	return c.do(ctx, request{
		op:     "create flow entry",
		method: http.MethodPost,
		path:   "/v2/flows/" + url.PathEscape(slug) + "/entries",
		body:   map[string]any{"data": data},
	}, nil)
}

// Sites returns the full pizzeria directory
func (c *Client) Sites(ctx context.Context) ([]domain.Site, error) {
	entries, err := c.FlowEntries(ctx, PizzeriaFlow)
	if err != nil {
		return nil, err
	}

	sites := make([]domain.Site, 0, len(entries))
	for _, raw := range entries {
		var e siteEntry
		if err := decodeEntry(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to decode pizzeria entry: %w", err)
		}
		sites = append(sites, domain.Site{
			Address:   e.Address,
			Alias:     e.Alias,
			Position:  domain.Coordinates{Lat: e.Lat, Lon: e.Lon},
			CarrierID: e.CarrierID,
		})
	}
	return sites, nil
}

// SaveCustomerAddress appends a delivery address to the customer address log
func (c *Client) SaveCustomerAddress(ctx context.Context, addr domain.CustomerAddress) error {
	return c.CreateEntry(ctx, CustomerAddressFlow, map[string]any{
		"customer-id": addr.CustomerID,
		"lat":         addr.Position.Lat,
		"lon":         addr.Position.Lon,
	})
}

// CustomerAddresses returns the saved addresses of a customer, oldest first
func (c *Client) CustomerAddresses(ctx context.Context, customerID int64) ([]domain.CustomerAddress, error) {
	entries, err := c.FlowEntries(ctx, CustomerAddressFlow)
	if err != nil {
		return nil, err
	}

	var addrs []domain.CustomerAddress
	for _, raw := range entries {
		var e customerAddressEntry
		if err := decodeEntry(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to decode customer address entry: %w", err)
		}
		if e.CustomerID != customerID {
			continue
		}
		addrs = append(addrs, domain.CustomerAddress{
			CustomerID: e.CustomerID,
			Position:   domain.Coordinates{Lat: e.Lat, Lon: e.Lon},
		})
	}
	return addrs, nil
}

func decodeEntry(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// FlowSpec describes a flow to create
type FlowSpec struct {
	Name        string
	Slug        string
	Description string
	Enabled     bool
}

// CreateFlow creates a flow and returns its ID
func (c *Client) CreateFlow(ctx context.Context, spec FlowSpec) (string, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "create flow",
		method: http.MethodPost,
		path:   "/v2/flows",
		body: map[string]any{"data": map[string]any{
			"type":        "flow",
			"name":        spec.Name,
			"slug":        spec.Slug,
			"description": spec.Description,
			"enabled":     spec.Enabled,
		}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// FieldSpec describes a flow field to create
type FieldSpec struct {
	FlowID      string
	Name        string
	Slug        string
	FieldType   string
	Description string
	Required    bool
	Enabled     bool
}

// CreateField creates a field on a flow and returns its ID
func (c *Client) CreateField(ctx context.Context, spec FieldSpec) (string, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "create flow field",
		method: http.MethodPost,
		path:   "/v2/fields",
		body: map[string]any{"data": map[string]any{
			"type":        "field",
			"name":        spec.Name,
			"slug":        spec.Slug,
			"field_type":  spec.FieldType,
			"description": spec.Description,
			"required":    spec.Required,
			"enabled":     spec.Enabled,
			"relationships": map[string]any{
				"flow": map[string]any{
					"data": map[string]any{"type": "flow", "id": spec.FlowID},
				},
			},
		}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}
