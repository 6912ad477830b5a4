package commerce_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/pizza-bot/internal/commerce"
	"github.com/glebk/pizza-bot/internal/domain"
)

// fakeBackend is a minimal in-memory commerce backend
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	prices   map[string]int // sku -> amount
	products map[string]int // product id -> unit amount
	carts    map[string][]cartLine
	entries  map[string][]map[string]any
	tokens   []string
	nextItem int
}

type cartLine struct {
	id        string
	productID string
	quantity  int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{
		t:        t,
		prices:   map[string]int{},
		products: map[string]int{"margherita": 500, "pepperoni": 650},
		carts:    map[string][]cartLine{},
		entries:  map[string][]map[string]any{},
	}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if r.URL.Path != "/oauth/access_token" {
		fb.tokens = append(fb.tokens, r.Header.Get("Authorization"))
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/oauth/access_token":
		require.NoError(fb.t, r.ParseForm())
		if r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors":[{"status":401,"title":"Unauthorized"}]}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600,"token_type":"Bearer"}`)

	case len(parts) == 4 && parts[0] == "pcm" && parts[1] == "pricebooks" && parts[3] == "prices":
		fb.servePrices(w, r)

	case len(parts) == 4 && parts[0] == "v2" && parts[1] == "carts" && parts[3] == "items":
		fb.serveCart(w, r, parts[2])

	case len(parts) == 5 && parts[0] == "v2" && parts[1] == "carts" && r.Method == http.MethodDelete:
		lines := fb.carts[parts[2]]
		for i, l := range lines {
			if l.id == parts[4] {
				fb.carts[parts[2]] = append(lines[:i], lines[i+1:]...)
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{"data":[]}`)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":[{"status":404,"title":"Not Found","detail":"cart item not found"}]}`)

	case len(parts) == 4 && parts[0] == "v2" && parts[1] == "flows" && parts[3] == "entries":
		fb.serveEntries(w, r, parts[2])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fb *fakeBackend) servePrices(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("page[limit]"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("page[offset]"))

	skus := make([]string, 0, len(fb.prices))
	for i := 0; i < len(fb.prices); i++ {
		skus = append(skus, fmt.Sprintf("sku-%03d", i))
	}

	var data []map[string]any
	for i := offset; i < len(skus) && i < offset+limit; i++ {
		data = append(data, map[string]any{
			"type": "product-price",
			"attributes": map[string]any{
				"sku": skus[i],
				"currencies": map[string]any{
					"RUB": map[string]any{"amount": fb.prices[skus[i]], "includes_tax": true},
				},
			},
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (fb *fakeBackend) serveCart(w http.ResponseWriter, r *http.Request, cartID string) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Data struct {
				ID       string `json:"id"`
				Quantity int    `json:"quantity"`
			} `json:"data"`
		}
		require.NoError(fb.t, json.NewDecoder(r.Body).Decode(&body))
		if _, ok := fb.products[body.Data.ID]; !ok {
			// The backend answers 2xx-shaped bodies with an errors array for unknown products.
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"errors":[{"status":404,"title":"Product not found"}]}`)
			return
		}
		fb.nextItem++
		fb.carts[cartID] = append(fb.carts[cartID], cartLine{
			id:        fmt.Sprintf("item-%d", fb.nextItem),
			productID: body.Data.ID,
			quantity:  body.Data.Quantity,
		})
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":[]}`)

	case http.MethodGet:
		total := 0
		var data []map[string]any
		for _, l := range fb.carts[cartID] {
			unit := fb.products[l.productID]
			total += unit * l.quantity
			data = append(data, map[string]any{
				"id":         l.id,
				"product_id": l.productID,
				"name":       l.productID,
				"quantity":   l.quantity,
				"meta": map[string]any{"display_price": map[string]any{"with_tax": map[string]any{
					"unit":  map[string]any{"amount": unit, "formatted": fmt.Sprintf("%d.00", unit)},
					"value": map[string]any{"amount": unit * l.quantity, "formatted": fmt.Sprintf("%d.00", unit*l.quantity)},
				}}},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": data,
			"meta": map[string]any{"display_price": map[string]any{"with_tax": map[string]any{
				"amount": total, "formatted": fmt.Sprintf("%d.00", total),
			}}},
		})
	}
}

func (fb *fakeBackend) serveEntries(w http.ResponseWriter, r *http.Request, slug string) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(fb.t, json.NewDecoder(r.Body).Decode(&body))
		fb.entries[slug] = append(fb.entries[slug], body.Data)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": body.Data})
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"data": fb.entries[slug]})
	}
}

func newClient(srv *httptest.Server, tokens commerce.TokenSource) *commerce.Client {
	return commerce.New(srv.URL, tokens, commerce.WithPriceBook("book-1"), commerce.WithHTTPClient(srv.Client()))
}

func TestClient_MintToken(t *testing.T) {
	_, srv := newFakeBackend(t)
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{}))

	tok, err := client.MintToken(context.Background(), "client", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Value)
	assert.Equal(t, time.Hour, tok.TTL)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	_, err = client.MintToken(context.Background(), "client", "wrong")
	require.Error(t, err)
	assert.True(t, commerce.IsAPIError(err))
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestClient_ReadsTokenOnEveryCall(t *testing.T) {
	fb, srv := newFakeBackend(t)
	store := commerce.NewTokenStore(commerce.AccessToken{Value: "first"})
	client := newClient(srv, store)
	ctx := context.Background()

	_, err := client.Cart(ctx, "1")
	require.NoError(t, err)

	store.Set(commerce.AccessToken{Value: "second"})
	_, err = client.Cart(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, fb.tokens)
}

func TestClient_PriceBySKU_Paginates(t *testing.T) {
	fb, srv := newFakeBackend(t)
	for i := 0; i < 120; i++ {
		fb.prices[fmt.Sprintf("sku-%03d", i)] = 100 + i
	}
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}))
	ctx := context.Background()

	price, err := client.PriceBySKU(ctx, "sku-003")
	require.NoError(t, err)
	assert.Equal(t, 103, price)

	price, err = client.PriceBySKU(ctx, "sku-117")
	require.NoError(t, err)
	assert.Equal(t, 217, price)

	_, err = client.PriceBySKU(ctx, "missing")
	assert.ErrorIs(t, err, commerce.ErrPriceNotFound)
}

func TestClient_CartRoundTrip(t *testing.T) {
	_, srv := newFakeBackend(t)
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}))
	ctx := context.Background()

	require.NoError(t, client.AddToCart(ctx, "42", "pepperoni", 1))
	before, err := client.Cart(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "650.00", before.TotalFormatted)

	require.NoError(t, client.AddToCart(ctx, "42", "margherita", 1))
	withItem, err := client.Cart(ctx, "42")
	require.NoError(t, err)
	require.Len(t, withItem.Items, 2)
	assert.Equal(t, 1150, withItem.Total)

	added := withItem.Items[1]
	assert.Equal(t, "margherita", added.ProductID)
	assert.Equal(t, "500.00", added.UnitPriceFormatted)

	require.NoError(t, client.RemoveFromCart(ctx, "42", added.ID))
	after, err := client.Cart(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, before.TotalFormatted, after.TotalFormatted)
	assert.Equal(t, before.Total, after.Total)
}

func TestClient_AddToCart_ErrorPayload(t *testing.T) {
	_, srv := newFakeBackend(t)
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}))

	err := client.AddToCart(context.Background(), "42", "calzone", 1)
	require.Error(t, err)

	var apiErr *commerce.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "add cart item", apiErr.Op)
	assert.Contains(t, apiErr.Detail, "Product not found")
}

func TestClient_RemoveFromCart_NotFound(t *testing.T) {
	_, srv := newFakeBackend(t)
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}))

	err := client.RemoveFromCart(context.Background(), "42", "nope")
	var apiErr *commerce.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_SitesAndAddresses(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.entries[commerce.PizzeriaFlow] = []map[string]any{
		{"id": "e1", "type": "entry", "address": "Ленина, 1", "alias": "center", "lat": 55.75, "lon": 37.61, "carrier-id": 987654321012},
		{"id": "e2", "type": "entry", "address": "Мира, 5", "alias": "north", "lat": "55.80", "lon": "37.63", "carrier-id": "12"},
	}
	client := newClient(srv, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}))
	ctx := context.Background()

	sites, err := client.Sites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, domain.Site{
		Address:   "Ленина, 1",
		Alias:     "center",
		Position:  domain.Coordinates{Lat: 55.75, Lon: 37.61},
		CarrierID: 987654321012,
	}, sites[0])
	assert.Equal(t, int64(12), sites[1].CarrierID)
	assert.InDelta(t, 55.80, sites[1].Position.Lat, 1e-9)

	require.NoError(t, client.SaveCustomerAddress(ctx, domain.CustomerAddress{
		CustomerID: 7, Position: domain.Coordinates{Lat: 1.5, Lon: 2.5},
	}))
	require.NoError(t, client.SaveCustomerAddress(ctx, domain.CustomerAddress{
		CustomerID: 8, Position: domain.Coordinates{Lat: 3, Lon: 4},
	}))

	addrs, err := client.CustomerAddresses(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []domain.CustomerAddress{{CustomerID: 7, Position: domain.Coordinates{Lat: 1.5, Lon: 2.5}}}, addrs)
	assert.Equal(t, "entry", fb.entries[commerce.CustomerAddressFlow][0]["type"])
}

func TestClient_ProductsAndFiles(t *testing.T) {
	var gotChannel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pcm/products":
			gotChannel = r.Header.Get("EP-Channel")
			fmt.Fprint(w, `{"data":[{"id":"p1","attributes":{"name":"Маргарита","sku":"1","description":"сыр"},
				"relationships":{"main_image":{"data":{"id":"img-1","type":"file"}}}},
				{"id":"p2","attributes":{"name":"Без фото","sku":"2"},"relationships":{}}]}`)
		case "/pcm/products/p1":
			fmt.Fprint(w, `{"data":{"id":"p1","attributes":{"name":"Маргарита","sku":"1","description":"сыр"},
				"relationships":{"main_image":{"data":{"id":"img-1","type":"file"}}}}}`)
		case "/v2/files/img-1":
			fmt.Fprint(w, `{"data":{"id":"img-1","link":{"href":"https://cdn.example/img-1.png"}}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		}
	}))
	defer srv.Close()

	client := commerce.New(srv.URL, commerce.NewTokenStore(commerce.AccessToken{Value: "t"}), commerce.WithChannel("bot"))
	ctx := context.Background()

	products, err := client.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bot", gotChannel)
	assert.Equal(t, []domain.Product{
		{ID: "p1", Name: "Маргарита", Description: "сыр", SKU: "1", ImageID: "img-1"},
		{ID: "p2", Name: "Без фото", SKU: "2"},
	}, products)

	product, err := client.Product(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "img-1", product.ImageID)

	file, err := client.File(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img-1.png", file.URL)

	_, err = client.Product(ctx, "broken")
	var apiErr *commerce.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
