package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/pizza-bot/internal/commerce"
	"github.com/glebk/pizza-bot/internal/loader"
	"github.com/glebk/pizza-bot/internal/logging"
)

type fakeBackend struct {
	skus      []string
	products  []commerce.ProductSpec
	prices    map[string]int
	files     []string
	relations map[string]string
	entries   []map[string]any
	flows     []commerce.FlowSpec
	fields    []commerce.FieldSpec

	failPrice bool
}

func newFakeBackend(skus ...string) *fakeBackend {
	return &fakeBackend{skus: skus, prices: map[string]int{}, relations: map[string]string{}}
}

func (f *fakeBackend) ProductSKUs(context.Context) ([]string, error) { return f.skus, nil }

func (f *fakeBackend) CreateProduct(_ context.Context, spec commerce.ProductSpec) (string, error) {
	f.products = append(f.products, spec)
	return "prod-" + spec.SKU, nil
}

func (f *fakeBackend) AddPrice(_ context.Context, sku string, amount int) error {
	if f.failPrice {
		return errors.New("price book unavailable")
	}
	f.prices[sku] = amount
	return nil
}

func (f *fakeBackend) CreateFileFromURL(_ context.Context, fileURL string) (string, error) {
	f.files = append(f.files, fileURL)
	return "file-" + fileURL, nil
}

func (f *fakeBackend) RelateMainImage(_ context.Context, productID, fileID string) error {
	f.relations[productID] = fileID
	return nil
}

func (f *fakeBackend) CreateEntry(_ context.Context, flowSlug string, fields map[string]any) error {
	fields["_flow"] = flowSlug
	f.entries = append(f.entries, fields)
	return nil
}

func (f *fakeBackend) CreateFlow(_ context.Context, spec commerce.FlowSpec) (string, error) {
	f.flows = append(f.flows, spec)
	return "flow-1", nil
}

func (f *fakeBackend) CreateField(_ context.Context, spec commerce.FieldSpec) (string, error) {
	f.fields = append(f.fields, spec)
	return "field-1", nil
}

const menuJSON = `[
  {"id": 1, "name": "Margherita", "description": "Tomato, mozzarella", "price": 399,
   "product_image": {"url": "https://img.example/1.jpg"}},
  {"id": 2, "name": "Pepperoni Classic", "description": "Spicy", "price": 499,
   "product_image": {"url": "https://img.example/2.jpg"}}
]`

const addressesYAML = `
- alias: Afimall
  address:
    full: Москва, набережная Пресненская дом 2
  coordinates:
    lat: "55.749299"
    lon: "37.539644"
- alias: Central
  address:
    full: Москва, Тверская 1
  coordinates:
    lat: 55.757
    lon: 37.615
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile(t *testing.T) {
	var menu []loader.MenuItem
	require.NoError(t, loader.ReadFile(writeFile(t, "menu.json", menuJSON), &menu))
	require.Len(t, menu, 2)
	assert.Equal(t, 2, menu[1].ID)
	assert.Equal(t, 499, menu[1].Price)
	assert.Equal(t, "https://img.example/2.jpg", menu[1].Image.URL)

	var pizzerias []loader.Pizzeria
	require.NoError(t, loader.ReadFile(writeFile(t, "addresses.yaml", addressesYAML), &pizzerias))
	require.Len(t, pizzerias, 2)
	assert.Equal(t, loader.Degrees(55.749299), pizzerias[0].Coordinates.Lat)
	assert.Equal(t, loader.Degrees(37.615), pizzerias[1].Coordinates.Lon)
	assert.Equal(t, "Москва, Тверская 1", pizzerias[1].Address.Full)
}

func TestReadFile_Errors(t *testing.T) {
	var menu []loader.MenuItem
	assert.Error(t, loader.ReadFile(filepath.Join(t.TempDir(), "missing.json"), &menu))

	var pizzerias []loader.Pizzeria
	bad := writeFile(t, "bad.yaml", "- coordinates:\n    lat: north\n")
	assert.Error(t, loader.ReadFile(bad, &pizzerias))
}

func TestLoadProducts_SkipsExistingSKUs(t *testing.T) {
	var menu []loader.MenuItem
	require.NoError(t, loader.ReadFile(writeFile(t, "menu.json", menuJSON), &menu))

	backend := newFakeBackend("1")
	l := loader.New(backend, logging.NewNop())

	created, err := l.LoadProducts(context.Background(), menu)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, backend.products, 1)
	assert.Equal(t, commerce.ProductSpec{
		Name:        "Pepperoni Classic",
		SKU:         "2",
		Slug:        "2-pepperoni-classic",
		Description: "Spicy",
	}, backend.products[0])
	assert.Equal(t, map[string]int{"2": 499}, backend.prices)
	assert.Equal(t, []string{"https://img.example/2.jpg"}, backend.files)
	assert.Equal(t, "file-https://img.example/2.jpg", backend.relations["prod-2"])
}

func TestLoadProducts_DuplicateInMenu(t *testing.T) {
	menu := []loader.MenuItem{{ID: 5, Name: "Diablo"}, {ID: 5, Name: "Diablo"}}
	backend := newFakeBackend()

	created, err := loader.New(backend, logging.NewNop()).LoadProducts(context.Background(), menu)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Empty(t, backend.files)
}

func TestLoadProducts_StopsOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failPrice = true

	created, err := loader.New(backend, logging.NewNop()).LoadProducts(context.Background(),
		[]loader.MenuItem{{ID: 1, Name: "Margherita"}, {ID: 2, Name: "Pepperoni"}})
	assert.ErrorContains(t, err, "price book unavailable")
	assert.Equal(t, 0, created)
	assert.Len(t, backend.products, 1)
}

func TestLoadPizzerias(t *testing.T) {
	var pizzerias []loader.Pizzeria
	require.NoError(t, loader.ReadFile(writeFile(t, "addresses.yaml", addressesYAML), &pizzerias))

	backend := newFakeBackend()
	require.NoError(t, loader.New(backend, logging.NewNop()).LoadPizzerias(context.Background(), pizzerias))

	require.Len(t, backend.entries, 2)
	assert.Equal(t, map[string]any{
		"_flow":      commerce.PizzeriaFlow,
		"address":    "Москва, набережная Пресненская дом 2",
		"alias":      "Afimall",
		"lat":        55.749299,
		"lon":        37.539644,
		"carrier-id": 0,
	}, backend.entries[0])
}

func TestCreateFlowAndField(t *testing.T) {
	backend := newFakeBackend()
	l := loader.New(backend, logging.NewNop())

	flowID, err := l.CreateFlow(context.Background(), "Pizzeria", "pizzeria", "Pizzeria directory")
	require.NoError(t, err)
	assert.Equal(t, "flow-1", flowID)
	assert.True(t, backend.flows[0].Enabled)

	fieldID, err := l.CreateField(context.Background(), flowID, "Carrier", "carrier-id", "integer", "Telegram ID of the carrier")
	require.NoError(t, err)
	assert.Equal(t, "field-1", fieldID)
	assert.Equal(t, commerce.FieldSpec{
		FlowID:      "flow-1",
		Name:        "Carrier",
		Slug:        "carrier-id",
		FieldType:   "integer",
		Description: "Telegram ID of the carrier",
		Required:    true,
		Enabled:     true,
	}, backend.fields[0])
}
