package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/pizza-bot/internal/domain"
	"github.com/glebk/pizza-bot/internal/repository/sqlite"
)

func newDatabase(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabase_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, db.Close())

	db, err = sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOrderRepository(t *testing.T) {
	repo := sqlite.NewOrderRepository(newDatabase(t))

	first := &domain.Order{
		ID:          "order-1",
		CustomerID:  7,
		Method:      domain.DeliveryMethodDelivery,
		CartTotal:   1150,
		DeliveryFee: 100,
		Position:    domain.Coordinates{Lat: 55.75, Lon: 37.62},
		SiteAddress: "Ленина, 1",
		CarrierID:   99,
		CreatedAt:   time.Now().Add(-time.Minute).UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Create(first))

	second := &domain.Order{ID: "order-2", CustomerID: 7, Method: domain.DeliveryMethodDelivery, SiteAddress: "Мира, 5"}
	require.NoError(t, repo.Create(second))
	assert.False(t, second.CreatedAt.IsZero())

	require.NoError(t, repo.Create(&domain.Order{ID: "order-3", CustomerID: 8, Method: domain.DeliveryMethodDelivery}))

	got, err := repo.GetByID("order-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.CustomerID, got.CustomerID)
	assert.Equal(t, first.Method, got.Method)
	assert.Equal(t, 1250, got.Sum())
	assert.Equal(t, first.Position, got.Position)
	assert.Equal(t, first.SiteAddress, got.SiteAddress)
	assert.Equal(t, first.CarrierID, got.CarrierID)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	missing, err := repo.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	orders, err := repo.ListByCustomer(7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-1", orders[0].ID)
	assert.Equal(t, "order-2", orders[1].ID)

	assert.Error(t, repo.Create(&domain.Order{ID: "order-1", CustomerID: 1, Method: domain.DeliveryMethodDelivery}))
}

func TestImageRepository(t *testing.T) {
	repo := sqlite.NewImageRepository(newDatabase(t))

	got, err := repo.Get("img-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Save(&domain.ProductImage{ImageID: "img-1", Path: "images/img-1.png", SourceURL: "https://cdn/a.png"}))
	require.NoError(t, repo.Save(&domain.ProductImage{ImageID: "img-1", Path: "images/img-1.jpg", SourceURL: "https://cdn/a.jpg"}))

	got, err = repo.Get("img-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.ProductImage{ImageID: "img-1", Path: "images/img-1.jpg", SourceURL: "https://cdn/a.jpg"}, got)

	require.NoError(t, repo.Delete("img-1"))
	got, err = repo.Get("img-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
