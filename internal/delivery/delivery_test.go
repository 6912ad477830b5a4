package delivery_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/pizza-bot/internal/delivery"
	"github.com/glebk/pizza-bot/internal/domain"
)

var origin = domain.Coordinates{Lat: 55.75, Lon: 37.62}

// north returns the point distanceKm due north of pos
func north(pos domain.Coordinates, distanceKm float64) domain.Coordinates {
	return domain.Coordinates{
		Lat: pos.Lat + distanceKm/delivery.EarthRadiusKm*180/math.Pi,
		Lon: pos.Lon,
	}
}

type staticDirectory struct {
	sites []domain.Site
	err   error
	calls int
}

func (d *staticDirectory) Sites(context.Context) ([]domain.Site, error) {
	d.calls++
	return d.sites, d.err
}

func TestDistanceKm(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		assert.Equal(t, 0.0, delivery.DistanceKm(origin, origin))
	})

	t.Run("symmetric", func(t *testing.T) {
		other := domain.Coordinates{Lat: 59.93, Lon: 30.31}
		assert.Equal(t, delivery.DistanceKm(origin, other), delivery.DistanceKm(other, origin))
	})

	t.Run("moscow to saint petersburg", func(t *testing.T) {
		d := delivery.DistanceKm(origin, domain.Coordinates{Lat: 59.9386, Lon: 30.3141})
		assert.InDelta(t, 634, d, 5)
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		d := delivery.DistanceKm(origin, north(origin, 3.14159))
		assert.Equal(t, 3.14, d)
	})
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		band     domain.QuoteBand
		fee      int
	}{
		{name: "zero", distance: 0, band: domain.BandPickupSuggested, fee: 0},
		{name: "scenario A", distance: 0.3, band: domain.BandPickupSuggested, fee: 0},
		{name: "pickup upper bound", distance: 0.5, band: domain.BandPickupSuggested, fee: 0},
		{name: "just above pickup", distance: 0.51, band: domain.BandShortRange, fee: 100},
		{name: "scenario B", distance: 3.0, band: domain.BandShortRange, fee: 100},
		{name: "short upper bound", distance: 5, band: domain.BandShortRange, fee: 100},
		{name: "just above short", distance: 5.01, band: domain.BandLongRange, fee: 300},
		{name: "scenario C", distance: 12.0, band: domain.BandLongRange, fee: 300},
		{name: "long upper bound", distance: 20, band: domain.BandLongRange, fee: 300},
		{name: "just above long", distance: 20.01, band: domain.BandOutOfRange, fee: 0},
		{name: "scenario D", distance: 25, band: domain.BandOutOfRange, fee: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, fee := delivery.Price(tt.distance)
			assert.Equal(t, tt.band, band)
			assert.Equal(t, tt.fee, fee)
		})
	}
}

func TestPrice_BandsAreContiguousAndMonotone(t *testing.T) {
	order := map[domain.QuoteBand]int{
		domain.BandPickupSuggested: 0,
		domain.BandShortRange:      1,
		domain.BandLongRange:       2,
		domain.BandOutOfRange:      3,
	}

	prevBand, prevFee := delivery.Price(0)
	for d := 0.0; d <= 30; d += 0.01 {
		band, fee := delivery.Price(d)
		again, againFee := delivery.Price(d)
		require.Equal(t, band, again, "deterministic at %v", d)
		require.Equal(t, fee, againFee, "deterministic at %v", d)

		require.GreaterOrEqual(t, order[band], order[prevBand], "band regressed at %v", d)
		require.LessOrEqual(t, order[band]-order[prevBand], 1, "band skipped at %v", d)
		if band != domain.BandOutOfRange {
			require.GreaterOrEqual(t, fee, prevFee, "fee decreased at %v", d)
		}
		prevBand, prevFee = band, fee
	}
}

func TestNewQuote(t *testing.T) {
	site := domain.NearestSite{Site: domain.Site{Address: "Ленина, 1"}, DistanceKm: 12}
	q := delivery.NewQuote(site)

	assert.Equal(t, domain.BandLongRange, q.Band)
	assert.Equal(t, 300, q.Fee)
	assert.True(t, q.Deliverable())
	assert.Equal(t, site, q.Site)

	far := delivery.NewQuote(domain.NearestSite{DistanceKm: 25})
	assert.False(t, far.Deliverable())
}

func TestResolver_Nearest(t *testing.T) {
	dir := &staticDirectory{sites: []domain.Site{
		{Address: "far", Position: north(origin, 12), CarrierID: 1},
		{Address: "near", Position: north(origin, 3), CarrierID: 2},
		{Address: "farthest", Position: north(origin, 25), CarrierID: 3},
	}}
	resolver := delivery.NewResolver(dir)

	got, err := resolver.Nearest(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, "near", got.Address)
	assert.Equal(t, int64(2), got.CarrierID)
	assert.Equal(t, 3.0, got.DistanceKm)

	again, err := resolver.Nearest(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 2, dir.calls, "directory must be fetched per lookup")
}

func TestResolver_TieKeepsFirst(t *testing.T) {
	dir := &staticDirectory{sites: []domain.Site{
		{Address: "first", Position: north(origin, 1)},
		{Address: "second", Position: north(origin, 1)},
	}}

	got, err := delivery.NewResolver(dir).Nearest(context.Background(), origin)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Address)
}

func TestResolver_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := delivery.NewResolver(&staticDirectory{}).Nearest(context.Background(), origin)
		assert.ErrorIs(t, err, delivery.ErrNoSites)
	})

	t.Run("backend failure", func(t *testing.T) {
		backendErr := errors.New("backend down")
		_, err := delivery.NewResolver(&staticDirectory{err: backendErr}).Nearest(context.Background(), origin)
		assert.ErrorIs(t, err, backendErr)
	})
}
