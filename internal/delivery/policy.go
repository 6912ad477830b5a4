package delivery

import "github.com/glebk/pizza-bot/internal/domain"

// Band upper bounds in kilometers, inclusive
const (
	PickupSuggestedMaxKm = 0.5
	ShortRangeMaxKm      = 5.0
	LongRangeMaxKm       = 20.0
)

// Delivery fees in rubles
const (
	PickupSuggestedFee = 0
	ShortRangeFee      = 100
	LongRangeFee       = 300
)

// Price maps a distance to its quote band and fee.
// The fee of BandOutOfRange is zero and must not be charged.
func Price(distanceKm float64) (domain.QuoteBand, int) {
	switch {
	case distanceKm <= PickupSuggestedMaxKm:
		return domain.BandPickupSuggested, PickupSuggestedFee
	case distanceKm <= ShortRangeMaxKm:
		return domain.BandShortRange, ShortRangeFee
	case distanceKm <= LongRangeMaxKm:
		return domain.BandLongRange, LongRangeFee
	default:
		return domain.BandOutOfRange, 0
	}
}

// NewQuote prices delivery from the nearest site
func NewQuote(site domain.NearestSite) domain.DeliveryQuote {
	band, fee := Price(site.DistanceKm)
	return domain.DeliveryQuote{Site: site, Band: band, Fee: fee}
}
