package domain

// QuoteBand is the distance-derived delivery category
type QuoteBand string

const (
	BandPickupSuggested QuoteBand = "pickup_suggested"
	BandShortRange      QuoteBand = "short_range"
	BandLongRange       QuoteBand = "long_range"
	BandOutOfRange      QuoteBand = "out_of_range"
)

// DeliveryQuote is the delivery offer computed for a customer position
type DeliveryQuote struct {
	Site NearestSite
	Band QuoteBand
	// Fee is meaningful only when Deliverable returns true
	Fee int
}

// Deliverable reports whether the quote offers delivery at all
func (q DeliveryQuote) Deliverable() bool {
	return q.Band != BandOutOfRange
}
