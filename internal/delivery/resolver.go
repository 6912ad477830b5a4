package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebk/pizza-bot/internal/domain"
)

// ErrNoSites is returned when the site directory is empty
var ErrNoSites = errors.New("site directory is empty")

// SiteDirectory provides the full list of pizzerias
type SiteDirectory interface {
	Sites(ctx context.Context) ([]domain.Site, error)
}

// Resolver finds the site nearest to a position
type Resolver struct {
	directory SiteDirectory
}

// NewResolver creates a new Resolver
func NewResolver(directory SiteDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Nearest fetches the directory and returns the closest site.
// Ties keep the site listed first.
func (r *Resolver) Nearest(ctx context.Context, pos domain.Coordinates) (domain.NearestSite, error) {
	sites, err := r.directory.Sites(ctx)
	if err != nil {
		return domain.NearestSite{}, fmt.Errorf("failed to fetch site directory: %w", err)
	}
	return NearestOf(sites, pos)
}

// NearestOf returns the site of sites closest to pos
func NearestOf(sites []domain.Site, pos domain.Coordinates) (domain.NearestSite, error) {
	if len(sites) == 0 {
		return domain.NearestSite{}, ErrNoSites
	}

	best := domain.NearestSite{Site: sites[0], DistanceKm: DistanceKm(sites[0].Position, pos)}
	for _, site := range sites[1:] {
		d := DistanceKm(site.Position, pos)
		if d < best.DistanceKm {
			best = domain.NearestSite{Site: site, DistanceKm: d}
		}
	}
	return best, nil
}
