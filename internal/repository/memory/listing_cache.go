package memory

import (
	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/cache"
)

// ListingsKey holds the whole collection; jobs live under JobKeyPrefix+id.
const (
	ListingsKey  = "listings"
	JobKeyPrefix = "job:"
)

type listingCache struct {
	store *cache.Store
}

func NewListingCache(store *cache.Store) domain.ListingCache {
	return &listingCache{store: store}
}

func (c *listingCache) GetListings() ([]domain.Listing, bool) {
	v, ok := c.store.Get(ListingsKey)
	if !ok {
		return nil, false
	}
	listings, ok := v.([]domain.Listing)
	return listings, ok
}

func (c *listingCache) PutListings(listings []domain.Listing) {
	c.store.Put(ListingsKey, listings)
}

func (c *listingCache) GetJob(id domain.JobID) (domain.Listing, bool) {
	v, ok := c.store.Get(JobKeyPrefix + id.String())
	if !ok {
		return domain.Listing{}, false
	}
	listing, ok := v.(domain.Listing)
	return listing, ok
}

func (c *listingCache) PutJob(id domain.JobID, listing domain.Listing) {
	c.store.Put(JobKeyPrefix+id.String(), listing)
}

func (c *listingCache) Len() int {
	return c.store.Len()
}
