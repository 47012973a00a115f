package memory

import (
	"testing"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/cache"

	"github.com/stretchr/testify/assert"
)

func TestListingCache(t *testing.T) {
	store := cache.New()
	c := NewListingCache(store)

	_, ok := c.GetListings()
	assert.False(t, ok)

	listings := []domain.Listing{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}
	c.PutListings(listings)
	got, ok := c.GetListings()
	assert.True(t, ok)
	assert.Equal(t, listings, got)

	c.PutJob("2", listings[1])
	job, ok := c.GetJob("2")
	assert.True(t, ok)
	assert.Equal(t, "B", job.Title)

	_, ok = c.GetJob("3")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestListingCacheEntriesAreIndependent(t *testing.T) {
	c := NewListingCache(cache.New())
	c.PutJob("1", domain.Listing{ID: "1", Title: "Old"})
	c.PutListings([]domain.Listing{{ID: "1", Title: "New"}})

	job, _ := c.GetJob("1")
	assert.Equal(t, "Old", job.Title)
}

func TestListingCacheIgnoresForeignValues(t *testing.T) {
	store := cache.New()
	store.Put(ListingsKey, "not a slice")
	c := NewListingCache(store)

	_, ok := c.GetListings()
	assert.False(t, ok)
}

func TestListingCacheJobKeysDoNotShadowCollection(t *testing.T) {
	c := NewListingCache(cache.New())
	c.PutListings([]domain.Listing{{ID: "1"}})
	c.PutJob(ListingsKey, domain.Listing{ID: ListingsKey})

	listings, ok := c.GetListings()
	assert.True(t, ok)
	assert.Len(t, listings, 1)
	assert.Equal(t, 2, c.Len())
}
