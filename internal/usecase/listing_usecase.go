package usecase

import (
	"context"
	"fmt"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const listingsFlightKey = "listings"

type listingUsecase struct {
	boardRepo  domain.JobBoardRepository
	cache      domain.ListingCache
	fetchLimit int
	refreshes  singleflight.Group
}

// NewListingUsecase wires the listing lookup service. fetchLimit bounds the
// number of concurrent per-job detail requests (<= 0 means unbounded).
func NewListingUsecase(boardRepo domain.JobBoardRepository, cache domain.ListingCache, fetchLimit int) domain.ListingUsecase {
	return &listingUsecase{
		boardRepo:  boardRepo,
		cache:      cache,
		fetchLimit: fetchLimit,
	}
}

// ListListings returns the cached collection, fetching it on first use.
// Concurrent cold-cache callers share a single upstream fetch.
func (u *listingUsecase) ListListings(ctx context.Context) ([]domain.Listing, error) {
	if listings, ok := u.cache.GetListings(); ok {
		return listings, nil
	}

	// The shared fetch must not die with whichever caller started it
	v, err, shared := u.refreshes.Do(listingsFlightKey, func() (interface{}, error) {
		if listings, ok := u.cache.GetListings(); ok {
			return listings, nil
		}
		listings, err := u.fetchListings(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		u.cache.PutListings(listings)
		logger.Log.Info("Listings cache populated", "count", len(listings))
		return listings, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Log.Debug("Joined in-flight listings fetch")
	}
	return v.([]domain.Listing), nil
}

// Find resolves a job by id: the per-id entry first, then a linear scan of
// the collection. Only hits are cached, so an id added upstream later is
// still found after the collection is refreshed.
func (u *listingUsecase) Find(ctx context.Context, id domain.JobID) (domain.Listing, error) {
	if job, ok := u.cache.GetJob(id); ok {
		return job, nil
	}

	listings, err := u.ListListings(ctx)
	if err != nil {
		return domain.Listing{}, err
	}

	for _, job := range listings {
		if job.ID == id {
			u.cache.PutJob(id, job)
			return job, nil
		}
	}
	return domain.Listing{}, fmt.Errorf("%w: no job found with id '%s'", domain.ErrJobNotFound, id)
}

// GetJob is Find for the HTTP layer; an empty id never matches.
func (u *listingUsecase) GetJob(ctx context.Context, id domain.JobID) (domain.Listing, error) {
	if id == "" {
		return domain.Listing{}, fmt.Errorf("%w: empty id", domain.ErrJobNotFound)
	}
	return u.Find(ctx, id)
}

// fetchListings pulls the board summary and then every job's detail with
// questions. Detail order follows the summary order.
func (u *listingUsecase) fetchListings(ctx context.Context) ([]domain.Listing, error) {
	summaries, err := u.boardRepo.FetchListingsSummary(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]domain.RawJob, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	if u.fetchLimit > 0 {
		g.SetLimit(u.fetchLimit)
	}
	for i, s := range summaries {
		i, s := i, s
		g.Go(func() error {
			job, err := u.boardRepo.FetchListingDetail(gctx, s.ID)
			if err != nil {
				return fmt.Errorf("job %s: %w", s.ID, err)
			}
			details[i] = *job
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return TransformListings(details), nil
}
