package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/metrics"
	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/service/ports"
)

// ReviewService records reviews and keeps Restaurant.Rating equal to the
// rounded mean of all reviews.
type ReviewService struct {
	store ports.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewReviewService(store ports.Store, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		store: store,
		log:   log.With().Str("component", "review").Logger(),
		now:   time.Now,
	}
}

// Add inserts the actor's review and recomputes the restaurant rating in
// the same transaction.  The restaurant row stays locked until commit so
// concurrent reviews recompute from a consistent set.
func (s *ReviewService) Add(ctx context.Context, actor model.Actor, restaurantID uint64, rating int, comment *string) error {
	if !actor.Is(model.RoleCustomer) {
		return model.PermissionDenied("only customers can add reviews")
	}
	if rating < 1 || rating > 5 {
		return model.InvalidRequest("rating must be between 1 and 5")
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	var newRating float64
	err := s.store.WithinTx(ctx, func(r ports.Repos) error {
		if _, err := r.Restaurants().GetByIDForUpdate(ctx, restaurantID); err != nil {
			return err
		}
		exists, err := r.Reviews().Exists(ctx, actor.UserID, restaurantID)
		if err != nil {
			return err
		}
		if exists {
			return model.Conflict("you have already reviewed this restaurant")
		}
		rev := &model.Review{
			UserID:       actor.UserID,
			RestaurantID: restaurantID,
			Rating:       rating,
			Comment:      comment,
			CreatedAt:    s.now().UTC(),
		}
		if err := r.Reviews().Create(ctx, rev); err != nil {
			return err
		}
		sum, count, err := r.Reviews().Totals(ctx, restaurantID)
		if err != nil {
			return err
		}
		if count == 0 {
			return errors.New("review not visible after insert")
		}
		newRating = model.RoundRating(float64(sum) / float64(count))
		return r.Restaurants().UpdateRating(ctx, restaurantID, newRating)
	})
	if err != nil {
		return model.AsInternal("failed to add review", err)
	}
	metrics.IncReview()
	s.log.Info().Uint64("restaurant_id", restaurantID).Uint64("user_id", actor.UserID).Float64("rating", newRating).Msg("review added")
	return nil
}

// List returns the reviews of an existing restaurant.
func (s *ReviewService) List(ctx context.Context, restaurantID uint64) ([]model.ReviewView, error) {
	if _, err := s.store.Restaurants().GetByID(ctx, restaurantID); err != nil {
		return nil, model.AsInternal("failed to load restaurant", err)
	}
	items, err := s.store.Reviews().ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, model.AsInternal("failed to load reviews", err)
	}
	return items, nil
}
