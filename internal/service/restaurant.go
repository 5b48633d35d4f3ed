package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/service/ports"
)

// RestaurantService covers restaurant search, detail and creation.
type RestaurantService struct {
	store ports.Store
	log   zerolog.Logger
}

func NewRestaurantService(store ports.Store, log zerolog.Logger) *RestaurantService {
	return &RestaurantService{store: store, log: log.With().Str("component", "restaurant").Logger()}
}

// RestaurantDetail is a restaurant together with its tables.
type RestaurantDetail struct {
	model.Restaurant
	Tables []model.Table `json:"tables"`
}

// Search filters restaurants.  No match yields an empty slice.
func (s *RestaurantService) Search(ctx context.Context, f model.RestaurantFilter) ([]model.Restaurant, error) {
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.ZipCode = strings.TrimSpace(f.ZipCode)
	f.Cuisine = strings.TrimSpace(f.Cuisine)
	items, err := s.store.Restaurants().Search(ctx, f)
	if err != nil {
		return nil, model.AsInternal("failed to search restaurants", err)
	}
	if items == nil {
		items = []model.Restaurant{}
	}
	return items, nil
}

// Get returns a restaurant and its tables.
func (s *RestaurantService) Get(ctx context.Context, id uint64) (*RestaurantDetail, error) {
	r, err := s.store.Restaurants().GetByID(ctx, id)
	if err != nil {
		return nil, model.AsInternal("failed to load restaurant", err)
	}
	tables, err := s.store.Tables().ListByRestaurant(ctx, id)
	if err != nil {
		return nil, model.AsInternal("failed to load tables", err)
	}
	return &RestaurantDetail{Restaurant: *r, Tables: tables}, nil
}

// Add creates a restaurant and its initial tables in one transaction.
// Only restaurant managers may add restaurants.
func (s *RestaurantService) Add(ctx context.Context, actor model.Actor, in model.NewRestaurant) (*model.Restaurant, error) {
	if !actor.Is(model.RoleRestaurantManager) {
		return nil, model.PermissionDenied("only restaurant managers can add restaurants")
	}
	rest, err := validateRestaurant(in)
	if err != nil {
		return nil, err
	}
	tables := make([]model.Table, 0, len(in.Tables))
	for i, nt := range in.Tables {
		t, err := validateTable(nt)
		if err != nil {
			return nil, model.InvalidRequest(fmt.Sprintf("table %d: %s", i+1, err.Error()))
		}
		tables = append(tables, t)
	}

	err = s.store.WithinTx(ctx, func(r ports.Repos) error {
		if err := r.Restaurants().Create(ctx, rest); err != nil {
			return err
		}
		for i := range tables {
			tables[i].RestaurantID = rest.ID
			if err := r.Tables().Create(ctx, &tables[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.AsInternal("failed to add restaurant", err)
	}
	s.log.Info().Uint64("restaurant_id", rest.ID).Int("tables", len(tables)).Uint64("manager_id", actor.UserID).Msg("restaurant added")
	return rest, nil
}

// AddTable adds a table to an existing restaurant.
func (s *RestaurantService) AddTable(ctx context.Context, actor model.Actor, restaurantID uint64, in model.NewTable) (*model.Table, error) {
	if !actor.Is(model.RoleRestaurantManager) {
		return nil, model.PermissionDenied("only restaurant managers can add tables")
	}
	t, err := validateTable(in)
	if err != nil {
		return nil, model.InvalidRequest(err.Error())
	}
	t.RestaurantID = restaurantID
	err = s.store.WithinTx(ctx, func(r ports.Repos) error {
		if _, err := r.Restaurants().GetByIDForUpdate(ctx, restaurantID); err != nil {
			return err
		}
		return r.Tables().Create(ctx, &t)
	})
	if err != nil {
		return nil, model.AsInternal("failed to add table", err)
	}
	return &t, nil
}

func validateRestaurant(in model.NewRestaurant) (*model.Restaurant, error) {
	r := &model.Restaurant{
		Name:       strings.TrimSpace(in.Name),
		Cuisine:    strings.TrimSpace(in.Cuisine),
		CostRating: in.CostRating,
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		ZipCode:    strings.TrimSpace(in.ZipCode),
		Contact:    in.Contact,
		Rating:     in.Rating,
	}
	switch {
	case r.Name == "":
		return nil, model.InvalidRequest("name is required")
	case r.City == "" || r.State == "" || r.ZipCode == "":
		return nil, model.InvalidRequest("city, state and zip_code are required")
	case r.CostRating < 0 || r.CostRating > 5:
		return nil, model.InvalidRequest("cost_rating must be between 0 and 5")
	case r.Rating < 0 || r.Rating > 5:
		return nil, model.InvalidRequest("rating must be between 0 and 5")
	}
	return r, nil
}

func validateTable(in model.NewTable) (model.Table, error) {
	if in.Size < 1 {
		return model.Table{}, fmt.Errorf("size must be at least 1")
	}
	slots, err := model.ParseSlots(strings.Join(in.AvailableTimes, ","))
	if err != nil {
		return model.Table{}, err
	}
	if len(slots) == 0 {
		return model.Table{}, fmt.Errorf("available_times must list at least one HH:MM slot")
	}
	return model.Table{Size: in.Size, AvailableTimes: slots}, nil
}
