package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/service"
)

// RestaurantService is what the restaurant endpoints need from the
// service layer.
type RestaurantService interface {
	Search(ctx context.Context, f model.RestaurantFilter) ([]model.Restaurant, error)
	Get(ctx context.Context, id uint64) (*service.RestaurantDetail, error)
	Add(ctx context.Context, a model.Actor, in model.NewRestaurant) (*model.Restaurant, error)
	AddTable(ctx context.Context, a model.Actor, restaurantID uint64, in model.NewTable) (*model.Table, error)
}

// RestaurantHandler serves restaurant search, detail and creation.
type RestaurantHandler struct {
	svc RestaurantService
	log zerolog.Logger
}

func NewRestaurantHandler(svc RestaurantService, log zerolog.Logger) *RestaurantHandler {
	return &RestaurantHandler{svc: svc, log: log}
}

// restaurantView is a restaurant as listed by search.
type restaurantView struct {
	model.Restaurant
	MapsURL string `json:"maps_url"`
}

// restaurantDetailView adds the formatted address and the tables.
type restaurantDetailView struct {
	model.Restaurant
	Address string        `json:"address"`
	MapsURL string        `json:"maps_url"`
	Tables  []model.Table `json:"tables"`
}

// Search handles GET /restaurants/search?city=&state=&zip_code=&cuisine=.
// No match yields 200 with an empty list.
func (h *RestaurantHandler) Search(c echo.Context) error {
	items, err := h.svc.Search(c.Request().Context(), model.RestaurantFilter{
		City:    c.QueryParam("city"),
		State:   c.QueryParam("state"),
		ZipCode: c.QueryParam("zip_code"),
		Cuisine: c.QueryParam("cuisine"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]restaurantView, len(items))
	for i, r := range items {
		out[i] = restaurantView{Restaurant: r, MapsURL: r.MapsURL()}
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, restaurantDetailView{
		Restaurant: d.Restaurant,
		Address:    d.Address(),
		MapsURL:    d.MapsURL(),
		Tables:     d.Tables,
	})
}

// Add handles POST /restaurants/add (RestaurantManager).
func (h *RestaurantHandler) Add(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in model.NewRestaurant
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.svc.Add(c.Request().Context(), a, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":       "Restaurant added successfully",
		"restaurant_id": r.ID,
	})
}

// AddTable handles POST /restaurants/:id/tables (RestaurantManager).
func (h *RestaurantHandler) AddTable(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	var in model.NewTable
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	t, err := h.svc.AddTable(c.Request().Context(), a, id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}
