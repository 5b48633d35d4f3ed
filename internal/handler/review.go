package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/model"
)

// ReviewService is what the review endpoints need from the service layer.
type ReviewService interface {
	Add(ctx context.Context, a model.Actor, restaurantID uint64, rating int, comment *string) error
	List(ctx context.Context, restaurantID uint64) ([]model.ReviewView, error)
}

type ReviewHandler struct {
	svc ReviewService
	log zerolog.Logger
}

func NewReviewHandler(svc ReviewService, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, log: log}
}

type reviewReq struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// List handles GET /restaurants/:id/reviews.
func (h *ReviewHandler) List(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	items, err := h.svc.List(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Add handles POST /restaurants/:id/reviews (Customer).  Rating and
// comment come from the JSON body, or from the query string when the
// body omits them.
func (h *ReviewHandler) Add(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	var req reviewReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
	}
	if req.Rating == nil {
		if q := c.QueryParam("rating"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be an integer"})
			}
			req.Rating = &n
		}
	}
	if req.Rating == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating is required"})
	}
	if req.Comment == nil {
		if q := c.QueryParam("comment"); q != "" {
			req.Comment = &q
		}
	}
	if err := h.svc.Add(c.Request().Context(), a, id, *req.Rating, req.Comment); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Review added successfully"})
}
