package model

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Restaurant is a row of the `restaurants` table.  Rating is derived from
// reviews and TotalBookings is a denormalized counter maintained in the
// same transaction as every booking and cancellation.
type Restaurant struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Cuisine       string    `json:"cuisine"`
	CostRating    int       `json:"cost_rating"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zip_code"`
	Contact       *string   `json:"contact,omitempty"`
	Rating        float64   `json:"rating"`
	TotalBookings int       `json:"total_bookings"`
	CreatedAt     time.Time `json:"-"`
}

// Address renders "city, state zip".
func (r Restaurant) Address() string {
	return fmt.Sprintf("%s, %s %s", r.City, r.State, r.ZipCode)
}

// MapsURL builds a Google Maps search link for the restaurant.
func (r Restaurant) MapsURL() string {
	var words []string
	words = append(words, strings.Fields(r.Name)...)
	words = append(words, r.ZipCode)
	words = append(words, strings.Fields(r.City)...)
	words = append(words, r.State)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			terms = append(terms, url.QueryEscape(w))
		}
	}
	return "https://www.google.com/maps/search/?api=1&query=" + strings.Join(terms, "+")
}

// RestaurantFilter narrows a restaurant search.  Empty fields do not filter.
// City, State and Cuisine match as case-insensitive substrings; ZipCode
// matches exactly.
type RestaurantFilter struct {
	City    string
	State   string
	ZipCode string
	Cuisine string
}

// NewRestaurant is the input for creating a restaurant.
type NewRestaurant struct {
	Name       string     `json:"name"`
	Cuisine    string     `json:"cuisine"`
	CostRating int        `json:"cost_rating"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	ZipCode    string     `json:"zip_code"`
	Contact    *string    `json:"contact,omitempty"`
	Rating     float64    `json:"rating"`
	Tables     []NewTable `json:"tables"`
}

// RoundRating rounds a mean rating to one decimal place.
func RoundRating(mean float64) float64 {
	return math.Round(mean*10) / 10
}
