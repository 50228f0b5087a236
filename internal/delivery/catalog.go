package delivery

import (
	"errors"
	"sort"
	"strings"

	"github.com/smartmeals/smartmeals/internal/cache"
)

var ErrUnknownService = errors.New("unknown delivery service")

type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type Restaurant struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Cuisine      string  `json:"cuisine"`
	Rating       float64 `json:"rating"`
	DeliveryTime string  `json:"deliveryTime"`
	MinimumOrder float64 `json:"minimumOrder"`
	DeliveryFee  float64 `json:"deliveryFee"`
}

type MenuItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Calories     int     `json:"calories"`
	Category     string  `json:"category"`
	RestaurantID string  `json:"restaurantId"`
}

// Catalog serves the mocked delivery providers. There is no real provider
// integration; the data is canned and only filtered per request, with
// results kept in the TTL cache.
type Catalog struct {
	services map[string]Service
	cache    *cache.Cache
}

func NewCatalog(c *cache.Cache) *Catalog {
	services := map[string]Service{
		"ifood":    {ID: "ifood", Name: "iFood", Logo: "/images/ifood-logo.png"},
		"rappi":    {ID: "rappi", Name: "Rappi", Logo: "/images/rappi-logo.png"},
		"ubereats": {ID: "ubereats", Name: "Uber Eats", Logo: "/images/ubereats-logo.png"},
	}

	return &Catalog{services: services, cache: c}
}

func (c *Catalog) Services() []Service {
	out := make([]Service, 0, len(c.services))

	for _, s := range c.services {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// SearchRestaurants filters the canned restaurant list by a free-text query
// against name and cuisine.
func (c *Catalog) SearchRestaurants(serviceID, query string) ([]Restaurant, error) {
	if _, ok := c.services[serviceID]; !ok {
		return nil, ErrUnknownService
	}

	key := "restaurants:" + serviceID + ":" + strings.ToLower(query)

	if cached, ok := c.cache.Get(key); ok {
		if restaurants, ok := cached.([]Restaurant); ok {
			return restaurants, nil
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]Restaurant, 0, len(mockRestaurants))

	for _, r := range mockRestaurants {
		if q == "" ||
			strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Cuisine), q) {
			out = append(out, r)
		}
	}

	c.cache.Set(key, out)

	return out, nil
}

func (c *Catalog) Menu(serviceID, restaurantID string) ([]MenuItem, error) {
	if _, ok := c.services[serviceID]; !ok {
		return nil, ErrUnknownService
	}

	key := "menu:" + serviceID + ":" + restaurantID

	if cached, ok := c.cache.Get(key); ok {
		if items, ok := cached.([]MenuItem); ok {
			return items, nil
		}
	}

	out := make([]MenuItem, 0)

	for _, item := range mockMenuItems {
		if item.RestaurantID == restaurantID {
			out = append(out, item)
		}
	}

	c.cache.Set(key, out)

	return out, nil
}
