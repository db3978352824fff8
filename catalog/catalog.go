// Package catalog holds the normalized dining menu snapshot the agent works
// against: halls, stations and food items, plus the helpers the surrounding
// service needs to serve it (TTL cache, hall resolution, meal windows).
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptySnapshot is returned when a snapshot decodes but carries no halls.
var ErrEmptySnapshot = errors.New("catalog: snapshot has no halls")

// Menu maps station name to the ordered items served there.
type Menu map[string][]FoodItem

// Catalog maps dining hall name to its menu.
type Catalog map[string]Menu

// Snapshot is one fetch cycle's output: the meal it was fetched for and
// the catalog itself. It is treated as immutable once handed over.
type Snapshot struct {
	Meal    string  `json:"meal"`
	Date    string  `json:"date,omitempty"`
	Catalog Catalog `json:"halls"`
}

// Halls returns hall names in sorted order.
func (c Catalog) Halls() []string {
	halls := make([]string, 0, len(c))
	for h := range c {
		halls = append(halls, h)
	}
	sort.Strings(halls)
	return halls
}

// Stations returns station names in sorted order.
func (m Menu) Stations() []string {
	stations := make([]string, 0, len(m))
	for s := range m {
		stations = append(stations, s)
	}
	sort.Strings(stations)
	return stations
}

// Entry is a food item located in the catalog.
type Entry struct {
	Hall    string
	Station string
	Item    FoodItem
}

// Each visits every item in deterministic order (halls and stations sorted,
// items in served order). Returning false stops the walk.
func (c Catalog) Each(fn func(Entry) bool) {
	for _, hall := range c.Halls() {
		menu := c[hall]
		for _, station := range menu.Stations() {
			for _, item := range menu[station] {
				if !fn(Entry{Hall: hall, Station: station, Item: item}) {
					return
				}
			}
		}
	}
}

// Len returns the total number of items.
func (c Catalog) Len() int {
	n := 0
	for _, menu := range c {
		for _, items := range menu {
			n += len(items)
		}
	}
	return n
}

// Decode parses a JSON snapshot. Items without a name are dropped.
func Decode(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if len(s.Catalog) == 0 {
		return Snapshot{}, ErrEmptySnapshot
	}
	for hall, menu := range s.Catalog {
		for station, items := range menu {
			kept := items[:0]
			for _, it := range items {
				if strings.TrimSpace(it.Name) != "" {
					kept = append(kept, it)
				}
			}
			s.Catalog[hall][station] = kept
		}
	}
	s.Meal = strings.ToLower(strings.TrimSpace(s.Meal))
	return s, nil
}
