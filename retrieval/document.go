package retrieval

import (
	"fmt"
	"strings"

	"menuagent/catalog"
)

// DocumentID is the identifier of an item occurrence.
func DocumentID(hall, station, name string) string {
	return hall + "::" + station + "::" + name
}

// DocumentText renders the searchable text for an item: where it is served,
// its flags, its nutrition in words and a few descriptive tags, followed by
// the free-text description.
func DocumentText(hall, station string, item catalog.FoodItem) string {
	var b strings.Builder

	flags := "no special flags"
	if len(item.DietaryFlags) > 0 {
		flags = strings.Join(item.DietaryFlags, ", ")
	}
	fmt.Fprintf(&b, "%s served at %s dining hall in the %s station. Dietary flags: %s. ", item.Name, hall, station, flags)

	if v, ok := item.Calories.Positive(); ok {
		fmt.Fprintf(&b, "%d calories. ", int(v))
	}
	for _, n := range []struct {
		q    catalog.Quantity
		unit string
	}{
		{item.ProteinG, "protein"},
		{item.CarbsG, "carbs"},
		{item.FatG, "fat"},
		{item.FiberG, "fiber"},
	} {
		if v, ok := n.q.Positive(); ok {
			fmt.Fprintf(&b, "%s grams %s. ", catalog.FormatNumber(v), n.unit)
		}
	}

	if tags := nutrientTags(item); len(tags) > 0 {
		b.WriteString(strings.Join(tags, " "))
		b.WriteString(". ")
	}
	b.WriteString(item.Description)
	return strings.TrimSpace(b.String())
}

func nutrientTags(item catalog.FoodItem) []string {
	var tags []string
	if v, ok := item.ProteinG.Positive(); ok && v >= 20 {
		tags = append(tags, "high protein")
	}
	if v, ok := item.Calories.Positive(); ok && v <= 300 {
		tags = append(tags, "low calorie light")
	}
	if v, ok := item.Calories.Positive(); ok && v >= 700 {
		tags = append(tags, "hearty filling")
	}
	if v, ok := item.FiberG.Positive(); ok && v >= 5 {
		tags = append(tags, "high fiber")
	}
	return tags
}

// BuildIndex indexes every item in c, halls and stations in sorted order
// and items in served order, and builds the statistics.
func BuildIndex(c catalog.Catalog, r Restrictions) *Index {
	ix := NewIndex(WithRestrictions(r))
	c.Each(func(e catalog.Entry) bool {
		ix.Add(
			DocumentID(e.Hall, e.Station, e.Item.Name),
			DocumentText(e.Hall, e.Station, e.Item),
			Metadata{Hall: e.Hall, Station: e.Station, Item: e.Item},
		)
		return true
	})
	ix.Build()
	return ix
}
