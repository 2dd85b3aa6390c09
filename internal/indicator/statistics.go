package indicator

// Statistic is one value of a region joined with its indicator's name.
type Statistic struct {
	RegionID      int64
	IndicatorName string
	Year          int
	Value         Value
	Note          *string
}

// RegionProperties groups a region's statistics by year, then indicator name.
// A note is stored next to its value under "<name>-note".
type RegionProperties map[int]map[string]any

// NewRegionProperties builds the per-year property map consumed by map tiles.
func NewRegionProperties(stats []Statistic) RegionProperties {
	props := RegionProperties{}
	for _, s := range stats {
		year, ok := props[s.Year]
		if !ok {
			year = map[string]any{}
			props[s.Year] = year
		}
		year[s.IndicatorName] = s.Value
		if s.Note != nil {
			year[s.IndicatorName+"-note"] = *s.Note
		}
	}
	return props
}
