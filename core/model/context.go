package model

import (
	"strings"
	"time"
)

// Casualties aggregates reported human impact for an incident.
type Casualties struct {
	Deaths  int `json:"deaths"`
	Severe  int `json:"severe"`
	Injured int `json:"injured"`
	Missing int `json:"missing"`
}

// Total returns the sum of all casualty counts.
func (c Casualties) Total() int {
	return c.Deaths + c.Severe + c.Injured + c.Missing
}

// Location is a geographic point with an optional administrative region.
type Location struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Region string  `json:"region,omitempty"`
}

// IncidentContext describes a reported disaster event. It carries the typed
// fields the decision pipeline reads directly plus an Extra map for fields
// only referenced by declarative rules.
type IncidentContext struct {
	ID           string             `json:"id"`
	DisasterType string             `json:"disasterType"`
	Magnitude    float64            `json:"magnitude,omitempty"`
	Casualties   Casualties         `json:"casualties"`
	HasTrapped   bool               `json:"hasTrapped"`
	Location     Location           `json:"location"`
	Damage       map[string]float64 `json:"damage,omitempty"`
	Environment  map[string]bool    `json:"environment,omitempty"`
	ReportedAt   time.Time          `json:"reportedAt"`
	Extra        map[string]any     `json:"extra,omitempty"`
}

// Lookup resolves a dot-separated field path against the context. Typed
// fields are matched first, then Damage and Environment sub-maps, then the
// Extra map (which may itself nest maps). The second return value reports
// whether the path resolved.
func (c *IncidentContext) Lookup(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "id":
		return c.ID, true
	case "disasterType", "disaster_type":
		return c.DisasterType, true
	case "magnitude":
		return c.Magnitude, true
	case "hasTrapped", "has_trapped":
		return c.HasTrapped, true
	case "casualties":
		switch rest {
		case "deaths":
			return c.Casualties.Deaths, true
		case "severe":
			return c.Casualties.Severe, true
		case "injured":
			return c.Casualties.Injured, true
		case "missing":
			return c.Casualties.Missing, true
		case "total":
			return c.Casualties.Total(), true
		}
		return nil, false
	case "location":
		switch rest {
		case "lat":
			return c.Location.Lat, true
		case "lon":
			return c.Location.Lon, true
		case "region":
			return c.Location.Region, true
		}
		return nil, false
	case "damage":
		if v, ok := c.Damage[rest]; ok {
			return v, true
		}
		return nil, false
	case "environment":
		if v, ok := c.Environment[rest]; ok {
			return v, true
		}
		return nil, false
	}
	return lookupMap(c.Extra, path)
}

// lookupMap walks nested map[string]any values along a dot path.
func lookupMap(m map[string]any, path string) (any, bool) {
	if m == nil {
		return nil, false
	}
	head, rest, more := strings.Cut(path, ".")
	v, ok := m[head]
	if !ok {
		return nil, false
	}
	if !more {
		return v, true
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookupMap(sub, rest)
}
