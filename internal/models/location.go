package models

// Coordinate is a point on the 400x400 site map
type Coordinate struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zone string  `json:"zone,omitempty"`
}

type LocationType string

const (
	LocationTypeConstruction LocationType = "construction"
	LocationTypeStorage      LocationType = "storage"
	LocationTypeOffice       LocationType = "office"
	LocationTypeMaintenance  LocationType = "maintenance"
	LocationTypeParking      LocationType = "parking"
)

// Location is a named place on the site map
type Location struct {
	Name        string       `json:"name"`
	Coordinates Coordinate   `json:"coordinates"`
	Type        LocationType `json:"type"`
}
