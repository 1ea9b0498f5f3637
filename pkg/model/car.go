package model

// Racer is a selectable pod racer as delivered by /api/cars
//
//nolint:tagliatelle // server uses snake case
type Racer struct {
	ID           int     `json:"id"`
	DriverName   string  `json:"driver_name"`
	TopSpeed     float64 `json:"top_speed"`
	Acceleration float64 `json:"acceleration"`
	Handling     float64 `json:"handling"`
}
