package models

// WeatherReport is the JSON-shaped payload returned by the weather endpoint.
// The orchestrator treats it as opaque: it is cached and handed to the view
// layer untouched, with no invariant enforced on individual fields here.
type WeatherReport struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Visibility  int     `json:"visibility"`
	Sunrise     int64   `json:"sunrise"`
	Sunset      int64   `json:"sunset"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}
