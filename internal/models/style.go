package models

// LineStyle describes how an activity track or segment is drawn in KML.
// Color is eight hex digits in KML's AABBGGRR order.
type LineStyle struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

// Reserved style categories. Activity-type names (Ride, Run, ...) are
// also valid categories; precedence is Moto > Commute > type > Default.
const (
	StyleDefault = "Default"
	StyleCommute = "Commute"
	StyleMoto    = "Moto"
	StyleSegment = "Segment"
)
