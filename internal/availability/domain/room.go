package domain

// FailClosed is the availability assumed whenever the answer is uncertain:
// an unknown room, or an oracle that cannot be reached.
const FailClosed = false

type Room struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

// DefaultRooms seeds an empty store.
var DefaultRooms = []Room{
	{ID: "101", Available: false},
	{ID: "102", Available: true},
	{ID: "103", Available: false},
}
