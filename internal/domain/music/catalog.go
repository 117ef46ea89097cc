package music

// Song is one entry of the static background music catalog
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// Catalog is the fixed set of songs the editor offers. The publish pipeline
// only persists the chosen id; it is length-bounded but not validated against
// this list.
var Catalog = []Song{
	{ID: "perfect-moments", Title: "Perfect Moments", Category: "Romantic", URL: "/music/perfect-moments.mp3"},
	{ID: "golden-hour", Title: "Golden Hour", Category: "Romantic", URL: "/music/golden-hour.mp3"},
	{ID: "paper-hearts", Title: "Paper Hearts", Category: "Acoustic", URL: "/music/paper-hearts.mp3"},
	{ID: "summer-drive", Title: "Summer Drive", Category: "Upbeat", URL: "/music/summer-drive.mp3"},
	{ID: "first-dance", Title: "First Dance", Category: "Slow", URL: "/music/first-dance.mp3"},
	{ID: "polaroid-days", Title: "Polaroid Days", Category: "Acoustic", URL: "/music/polaroid-days.mp3"},
	{ID: "city-lights", Title: "City Lights", Category: "Upbeat", URL: "/music/city-lights.mp3"},
	{ID: "quiet-mornings", Title: "Quiet Mornings", Category: "Slow", URL: "/music/quiet-mornings.mp3"},
}

// ByID returns the catalog entry with the given id, or nil
func ByID(id string) *Song {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
	}
	return nil
}
