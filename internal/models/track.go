package models

// Artist is a credited artist. ID is the grouping identity; Name is for display only.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a saved track and the artists it credits, in credit order.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
}

// ArtistTally is the number of saved tracks crediting an artist.
type ArtistTally struct {
	Artist Artist `json:"artist"`
	Count  int    `json:"count"`
}
