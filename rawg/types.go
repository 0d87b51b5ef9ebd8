package rawg

// Page is the envelope RAWG wraps every list response in.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Platform struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type PlatformEntry struct {
	Platform Platform `json:"platform"`
}

// GameSummary is one entry of a game list. Released and Metacritic are nil
// when the API has no value.
type GameSummary struct {
	ID              int             `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Released        *string         `json:"released"`
	Rating          float64         `json:"rating"`
	Metacritic      *int            `json:"metacritic"`
	BackgroundImage string          `json:"background_image"`
	Genres          []Genre         `json:"genres"`
	Platforms       []PlatformEntry `json:"platforms"`
}

// Game is the full record returned by /games/{id}.
type Game struct {
	GameSummary
	Description string `json:"description"`
	Website     string `json:"website"`
}

// Movie is a trailer. Data maps quality labels to video URLs.
type Movie struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Preview string    `json:"preview"`
	Data    MovieData `json:"data"`
}

type MovieData struct {
	Q480 string `json:"480"`
	Max  string `json:"max"`
}

// StoreListing links a game to a storefront.
type StoreListing struct {
	ID      int    `json:"id"`
	GameID  int    `json:"game_id"`
	StoreID int    `json:"store_id"`
	URL     string `json:"url"`
}

// Store is a storefront as returned by /stores/{id}.
type Store struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Domain          string `json:"domain"`
	ImageBackground string `json:"image_background"`
}
