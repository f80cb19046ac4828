package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Date         string `json:"date"`
	Hook         string `json:"hook"`
	Snippet      string `json:"snippet"`
	TeamStatus   string `json:"teamStatus"`
	ClientStatus string `json:"clientStatus"`
}

// Query describes a search request. OwnerID scopes every search to one
// client's calendar; it is never empty.
type Query struct {
	Text    string
	OwnerID string
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ItemRecord is the data we index for a calendar item.
type ItemRecord struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Date         string `json:"date"`
	Hook         string `json:"hook"`
	Copy         string `json:"copy"`
	KPI          string `json:"kpi"`
	TeamStatus   string `json:"teamStatus"`
	ClientStatus string `json:"clientStatus"`
}
