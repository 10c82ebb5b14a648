package types

// Page is a CMS page.
type Page struct {
	// ID is the unique identifier of the page.
	ID int `json:"id" db:"id"`

	// Title is the page heading shown to visitors.
	Title string `json:"title" db:"title"`

	// Content is the page body.
	Content string `json:"content" db:"content"`

	// Slug is the URL fragment the site frontend uses to address
	// the page.
	Slug string `json:"slug" db:"slug"`

	// Homepage marks the page served at the site root. The store does
	// not enforce uniqueness; lookups take the flagged page with the
	// lowest id.
	Homepage bool `json:"homepage" db:"homepage"`

	// Position is the zero-based slot of the page in the site's
	// navigation order. Maintained by the reorder operation.
	Position int `json:"position" db:"position"`
}

// PublicPage is the reduced page shape exposed on unauthenticated
// routes.
type PublicPage struct {
	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
}
