package types

// Note is a free-form note with no owner; any caller may read or
// mutate any note.
type Note struct {
	ID      int    `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
}
