package model

// Category groups posts. Managed by editors and admins only.
type Category struct {
	ID   uint64 // categories.id
	Name string // categories.name (unique)
	Slug string // categories.slug (unique)
}
