package models

// Category defines the struct for the 'categories' table
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Color defines the struct for the 'colors' table
type Color struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Size defines the struct for the 'sizes' table
type Size struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
