package models

import "time"

type Book struct {
	ID        int64
	Name      string
	Author    string
	Genre     string
	CreatedAt time.Time
}

type Reader struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Genres lists the choices offered by the add-book form.
var Genres = []string{"fantasy", "horror", "mystery", "romance", "science-fiction", "non-fiction"}
