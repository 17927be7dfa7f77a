package domain

import "time"

// Product is an uploaded product image together with the description the
// model produced for it.
type Product struct {
	ID          int64
	ImageHash   string
	StorageKey  string
	MimeType    string
	SizeBytes   int64
	Description string
	Provider    string
	CreatedAt   time.Time
}

// Answer is one question asked about a product and the model's reply.
type Answer struct {
	ID        int64
	ProductID int64
	Question  string
	Answer    string
	CreatedAt time.Time
}
