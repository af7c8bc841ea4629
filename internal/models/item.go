package models

// Item is one line of a student's declaration. The same name may appear more
// than once; readers aggregate before display.
type Item struct {
	Name     string `json:"name" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}
