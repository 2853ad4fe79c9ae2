package domain

import "errors"

var ErrEmptyCart = errors.New("cart is empty")

// Delivery holds the customer details attached to a checkout.
type Delivery struct {
	FullName    string
	PhoneNumber string
	Address     string
	City        string
	Notes       string
}

// An Order is a checked out cart rendered for the shop's chat line.
type Order struct {
	Lines   []CartLine
	Total   float64
	Message string
	URL     string
}
