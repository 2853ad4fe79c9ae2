package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency  = "EGP"
	defaultChatURL   = "https://wa.me/"
	defaultShopPhone = "201024911062"
)

type checkoutOpts struct {
	phone    string
	currency string
	chatURL  string
}

func defaultCheckoutOpts() checkoutOpts {
	return checkoutOpts{
		phone:    defaultShopPhone,
		currency: defaultCurrency,
		chatURL:  defaultChatURL,
	}
}

// CheckoutOpt sets the shop chat number and the currency shown in orders.
// Empty values keep the defaults.
func CheckoutOpt(phone, currency string) StoreOpt {
	return func(o *storeOpts) error {
		if phone != "" {
			o.checkout.phone = phone
		}
		if currency != "" {
			o.checkout.currency = currency
		}
		return nil
	}
}

// Checkout renders the cart and delivery details as an order message and
// the chat link that opens it. The cart is left as is.
func (s *Store) Checkout(d domain.Delivery) (domain.Order, error) {
	const op = "Store.Checkout"

	lines := s.Cart()
	if len(lines) == 0 {
		return domain.Order{}, fmt.Errorf("%s: %w", op, domain.ErrEmptyCart)
	}

	cur := s.checkout.currency
	total := CartTotal(lines)

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%dx) - %s %s",
			l.Product.Name, l.Quantity, lineTotal(l).String(), cur)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n\n", total.String(), cur)
	fmt.Fprintf(&b, "Full name: %s\n", d.FullName)
	fmt.Fprintf(&b, "Phone number: %s\n", d.PhoneNumber)
	fmt.Fprintf(&b, "Address: %s\n", d.Address)
	fmt.Fprintf(&b, "City: %s", d.City)
	if d.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", d.Notes)
	}

	msg := b.String()
	totalF, _ := total.Float64()
	return domain.Order{
		Lines:   lines,
		Total:   totalF,
		Message: msg,
		URL:     s.checkout.chatURL + s.checkout.phone + "?text=" + encodeURIComponent(msg),
	}, nil
}

// Total is the cart total at regular prices.
func (s *Store) Total() float64 {
	total, _ := CartTotal(s.Cart()).Float64()
	return total
}

// CartTotal sums price times quantity over the lines at regular prices.
func CartTotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(lineTotal(l))
	}
	return total
}

func lineTotal(l domain.CartLine) decimal.Decimal {
	return decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
