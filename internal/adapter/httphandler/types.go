package httphandler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(productOfferRules, ProductForm{})
	return v
}

// productOfferRules requires a 1-99 discount and an end date on special
// offers.
func productOfferRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(ProductForm)
	if !f.SpecialOffer {
		return
	}
	switch {
	case f.DiscountPercentage == nil:
		sl.ReportError(f.DiscountPercentage, "discountPercentage", "DiscountPercentage", "required", "")
	case *f.DiscountPercentage < 1 || *f.DiscountPercentage > 99:
		sl.ReportError(f.DiscountPercentage, "discountPercentage", "DiscountPercentage", "range", "1-99")
	}
	if f.OfferEndsAt == nil {
		sl.ReportError(f.OfferEndsAt, "offerEndsAt", "OfferEndsAt", "required", "")
	}
}

type (
	// ProductForm is the admin product form. Offer fields are only
	// kept when SpecialOffer is set.
	ProductForm struct {
		ID                 string     `json:"id" validate:"omitempty,max=64"`
		Name               string     `json:"name" validate:"required"`
		Brand              string     `json:"brand" validate:"required"`
		Price              *float64   `json:"price" validate:"required,gte=0"`
		Category           string     `json:"category" validate:"required"`
		Color              string     `json:"color"`
		Size               string     `json:"size"`
		Images             []string   `json:"images" validate:"omitempty,dive,required"`
		Description        string     `json:"description"`
		SpecialOffer       bool       `json:"specialOffer"`
		DiscountPercentage *int       `json:"discountPercentage"`
		OfferEndsAt        *time.Time `json:"offerEndsAt"`
	}

	ProductsForm struct {
		Products []ProductForm `json:"products" validate:"dive"`
	}

	FilterForm struct {
		Search   string `json:"search,omitempty"`
		Category string `json:"category,omitempty"`
		Brand    string `json:"brand,omitempty"`
		Color    string `json:"color,omitempty"`
		Size     string `json:"size,omitempty"`
		SortBy   string `json:"sortBy,omitempty" validate:"omitempty,oneof=price-asc price-desc name-asc name-desc"`
	}

	DeliveryForm struct {
		FullName    string `json:"fullName" validate:"required"`
		PhoneNumber string `json:"phoneNumber" validate:"required"`
		Address     string `json:"address" validate:"required"`
		City        string `json:"city" validate:"required"`
		Notes       string `json:"notes"`
	}
)

func (f ProductForm) toDomain() domain.Product {
	p := domain.Product{
		ID:           f.ID,
		Name:         strings.TrimSpace(f.Name),
		Brand:        strings.TrimSpace(f.Brand),
		Price:        *f.Price,
		Category:     strings.TrimSpace(f.Category),
		Color:        f.Color,
		Size:         f.Size,
		Images:       append([]string{}, f.Images...),
		Description:  f.Description,
		SpecialOffer: f.SpecialOffer,
	}
	if f.SpecialOffer {
		pct := *f.DiscountPercentage
		ends := f.OfferEndsAt.UTC()
		p.DiscountPercentage = &pct
		p.OfferEndsAt = &ends
	}
	return p
}

func (f ProductsForm) toDomain() []domain.Product {
	ps := make([]domain.Product, 0, len(f.Products))
	for _, v := range f.Products {
		ps = append(ps, v.toDomain())
	}
	return ps
}

func (f FilterForm) toDomain() domain.Filter {
	return domain.Filter{
		Search:   f.Search,
		Category: f.Category,
		Brand:    f.Brand,
		Color:    f.Color,
		Size:     f.Size,
		SortBy:   domain.SortKey(f.SortBy),
	}
}

func filterFromDomain(f domain.Filter) FilterForm {
	return FilterForm{
		Search:   f.Search,
		Category: f.Category,
		Brand:    f.Brand,
		Color:    f.Color,
		Size:     f.Size,
		SortBy:   string(f.SortBy),
	}
}

func (f DeliveryForm) toDomain() domain.Delivery {
	return domain.Delivery{
		FullName:    f.FullName,
		PhoneNumber: f.PhoneNumber,
		Address:     f.Address,
		City:        f.City,
		Notes:       f.Notes,
	}
}

type (
	// ProductView is a product as shown to shoppers. DiscountedPrice is
	// set whenever the product carries a discount, OfferActive only while
	// the offer is running.
	ProductView struct {
		codec.Product
		OfferActive     bool     `json:"offerActive"`
		DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	}

	CatalogResponse struct {
		Offers     []ProductView `json:"offers"`
		Items      []ProductView `json:"items"`
		Page       int           `json:"page"`
		PageSize   int           `json:"pageSize"`
		TotalPages int           `json:"totalPages"`
		TotalItems int           `json:"totalItems"`
	}

	FacetsResponse struct {
		Categories []string `json:"categories"`
		Brands     []string `json:"brands"`
		Colors     []string `json:"colors"`
		Sizes      []string `json:"sizes"`
	}

	CartResponse struct {
		Lines []codec.CartLine `json:"lines"`
		Total float64          `json:"total"`
		Count int              `json:"count"`
	}

	OrderResponse struct {
		Total   float64 `json:"total"`
		Message string  `json:"message"`
		URL     string  `json:"url"`
	}

	TickResponse struct {
		ProductID        string `json:"productId"`
		RemainingSeconds int64  `json:"remainingSeconds"`
		Label            string `json:"label"`
		Expired          bool   `json:"expired"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func viewFromProduct(p domain.Product, now time.Time) ProductView {
	v := ProductView{
		Product:     codec.FromProduct(p),
		OfferActive: p.OfferActive(now),
	}
	if price, ok := p.DiscountedPrice(); ok {
		v.DiscountedPrice = &price
	}
	return v
}

func viewsFromProducts(ps []domain.Product, now time.Time) []ProductView {
	out := make([]ProductView, len(ps))
	for i := range ps {
		out[i] = viewFromProduct(ps[i], now)
	}
	return out
}

func catalogFromResult(r catalog.Result) CatalogResponse {
	return CatalogResponse{
		Offers:     viewsFromProducts(r.Offers, r.At),
		Items:      viewsFromProducts(r.Items, r.At),
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalPages: r.TotalPages,
		TotalItems: r.TotalItems,
	}
}

func facetsFromDomain(f catalog.Facets) FacetsResponse {
	return FacetsResponse{
		Categories: nonNil(f.Categories),
		Brands:     nonNil(f.Brands),
		Colors:     nonNil(f.Colors),
		Sizes:      nonNil(f.Sizes),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed on %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
