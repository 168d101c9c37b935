// Package checkout holds the shipping and payment steps of the checkout flow:
// their validation, the session slots that carry them between steps, and the
// gating rules that decide which step a customer may enter.
package checkout

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// DefaultCountry is applied to shipping addresses without a country.
const DefaultCountry = "US"

// ShippingInfo is the delivery address captured at the shipping step.
type ShippingInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	ZipCode   string
	Country   string
}

// PaymentInfo is the persisted part of the payment step. The CVV is never
// part of it.
type PaymentInfo struct {
	CardNumber     string
	ExpiryDate     string
	CardName       string
	SameAsShipping bool
	BillingAddress string
	BillingCity    string
	BillingState   string
	BillingZip     string
}

// PaymentForm is the payment step as submitted, CVV included.
type PaymentForm struct {
	PaymentInfo
	CVV string
}

// ValidationError lists the fields that failed validation with a message
// per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	return fmt.Sprintf("invalid fields: %s", strings.Join(keys, ", "))
}

var (
	emailPattern  = regexp.MustCompile(`\S+@\S+\.\S+`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardPattern   = regexp.MustCompile(`^\d{15,19}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// Validate checks that every address field is present and that the email
// looks like one.
func (s ShippingInfo) Validate() error {
	fields := make(map[string]string)
	required(fields, "firstName", s.FirstName, "First name is required")
	required(fields, "lastName", s.LastName, "Last name is required")
	switch {
	case blank(s.Email):
		fields["email"] = "Email is required"
	case !emailPattern.MatchString(s.Email):
		fields["email"] = "Email is invalid"
	}
	required(fields, "phone", s.Phone, "Phone number is required")
	required(fields, "address", s.Address, "Address is required")
	required(fields, "city", s.City, "City is required")
	required(fields, "state", s.State, "State is required")
	required(fields, "zipCode", s.ZipCode, "ZIP code is required")
	return fieldErrors(fields)
}

// Normalize trims whitespace and applies the default country.
func (s ShippingInfo) Normalize() ShippingInfo {
	for _, f := range []*string{
		&s.FirstName, &s.LastName, &s.Email, &s.Phone,
		&s.Address, &s.City, &s.State, &s.ZipCode, &s.Country,
	} {
		*f = strings.TrimSpace(*f)
	}
	s.State = strings.ToUpper(s.State)
	if s.Country == "" {
		s.Country = DefaultCountry
	}
	return s
}

// Validate checks the card details and, unless billing matches shipping,
// the billing address.
func (f PaymentForm) Validate() error {
	fields := make(map[string]string)

	switch card := stripSpaces(f.CardNumber); {
	case card == "":
		fields["cardNumber"] = "Card number is required"
	case !cardPattern.MatchString(card):
		fields["cardNumber"] = "Card number is invalid"
	}
	switch {
	case blank(f.ExpiryDate):
		fields["expiryDate"] = "Expiry date is required"
	case !expiryPattern.MatchString(strings.TrimSpace(f.ExpiryDate)):
		fields["expiryDate"] = "Expiry date must be in MM/YY format"
	}
	switch {
	case blank(f.CVV):
		fields["cvv"] = "CVV is required"
	case !cvvPattern.MatchString(strings.TrimSpace(f.CVV)):
		fields["cvv"] = "CVV must be 3-4 digits"
	}
	required(fields, "cardName", f.CardName, "Name on card is required")

	if !f.SameAsShipping {
		required(fields, "billingAddress", f.BillingAddress, "Billing address is required")
		required(fields, "billingCity", f.BillingCity, "Billing city is required")
		required(fields, "billingState", f.BillingState, "Billing state is required")
		required(fields, "billingZip", f.BillingZip, "Billing ZIP code is required")
	}
	return fieldErrors(fields)
}

// Info returns the persistable part of the form with whitespace trimmed.
// Billing fields are dropped when billing matches shipping.
func (f PaymentForm) Info() PaymentInfo {
	p := f.PaymentInfo
	p.CardNumber = strings.TrimSpace(p.CardNumber)
	p.ExpiryDate = strings.TrimSpace(p.ExpiryDate)
	p.CardName = strings.TrimSpace(p.CardName)
	if p.SameAsShipping {
		p.BillingAddress, p.BillingCity, p.BillingState, p.BillingZip = "", "", "", ""
	} else {
		p.BillingAddress = strings.TrimSpace(p.BillingAddress)
		p.BillingCity = strings.TrimSpace(p.BillingCity)
		p.BillingState = strings.TrimSpace(p.BillingState)
		p.BillingZip = strings.TrimSpace(p.BillingZip)
	}
	return p
}

// LastFour returns the last four digits of the card number.
func (p PaymentInfo) LastFour() string {
	card := stripSpaces(p.CardNumber)
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}

// MaskCardNumber replaces every digit but the last four with '*', keeping the
// original grouping.
func MaskCardNumber(number string) string {
	digits := 0
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	var b strings.Builder
	b.Grow(len(number))
	seen := 0
	for _, r := range number {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= digits-4 {
				b.WriteByte('*')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func required(fields map[string]string, name, value, msg string) {
	if blank(value) {
		fields[name] = msg
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func fieldErrors(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
