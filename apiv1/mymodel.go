package apiv1

import (
	"fmt"
	"math/big"

	"mymodels-api/meta"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Precision of the price column, decimal(10,2).
const (
	PriceMaxDigits     = 10
	PriceDecimalPlaces = 2
)

// MyModel is the record exposed by the mymodels endpoints.
type MyModel struct {
	meta.BaseResource
	// Slug is a short unique label used in URLs by consumers
	Slug string `gorm:"size:50;not null;uniqueIndex" json:"slug" binding:"required,max=50,slug"`
	// Title is the display name
	Title string `gorm:"size:255;not null" json:"title" binding:"required,max=255"`
	// Description is free-form text and may be empty
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	// Price is stored with two decimal places and serialized as a string
	Price decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price" binding:"gte=0"`
	// Quantity is the number of units on hand
	Quantity int `gorm:"not null;default:0" json:"quantity" binding:"gte=0"`
}

// MyModelSummary is the list representation of MyModel.
type MyModelSummary struct {
	ID          uint            `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// TableName specifies the table name for GORM
func (MyModel) TableName() string {
	return "my_models"
}

// VerboseName is used in validation messages.
func (*MyModel) VerboseName() string {
	return "my model"
}

// Summary implements meta.Summarizer.
func (m *MyModel) Summary() any {
	return MyModelSummary{
		ID:          m.ID,
		Slug:        m.Slug,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
	}
}

// UniqueFields implements meta.Unique.
func (m *MyModel) UniqueFields() []meta.UniqueField {
	return []meta.UniqueField{
		{Name: "slug", Column: "slug", Value: m.Slug},
	}
}

// Validate implements meta.ResourceValidator.
func (m *MyModel) Validate() error {
	errs := meta.FieldErrors{}
	if msg := checkPrecision(m.Price, PriceMaxDigits, PriceDecimalPlaces); msg != "" {
		errs.Add("price", msg)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// checkPrecision reports whether d fits a decimal column of maxDigits total
// digits with places digits after the point. It returns "" when it does.
func checkPrecision(d decimal.Decimal, maxDigits, places int) string {
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	exp := int(d.Exponent())

	var total, decimals int
	switch {
	case exp >= 0:
		total = digits + exp
	case digits > -exp:
		total, decimals = digits, -exp
	default:
		// 0.001 has more decimal places than coefficient digits
		total, decimals = -exp, -exp
	}

	switch {
	case total > maxDigits:
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", maxDigits)
	case decimals > places:
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", places)
	case total-decimals > maxDigits-places:
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxDigits-places)
	}
	return ""
}

// BeforeSave is a GORM hook that normalizes the price precision.
func (m *MyModel) BeforeSave(tx *gorm.DB) error {
	m.Price = m.Price.Round(2)
	return nil
}
