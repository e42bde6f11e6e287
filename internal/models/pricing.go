package models

import "fmt"

// OnSale reports whether the sale price currently undercuts the list price.
func (p *Product) OnSale() bool {
	return p.SaleEnabled && p.SalePrice > 0 && p.SalePrice < p.Price
}

// EffectivePrice is the unit price a customer pays right now.
func (p *Product) EffectivePrice() float64 {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}

// ValidateSaleFields rejects sale configurations that would not discount.
func ValidateSaleFields(price float64, saleEnabled bool, salePrice float64, salePriceSet bool) error {
	if !saleEnabled {
		return nil
	}
	if !salePriceSet {
		return fmt.Errorf("salePrice is required when saleEnabled is true")
	}
	if salePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if salePrice >= price {
		return fmt.Errorf("salePrice must be less than price")
	}
	return nil
}
