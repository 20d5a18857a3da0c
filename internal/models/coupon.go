package models

// Coupon é um desconto fixo identificado por um código
type Coupon struct {
	Code     string  `json:"code" yaml:"code"`
	Discount float64 `json:"discount" yaml:"discount"`
}

// PriceRange é uma faixa de preço com os cupons aplicáveis a ela
type PriceRange struct {
	MinPrice float64  `json:"min_price" yaml:"min_price"`
	MaxPrice float64  `json:"max_price" yaml:"max_price"`
	Coupons  []Coupon `json:"coupons" yaml:"coupons"`
}

// Contains indica se o preço está dentro da faixa (limites inclusivos)
func (r PriceRange) Contains(price float64) bool {
	return r.MinPrice <= price && price <= r.MaxPrice
}

// CouponMatch é o resultado de uma escolha de cupom
type CouponMatch struct {
	Coupon     Coupon
	FinalPrice float64
}
