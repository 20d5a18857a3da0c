package models

import "time"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// PublishResult é o resultado de um ciclo de publicação (não é persistido)
type PublishResult struct {
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	CycleID    string   `json:"cycle_id,omitempty"`
	ProductID  string   `json:"product_id,omitempty"`
	CouponCode string   `json:"coupon_code,omitempty"`
	FinalPrice *float64 `json:"final_price,omitempty"`
}

// OK indica se o ciclo terminou com sucesso
func (r PublishResult) OK() bool {
	return r.Status == StatusOK
}

// Publication é o registro histórico de uma tentativa de envio
type Publication struct {
	ID            int64     `json:"id"`
	CycleID       string    `json:"cycle_id"`
	ProductID     string    `json:"product_id"`
	Title         string    `json:"title"`
	OriginalPrice float64   `json:"original_price"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	FinalPrice    float64   `json:"final_price"`
	Link          string    `json:"link"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
