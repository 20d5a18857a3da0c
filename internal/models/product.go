package models

// Product representa um produto retornado pela API de afiliados
type Product struct {
	ID            string
	Title         string
	OriginalPrice float64
	ImageURL      string // opcional
	ProductURL    string
	AffiliateURL  string // opcional, preenchido quando o link já vem rastreado
}

// Link retorna o link a ser divulgado: o de afiliado quando existir
func (p Product) Link() string {
	if p.AffiliateURL != "" {
		return p.AffiliateURL
	}
	return p.ProductURL
}

// Category descreve uma categoria de busca no marketplace
type Category struct {
	Name       string `json:"name" yaml:"name"`
	Keywords   string `json:"keywords" yaml:"keywords"`
	CategoryID string `json:"category_id,omitempty" yaml:"category_id,omitempty"`
}
