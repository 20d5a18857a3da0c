package coupons

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bot-cupons/config"
	"bot-cupons/internal/models"
	"bot-cupons/internal/random"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Format é o formato do arquivo de faixas de cupons
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store mantém a tabela de faixas de preço carregada na inicialização.
// Depois de criada é somente leitura e pode ser compartilhada entre goroutines.
type Store struct {
	ranges []models.PriceRange
	rand   random.Source
}

type rawTable struct {
	Ranges *[]rawRange `json:"ranges" yaml:"ranges"`
}

type rawRange struct {
	MinPrice *float64    `json:"min_price" yaml:"min_price"`
	MaxPrice *float64    `json:"max_price" yaml:"max_price"`
	Coupons  []rawCoupon `json:"coupons" yaml:"coupons"`
}

type rawCoupon struct {
	Code     string   `json:"code" yaml:"code"`
	Discount *float64 `json:"discount" yaml:"discount"`
}

// Load lê a tabela de cupons do arquivo. O formato é escolhido pela extensão.
func Load(path string, src random.Source) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &config.ConfigError{Field: "COUPONS_FILE", Err: err}
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return Parse(data, format, src)
}

// Parse valida e carrega a tabela de cupons a partir de bytes
func Parse(data []byte, format Format, src random.Source) (*Store, error) {
	var raw rawTable
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &config.ConfigError{Field: "COUPONS_FILE", Err: err}
	}

	ranges, err := raw.validate()
	if err != nil {
		return nil, &config.ConfigError{Field: "COUPONS_FILE", Err: err}
	}
	return New(ranges, src), nil
}

// New cria um Store a partir de faixas já validadas
func New(ranges []models.PriceRange, src random.Source) *Store {
	return &Store{ranges: ranges, rand: random.OrDefault(src)}
}

func (t rawTable) validate() ([]models.PriceRange, error) {
	if t.Ranges == nil {
		return nil, errors.New(`campo "ranges" ausente`)
	}

	ranges := make([]models.PriceRange, 0, len(*t.Ranges))
	for i, r := range *t.Ranges {
		if r.MinPrice == nil || r.MaxPrice == nil {
			return nil, fmt.Errorf("faixa %d sem min_price/max_price", i)
		}
		if *r.MinPrice < 0 || *r.MinPrice > *r.MaxPrice {
			return nil, fmt.Errorf("faixa %d inválida: min_price=%v max_price=%v", i, *r.MinPrice, *r.MaxPrice)
		}

		pr := models.PriceRange{MinPrice: *r.MinPrice, MaxPrice: *r.MaxPrice}
		for j, c := range r.Coupons {
			if c.Code == "" || c.Discount == nil {
				return nil, fmt.Errorf("faixa %d, cupom %d sem code/discount", i, j)
			}
			if *c.Discount < 0 {
				return nil, fmt.Errorf("faixa %d, cupom %q com desconto negativo", i, c.Code)
			}
			pr.Coupons = append(pr.Coupons, models.Coupon{Code: c.Code, Discount: *c.Discount})
		}
		ranges = append(ranges, pr)
	}
	return ranges, nil
}

// FindRange retorna a primeira faixa, na ordem da tabela, que contém o preço.
// Faixas sobrepostas não são desempatadas: vale a primeira.
func (s *Store) FindRange(price float64) (models.PriceRange, bool) {
	for _, r := range s.ranges {
		if r.Contains(price) {
			return r, true
		}
	}
	return models.PriceRange{}, false
}

// PickCoupon escolhe um cupom aleatório da faixa do preço e calcula o preço
// final, nunca negativo. ok=false quando não há faixa ou a faixa não tem cupons.
func (s *Store) PickCoupon(price float64) (models.CouponMatch, bool) {
	r, found := s.FindRange(price)
	if !found || len(r.Coupons) == 0 {
		return models.CouponMatch{}, false
	}

	coupon := r.Coupons[s.rand.Intn(len(r.Coupons))]
	return models.CouponMatch{
		Coupon:     coupon,
		FinalPrice: FinalPrice(price, coupon.Discount),
	}, true
}

// Ranges retorna uma cópia das faixas carregadas
func (s *Store) Ranges() []models.PriceRange {
	out := make([]models.PriceRange, len(s.ranges))
	for i, r := range s.ranges {
		r.Coupons = append([]models.Coupon{}, r.Coupons...)
		out[i] = r
	}
	return out
}

// FinalPrice calcula max(price - discount, 0) em aritmética decimal
func FinalPrice(price, discount float64) float64 {
	final := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(discount))
	if final.IsNegative() {
		return 0
	}
	return final.InexactFloat64()
}
