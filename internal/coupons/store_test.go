package coupons

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"bot-cupons/config"
	"bot-cupons/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence devolve os índices em ordem cíclica
type sequence struct{ next int }

func (s *sequence) Intn(n int) int {
	v := s.next % n
	s.next++
	return v
}

const sampleTable = `{
  "ranges": [
    {"min_price": 0, "max_price": 9.99, "coupons": [{"code": "LOW1", "discount": 1}]},
    {"min_price": 10, "max_price": 19.99, "coupons": []},
    {"min_price": 20, "max_price": 30, "coupons": [{"code": "SAVE5", "discount": 5}]},
    {"min_price": 25, "max_price": 100, "coupons": [{"code": "BIG10", "discount": 10}, {"code": "BIG15", "discount": 15}]}
  ]
}`

func mustParse(t *testing.T, data string) *Store {
	t.Helper()
	store, err := Parse([]byte(data), FormatJSON, &sequence{})
	require.NoError(t, err)
	return store
}

func TestFindRangeContiguous(t *testing.T) {
	store := New([]models.PriceRange{
		{MinPrice: 0, MaxPrice: 10},
		{MinPrice: 10.01, MaxPrice: 50},
		{MinPrice: 50.01, MaxPrice: 1e12},
	}, nil)

	tests := []struct {
		price float64
		min   float64
	}{
		{0, 0},
		{5, 0},
		{10, 0},
		{10.01, 10.01},
		{49.99, 10.01},
		{50, 10.01},
		{50.01, 50.01},
		{99999, 50.01},
	}
	for _, tt := range tests {
		r, ok := store.FindRange(tt.price)
		require.True(t, ok, "price %v", tt.price)
		assert.Equal(t, tt.min, r.MinPrice, "price %v", tt.price)
	}
}

func TestFindRangeOverlapFirstWins(t *testing.T) {
	store := mustParse(t, sampleTable)

	r, ok := store.FindRange(27.5)
	require.True(t, ok)
	assert.Equal(t, 20.0, r.MinPrice)
	assert.Equal(t, "SAVE5", r.Coupons[0].Code)

	r, ok = store.FindRange(31)
	require.True(t, ok)
	assert.Equal(t, 25.0, r.MinPrice)
}

func TestFindRangeNoMatch(t *testing.T) {
	store := mustParse(t, sampleTable)

	_, ok := store.FindRange(100.01)
	assert.False(t, ok)

	_, ok = store.FindRange(9.995)
	assert.False(t, ok)
}

func TestPickCoupon(t *testing.T) {
	store := mustParse(t, sampleTable)

	match, ok := store.PickCoupon(27.5)
	require.True(t, ok)
	assert.Equal(t, "SAVE5", match.Coupon.Code)
	assert.Equal(t, 22.5, match.FinalPrice)
}

func TestPickCouponEmptyTier(t *testing.T) {
	store := mustParse(t, sampleTable)

	for _, p := range []float64{10, 15, 19.99} {
		_, ok := store.PickCoupon(p)
		assert.False(t, ok, "price %v", p)
	}
}

func TestPickCouponNoRange(t *testing.T) {
	store := mustParse(t, sampleTable)

	_, ok := store.PickCoupon(1000)
	assert.False(t, ok)
}

func TestPickCouponClampsAtZero(t *testing.T) {
	store := New([]models.PriceRange{
		{MinPrice: 0, MaxPrice: 10, Coupons: []models.Coupon{{Code: "HUGE", Discount: 50}}},
	}, nil)

	for _, p := range []float64{0, 0.5, 3, 9.99, 10} {
		match, ok := store.PickCoupon(p)
		require.True(t, ok)
		assert.Equal(t, 0.0, match.FinalPrice, "price %v", p)
	}
}

func TestPickCouponZeroDiscount(t *testing.T) {
	store := New([]models.PriceRange{
		{MinPrice: 0, MaxPrice: 1000, Coupons: []models.Coupon{{Code: "ZERO", Discount: 0}}},
	}, nil)

	for _, p := range []float64{0, 0.01, 27.5, 27.499, 999.99} {
		match, ok := store.PickCoupon(p)
		require.True(t, ok)
		assert.Equal(t, p, match.FinalPrice)
	}
}

func TestPickCouponUniform(t *testing.T) {
	tier := []models.Coupon{{Code: "A", Discount: 1}, {Code: "B", Discount: 2}, {Code: "C", Discount: 3}}
	ranges := []models.PriceRange{{MinPrice: 0, MaxPrice: 100, Coupons: tier}}

	t.Run("cyclic source", func(t *testing.T) {
		store := New(ranges, &sequence{})
		counts := map[string]int{}
		for i := 0; i < 300; i++ {
			m, _ := store.PickCoupon(50)
			counts[m.Coupon.Code]++
		}
		assert.Equal(t, map[string]int{"A": 100, "B": 100, "C": 100}, counts)
	})

	t.Run("seeded source", func(t *testing.T) {
		store := New(ranges, rand.New(rand.NewSource(42)))
		const trials = 30000
		counts := map[string]int{}
		for i := 0; i < trials; i++ {
			m, _ := store.PickCoupon(50)
			counts[m.Coupon.Code]++
		}
		for _, c := range tier {
			assert.InDelta(t, 1.0/3, float64(counts[c.Code])/trials, 0.02, c.Code)
		}
	})
}

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		price, discount, want float64
	}{
		{27.5, 5, 22.5},
		{0.3, 0.1, 0.2},
		{10, 10, 0},
		{3, 7.5, 0},
		{19.99, 0, 19.99},
		{27.505, 0, 27.505},
		{27.505, 5, 22.505},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FinalPrice(tt.price, tt.discount), "%v - %v", tt.price, tt.discount)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":         `{"ranges": [`,
		"no ranges":      `{}`,
		"missing min":    `{"ranges": [{"max_price": 10, "coupons": []}]}`,
		"missing max":    `{"ranges": [{"min_price": 1, "coupons": []}]}`,
		"inverted":       `{"ranges": [{"min_price": 10, "max_price": 1, "coupons": []}]}`,
		"negative price": `{"ranges": [{"min_price": -1, "max_price": 1, "coupons": []}]}`,
		"no code":        `{"ranges": [{"min_price": 0, "max_price": 1, "coupons": [{"discount": 1}]}]}`,
		"no discount":    `{"ranges": [{"min_price": 0, "max_price": 1, "coupons": [{"code": "X"}]}]}`,
		"negative disc":  `{"ranges": [{"min_price": 0, "max_price": 1, "coupons": [{"code": "X", "discount": -2}]}]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data), FormatJSON, nil)
			require.Error(t, err)
			assert.True(t, config.IsConfigError(err))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "coupons.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleTable), 0644))
	store, err := Load(jsonPath, nil)
	require.NoError(t, err)
	assert.Len(t, store.Ranges(), 4)

	yamlPath := filepath.Join(dir, "coupons.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
ranges:
  - min_price: 20
    max_price: 30
    coupons:
      - code: SAVE5
        discount: 5
`), 0644))
	store, err = Load(yamlPath, nil)
	require.NoError(t, err)
	match, ok := store.PickCoupon(27.5)
	require.True(t, ok)
	assert.Equal(t, "SAVE5", match.Coupon.Code)

	_, err = Load(filepath.Join(dir, "missing.json"), nil)
	assert.True(t, config.IsConfigError(err))
}

func TestRangesReturnsCopy(t *testing.T) {
	store := mustParse(t, sampleTable)

	ranges := store.Ranges()
	ranges[2].Coupons[0].Code = "CHANGED"
	ranges[0].MinPrice = 500

	r, ok := store.FindRange(27.5)
	require.True(t, ok)
	assert.Equal(t, "SAVE5", r.Coupons[0].Code)
	_, ok = store.FindRange(1)
	assert.True(t, ok)
}

func TestLoadBundledTable(t *testing.T) {
	store, err := Load(filepath.Join("..", "..", "data", "coupons.json"), &sequence{})
	require.NoError(t, err)

	match, ok := store.PickCoupon(27.5)
	require.True(t, ok)
	assert.Equal(t, "SAVE5", match.Coupon.Code)
	assert.Equal(t, 22.5, match.FinalPrice)

	_, ok = store.PickCoupon(5)
	assert.False(t, ok)
	assert.Equal(t, []models.Coupon{}, store.Ranges()[0].Coupons)
}
