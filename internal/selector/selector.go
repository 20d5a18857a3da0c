// Package selector escolhe o produto a ser divulgado em cada ciclo.
package selector

import (
	"context"
	"errors"
	"fmt"

	"bot-cupons/config"
	"bot-cupons/internal/marketplace"
	"bot-cupons/internal/models"
	"bot-cupons/internal/random"

	"go.uber.org/zap"
)

// Searcher é a parte do cliente do marketplace usada pelo seletor
type Searcher interface {
	SearchProducts(ctx context.Context, category models.Category, limit int) ([]models.Product, error)
}

var _ Searcher = (marketplace.Client)(nil)

// Selector sorteia uma categoria, busca produtos nela e sorteia um produto.
// A categoria é escolhida de forma uniforme pela fonte aleatória injetada.
type Selector struct {
	client     Searcher
	categories []models.Category
	limit      int
	rand       random.Source
	logger     *zap.Logger
}

// New cria um seletor. A lista de categorias não pode ser vazia.
func New(client Searcher, categories []models.Category, limit int, src random.Source, logger *zap.Logger) (*Selector, error) {
	if len(categories) == 0 {
		return nil, &config.ConfigError{Field: "categories", Err: errors.New("nenhuma categoria configurada")}
	}
	if limit <= 0 {
		limit = config.DefaultFetchLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Selector{
		client:     client,
		categories: append([]models.Category(nil), categories...),
		limit:      limit,
		rand:       random.OrDefault(src),
		logger:     logger,
	}, nil
}

// RandomProduct faz exatamente uma busca no marketplace. found=false quando a
// busca não retornou produtos (resultado normal, não é erro).
func (s *Selector) RandomProduct(ctx context.Context) (models.Product, bool, error) {
	category := s.categories[s.rand.Intn(len(s.categories))]

	products, err := s.client.SearchProducts(ctx, category, s.limit)
	if err != nil {
		return models.Product{}, false, fmt.Errorf("erro ao buscar produtos da categoria %s: %w", category.Name, err)
	}

	if len(products) == 0 {
		s.logger.Info("nenhum produto encontrado", zap.String("category", category.Name))
		return models.Product{}, false, nil
	}

	product := products[s.rand.Intn(len(products))]
	s.logger.Info("produto selecionado",
		zap.String("category", category.Name),
		zap.String("product_id", product.ID),
		zap.Int("candidates", len(products)),
	)
	return product, true, nil
}
