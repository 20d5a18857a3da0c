package marketplace

import (
	"context"
	"errors"
	"sort"
	"strings"

	"bot-cupons/internal/models"
)

// ErrUpstream indica falha na chamada à API do marketplace (rede, status
// não-2xx, resposta de erro ou JSON malformado)
var ErrUpstream = errors.New("falha na API do marketplace")

// Client define a interface para clientes de diferentes marketplaces.
// SearchProducts nunca retorna produtos sem ID, título ou URL.
type Client interface {
	SearchProducts(ctx context.Context, category models.Category, limit int) ([]models.Product, error)
	AffiliateLink(ctx context.Context, productURL string) (string, error)
}

// Registry mantém um registro dos clientes disponíveis por fornecedor
type Registry struct {
	clients map[string]Client
}

// NewRegistry cria um novo registro de clientes
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register associa um cliente a um fornecedor (ex.: "aliexpress")
func (r *Registry) Register(vendor string, client Client) {
	r.clients[strings.ToLower(vendor)] = client
}

// Find encontra o cliente de um fornecedor
func (r *Registry) Find(vendor string) (Client, bool) {
	c, ok := r.clients[strings.ToLower(vendor)]
	return c, ok
}

// Vendors lista os fornecedores registrados em ordem alfabética
func (r *Registry) Vendors() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
