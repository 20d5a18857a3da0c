package publisher

import (
	"context"
	"fmt"
	"math"

	"bot-cupons/internal/metrics"
	"bot-cupons/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mensagens devolvidas em PublishResult
const (
	MsgNoProducts   = "No products found"
	MsgSearchFailed = "Failed to fetch products"
	MsgLinkFailed   = "Failed to generate affiliate link"
	MsgSendFailed   = "Failed to send message"
	MsgPublished    = "Published"
)

// ProductSource fornece o produto do ciclo; found=false quando não há produto
type ProductSource interface {
	RandomProduct(ctx context.Context) (models.Product, bool, error)
}

// CouponPicker escolhe o cupom para um preço; ok=false quando não há cupom
type CouponPicker interface {
	PickCoupon(price float64) (models.CouponMatch, bool)
}

// Messenger envia a mensagem final ao canal
type Messenger interface {
	SendText(ctx context.Context, text string) error
	SendPhotoWithCaption(ctx context.Context, photoURL, caption string) error
}

// LinkResolver converte a URL do produto em link de afiliado ("" = sem link)
type LinkResolver interface {
	AffiliateLink(ctx context.Context, productURL string) (string, error)
}

// Recorder guarda o histórico de publicações
type Recorder interface {
	RecordPublication(ctx context.Context, pub models.Publication) error
}

// Notifier avisa outros serviços de uma publicação bem-sucedida
type Notifier interface {
	Notify(ctx context.Context, pub models.Publication) error
}

// Options reúne as dependências do Publisher. Links, History e Notifier são opcionais.
type Options struct {
	Products  ProductSource
	Coupons   CouponPicker
	Messenger Messenger
	Links     LinkResolver
	History   Recorder
	Notifier  Notifier
	Prefix    string
	Logger    *zap.Logger
	NewID     func() string
}

// Publisher executa um ciclo completo: produto → cupom → mensagem → envio
type Publisher struct {
	products  ProductSource
	coupons   CouponPicker
	messenger Messenger
	links     LinkResolver
	history   Recorder
	notifier  Notifier
	prefix    string
	logger    *zap.Logger
	newID     func() string
}

// New cria uma nova instância do publisher
func New(opts Options) *Publisher {
	p := &Publisher{
		products:  opts.Products,
		coupons:   opts.Coupons,
		messenger: opts.Messenger,
		links:     opts.Links,
		history:   opts.History,
		notifier:  opts.Notifier,
		prefix:    opts.Prefix,
		logger:    opts.Logger,
		newID:     opts.NewID,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Publish executa um ciclo de publicação. "Sem produto" e "sem cupom" são
// resultados normais; só falhas de chamadas externas retornam erro.
// Não há retentativa: quem disparou o ciclo decide se tenta de novo.
func (p *Publisher) Publish(ctx context.Context) (models.PublishResult, error) {
	result := models.PublishResult{CycleID: p.newID()}
	logger := p.logger.With(zap.String("cycle_id", result.CycleID))

	product, found, err := p.products.RandomProduct(ctx)
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("marketplace", "error").Inc()
		return p.fail(logger, result, MsgSearchFailed, err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("marketplace", "ok").Inc()

	if !found {
		logger.Warn("ciclo sem produto para publicar")
		metrics.PublishCyclesTotal.WithLabelValues("no_product").Inc()
		result.Status = models.StatusError
		result.Message = MsgNoProducts
		return result, nil
	}
	result.ProductID = product.ID

	price := normalizePrice(product.OriginalPrice)

	link, err := p.resolveLink(ctx, product)
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("marketplace", "error").Inc()
		return p.fail(logger, result, MsgLinkFailed, err)
	}

	pub := models.Publication{
		CycleID:       result.CycleID,
		ProductID:     product.ID,
		Title:         product.Title,
		OriginalPrice: price,
		FinalPrice:    price,
		Link:          link,
	}

	var coupon *models.CouponMatch
	if match, ok := p.coupons.PickCoupon(price); ok {
		coupon = &match
		pub.CouponCode = match.Coupon.Code
		pub.FinalPrice = match.FinalPrice
		metrics.CouponMatchesTotal.WithLabelValues("matched").Inc()
	} else {
		logger.Info("nenhum cupom para o preço", zap.Float64("price", price))
		metrics.CouponMatchesTotal.WithLabelValues("none").Inc()
	}

	text := FormatMessage(p.prefix, product.Title, price, coupon, link)

	if product.ImageURL != "" {
		err = p.messenger.SendPhotoWithCaption(ctx, product.ImageURL, text)
	} else {
		err = p.messenger.SendText(ctx, text)
	}
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("telegram", "error").Inc()
		pub.Status = models.StatusError
		pub.Error = err.Error()
		p.record(ctx, logger, pub)
		return p.fail(logger, result, MsgSendFailed, err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("telegram", "ok").Inc()

	pub.Status = models.StatusOK
	p.record(ctx, logger, pub)
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, pub); err != nil {
			logger.Warn("erro ao notificar publicação", zap.Error(err))
		}
	}

	logger.Info("produto publicado",
		zap.String("product_id", product.ID),
		zap.String("coupon", pub.CouponCode),
		zap.Float64("original_price", price),
		zap.Float64("final_price", pub.FinalPrice),
		zap.Bool("photo", product.ImageURL != ""),
	)
	metrics.PublishCyclesTotal.WithLabelValues(models.StatusOK).Inc()

	finalPrice := pub.FinalPrice
	result.Status = models.StatusOK
	result.Message = MsgPublished
	result.CouponCode = pub.CouponCode
	result.FinalPrice = &finalPrice
	return result, nil
}

// resolveLink busca o link de afiliado quando o produto ainda não tem um
func (p *Publisher) resolveLink(ctx context.Context, product models.Product) (string, error) {
	if product.AffiliateURL != "" || p.links == nil {
		return product.Link(), nil
	}

	link, err := p.links.AffiliateLink(ctx, product.ProductURL)
	if err != nil {
		return "", fmt.Errorf("erro ao gerar link de afiliado: %w", err)
	}
	if link == "" {
		return product.ProductURL, nil
	}
	return link, nil
}

func (p *Publisher) record(ctx context.Context, logger *zap.Logger, pub models.Publication) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordPublication(ctx, pub); err != nil {
		logger.Warn("erro ao gravar histórico", zap.Error(err))
	}
}

func (p *Publisher) fail(logger *zap.Logger, result models.PublishResult, msg string, err error) (models.PublishResult, error) {
	logger.Error(msg, zap.Error(err))
	metrics.PublishCyclesTotal.WithLabelValues(models.StatusError).Inc()
	result.Status = models.StatusError
	result.Message = msg
	return result, err
}

// normalizePrice trata preço ausente ou inválido como 0
func normalizePrice(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}
