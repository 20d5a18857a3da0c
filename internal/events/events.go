package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bot-cupons/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	source  = "bot-cupons"
	version = "1.0"
)

// DealPublished é a mensagem enviada a cada oferta publicada no canal
type DealPublished struct {
	CycleID       string    `json:"cycle_id"`
	ProductID     string    `json:"product_id"`
	Title         string    `json:"title"`
	OriginalPrice float64   `json:"original_price"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	FinalPrice    float64   `json:"final_price"`
	Link          string    `json:"link"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// Notifier avisa outros serviços sobre publicações
type Notifier interface {
	Notify(ctx context.Context, pub models.Publication) error
	Close()
}

// conn é o subconjunto de *nats.Conn usado aqui
type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

// NATSNotifier publica DealPublished num subject NATS
type NATSNotifier struct {
	conn    conn
	subject string
	logger  *zap.Logger
	now     func() time.Time
}

// New conecta ao NATS. Com url vazia devolve um notifier que não faz nada.
func New(url, subject string, logger *zap.Logger) (Notifier, error) {
	if url == "" {
		return Nop{}, nil
	}

	nc, err := nats.Connect(url, nats.Name(source))
	if err != nil {
		return nil, fmt.Errorf("conectando ao NATS em %s: %w", url, err)
	}
	return newNATSNotifier(nc, subject, logger), nil
}

func newNATSNotifier(c conn, subject string, logger *zap.Logger) *NATSNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSNotifier{conn: c, subject: subject, logger: logger, now: time.Now}
}

// Notify publica a oferta no subject configurado
func (n *NATSNotifier) Notify(ctx context.Context, pub models.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(n.message(pub))
	if err != nil {
		return err
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publicando em %s: %w", n.subject, err)
	}

	n.logger.Debug("oferta enviada ao NATS", zap.String("subject", n.subject), zap.String("product_id", pub.ProductID))
	return nil
}

func (n *NATSNotifier) message(pub models.Publication) DealPublished {
	ts := pub.CreatedAt
	if ts.IsZero() {
		ts = n.now()
	}
	return DealPublished{
		CycleID:       pub.CycleID,
		ProductID:     pub.ProductID,
		Title:         pub.Title,
		OriginalPrice: pub.OriginalPrice,
		CouponCode:    pub.CouponCode,
		FinalPrice:    pub.FinalPrice,
		Link:          pub.Link,
		Timestamp:     ts.UTC(),
		Source:        source,
		Version:       version,
	}
}

// Close fecha a conexão com o NATS
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// Nop ignora todas as notificações
type Nop struct{}

func (Nop) Notify(context.Context, models.Publication) error { return nil }

func (Nop) Close() {}
