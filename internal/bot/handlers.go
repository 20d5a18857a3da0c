package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bot-cupons/internal/models"
	"bot-cupons/internal/publisher"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 20
	publishTimeout      = 2 * time.Minute
)

// Publisher executa um ciclo de publicação
type Publisher interface {
	Publish(ctx context.Context) (models.PublishResult, error)
}

// CouponLister expõe a tabela de faixas carregada
type CouponLister interface {
	Ranges() []models.PriceRange
}

// HistoryReader lê as últimas publicações
type HistoryReader interface {
	RecentPublications(ctx context.Context, limit int) ([]models.Publication, error)
}

// Commands atende os comandos de administração enviados ao bot
type Commands struct {
	sender      Sender
	publisher   Publisher
	coupons     CouponLister
	history     HistoryReader
	adminChatID int64
	logger      *zap.Logger
}

// NewCommands cria o tratador de comandos. history pode ser nil.
func NewCommands(sender Sender, pub Publisher, coupons CouponLister, history HistoryReader, adminChatID int64, logger *zap.Logger) *Commands {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Commands{
		sender:      sender,
		publisher:   pub,
		coupons:     coupons,
		history:     history,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Run processa as atualizações até o contexto ser cancelado ou o canal fechar
func (c *Commands) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			c.handle(ctx, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

func (c *Commands) handle(ctx context.Context, chatID int64, text string) {
	reply := c.Reply(ctx, chatID, text)
	if reply == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, reply)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.sender.Send(msg); err != nil {
		c.logger.Warn("erro ao enviar resposta com HTML", zap.Error(err))
		// Tentar sem formatação
		msg.ParseMode = ""
		if _, err := c.sender.Send(msg); err != nil {
			c.logger.Error("erro ao enviar resposta", zap.Error(err))
		}
	}
}

// Reply calcula a resposta para um comando. "" significa não responder.
func (c *Commands) Reply(ctx context.Context, chatID int64, text string) string {
	parts := strings.Fields(text)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return ""
	}

	command := strings.ToLower(parts[0])
	// Remover @botname se presente
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	// Comandos públicos (não precisam de autorização)
	isPublicCommand := command == "/start" || command == "/help"
	if !isPublicCommand && chatID != c.adminChatID {
		return "Você não está autorizado a usar este bot."
	}

	switch command {
	case "/start", "/help":
		return helpText
	case "/publish":
		return c.publish(ctx)
	case "/coupons":
		return c.listCoupons()
	case "/history":
		return c.listHistory(ctx, parts[1:])
	default:
		return "Comando não reconhecido. Use /help para ver os comandos disponíveis."
	}
}

const helpText = `🤖 <b>Bot de Cupons</b>

<b>Comandos disponíveis:</b>

<b>/publish</b> - Publicar uma oferta no canal agora

<b>/coupons</b> - Listar as faixas de preço e cupons

<b>/history [n]</b> - Últimas publicações (padrão 5)
Exemplo: /history 10

<b>/help</b> - Mostrar esta mensagem de ajuda
`

func (c *Commands) publish(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result, err := c.publisher.Publish(ctx)
	if err != nil {
		return fmt.Sprintf("❌ %s: %s", result.Message, publisher.EscapeHTML(err.Error()))
	}
	if !result.OK() {
		return fmt.Sprintf("⚠️ %s", result.Message)
	}

	response := fmt.Sprintf("✅ Oferta publicada!\n\nProduto: %s", publisher.EscapeHTML(result.ProductID))
	if result.CouponCode != "" {
		response += fmt.Sprintf("\nCupom: <b>%s</b>", publisher.EscapeHTML(result.CouponCode))
	}
	if result.FinalPrice != nil {
		response += fmt.Sprintf("\nPreço final: %s", publisher.FormatPrice(*result.FinalPrice))
	}
	return response
}

func (c *Commands) listCoupons() string {
	ranges := c.coupons.Ranges()
	if len(ranges) == 0 {
		return "📋 Nenhuma faixa de cupons carregada."
	}

	var response strings.Builder
	response.WriteString("📋 <b>Faixas de cupons:</b>\n\n")
	for _, r := range ranges {
		response.WriteString(fmt.Sprintf("💰 <b>%s – %s</b>\n", publisher.FormatAmount(r.MinPrice), publisher.FormatAmount(r.MaxPrice)))
		if len(r.Coupons) == 0 {
			response.WriteString("   (sem cupons)\n")
		}
		for _, cp := range r.Coupons {
			response.WriteString(fmt.Sprintf("   🎟 %s (-%s)\n", publisher.EscapeHTML(cp.Code), publisher.FormatAmount(cp.Discount)))
		}
		response.WriteString("\n")
	}
	return response.String()
}

func (c *Commands) listHistory(ctx context.Context, args []string) string {
	if c.history == nil {
		return "Histórico desativado."
	}

	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "❌ Formato incorreto.\n\nUso: /history [n]\n\nExemplo: /history 10"
		}
		limit = min(n, maxHistoryLimit)
	}

	pubs, err := c.history.RecentPublications(ctx, limit)
	if err != nil {
		return fmt.Sprintf("❌ Erro ao buscar histórico: %s", publisher.EscapeHTML(err.Error()))
	}
	if len(pubs) == 0 {
		return "📋 Nenhuma publicação registrada."
	}

	var response strings.Builder
	response.WriteString("📋 <b>Últimas publicações:</b>\n\n")
	for _, p := range pubs {
		status := "✅"
		if p.Status != models.StatusOK {
			status = "❌"
		}
		response.WriteString(fmt.Sprintf("%s %s\n", status, publisher.EscapeHTML(p.Title)))
		if p.CouponCode != "" {
			response.WriteString(fmt.Sprintf("🎟 %s: %s → %s\n", publisher.EscapeHTML(p.CouponCode), publisher.FormatPrice(p.OriginalPrice), publisher.FormatPrice(p.FinalPrice)))
		} else {
			response.WriteString(fmt.Sprintf("💰 %s\n", publisher.FormatPrice(p.OriginalPrice)))
		}
		response.WriteString(fmt.Sprintf("🕐 %s\n\n", p.CreatedAt.Format("02/01/2006 15:04")))
	}
	return response.String()
}
