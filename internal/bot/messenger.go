package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	// ErrRejected indica que a API do Telegram recusou a mensagem
	ErrRejected = errors.New("mensagem recusada pelo Telegram")
	// ErrNetwork indica falha de comunicação com a API do Telegram
	ErrNetwork = errors.New("falha de comunicação com o Telegram")
)

// Sender é a parte do *tgbotapi.BotAPI usada para enviar mensagens
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger publica mensagens de texto e fotos no canal configurado
type Messenger struct {
	sender Sender
	target Target
	logger *zap.Logger
}

// NewMessenger cria um Messenger para o destino informado
func NewMessenger(sender Sender, target Target, logger *zap.Logger) *Messenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{sender: sender, target: target, logger: logger}
}

// SendText envia uma mensagem de texto em HTML, com pré-visualização de links
func (m *Messenger) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	msg := tgbotapi.NewMessage(m.target.ChatID, text)
	msg.ChannelUsername = m.target.ChannelUsername
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = false

	sent, err := m.sender.Send(msg)
	if err != nil {
		return classify(err)
	}
	m.logger.Info("mensagem enviada", zap.String("target", m.target.String()), zap.Int("message_id", sent.MessageID))
	return nil
}

// SendPhotoWithCaption envia a foto (por URL) com a legenda em HTML
func (m *Messenger) SendPhotoWithCaption(ctx context.Context, photoURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	photo := tgbotapi.NewPhoto(m.target.ChatID, tgbotapi.FileURL(photoURL))
	photo.ChannelUsername = m.target.ChannelUsername
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	sent, err := m.sender.Send(photo)
	if err != nil {
		return classify(err)
	}
	m.logger.Info("foto enviada", zap.String("target", m.target.String()), zap.Int("message_id", sent.MessageID))
	return nil
}

// classify separa recusas da API (payload inválido, chat inexistente) de falhas de rede
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	var apiVal tgbotapi.Error
	if errors.As(err, &apiVal) {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, redactTransport(err))
}

// redactTransport remove a URL da requisição, que contém o token do bot,
// dos erros de transporte
func redactTransport(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", urlErr.Op, redactURL(urlErr.URL), urlErr.Err)
}

// redactURL mantém só o host e o método da API (ex.: api.telegram.org/sendMessage)
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "telegram"
	}
	return u.Host + "/" + path.Base(u.Path)
}
