package bot

import (
	"fmt"
	"strconv"
	"strings"

	"bot-cupons/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Init inicializa o bot do Telegram
func Init(token string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	return InitWithEndpoint(token, tgbotapi.APIEndpoint, logger)
}

// InitWithEndpoint é Init contra outro servidor da Bot API (ex.: servidor local)
func InitWithEndpoint(token, endpoint string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		return nil, &config.ConfigError{Field: "TELEGRAM_BOT_TOKEN", Err: fmt.Errorf("token não configurado. Verifique o arquivo .env")}
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, &config.ConfigError{Field: "TELEGRAM_BOT_TOKEN", Err: fmt.Errorf("token do Telegram inválido ou expirado. Para obter um token, fale com @BotFather no Telegram")}
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", redactTransport(err))
	}

	bot.Debug = false
	logger.Info("bot autorizado", zap.String("username", bot.Self.UserName))
	return bot, nil
}

// Target é o destino das publicações: um chat numérico ou um @canal
type Target struct {
	ChatID          int64
	ChannelUsername string
}

// ParseTarget interpreta TELEGRAM_CHANNEL_ID ("@canal" ou -1001234567890)
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, &config.ConfigError{Field: "TELEGRAM_CHANNEL_ID", Err: fmt.Errorf("canal não configurado")}
	}
	if strings.HasPrefix(s, "@") {
		if len(s) == 1 {
			return Target{}, &config.ConfigError{Field: "TELEGRAM_CHANNEL_ID", Err: fmt.Errorf("nome de canal vazio")}
		}
		return Target{ChannelUsername: s}, nil
	}

	chatID, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Target{}, &config.ConfigError{Field: "TELEGRAM_CHANNEL_ID", Err: fmt.Errorf("valor inválido %q", s)}
	}
	return Target{ChatID: chatID}, nil
}

func (t Target) String() string {
	if t.ChannelUsername != "" {
		return t.ChannelUsername
	}
	return strconv.FormatInt(t.ChatID, 10)
}
