package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bot-cupons/internal/models"

	"gopkg.in/yaml.v3"
)

// ConfigError indica configuração ausente ou inválida. É fatal na inicialização.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuração inválida: %v", e.Err)
	}
	return fmt.Sprintf("configuração inválida (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError informa se err (ou algum erro encapsulado) é um ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

var errNotSet = errors.New("variável não configurada")

const (
	DefaultGatewayURL   = "https://api.taobao.com/router/rest"
	DefaultPostPrefix   = "🔥 عرض اليوم من AliExpress"
	DefaultFetchLimit   = 20
	DefaultNATSSubject  = "deals.published"
	DefaultHTTPAddr     = ":5000"
	DefaultVendor       = "aliexpress"
	DefaultSignMethod   = "md5"
	DefaultCouponsFile  = "./data/coupons.json"
	DefaultDatabasePath = "./publications.db"
)

// DefaultCategories é a lista estática de categorias usada quando
// CATEGORIES_FILE não é informado
var DefaultCategories = []models.Category{
	{Name: "phones", Keywords: "smartphone mobile phone"},
	{Name: "pc_accessories", Keywords: "laptop accessories computer accessories"},
}

// Config contém as configurações da aplicação
type Config struct {
	TelegramBotToken    string
	TelegramChannelID   string // "@canal" ou -1001234567890
	TelegramAdminChatID int64  // 0 desativa os comandos do bot

	AliAppKey     string
	AliAppSecret  string
	AliTrackingID string
	AliGatewayURL string
	AliSignMethod string
	Vendor        string

	CouponsFile        string
	Categories         []models.Category
	ProductsFetchLimit int
	PostPrefixText     string

	DatabasePath string
	HTTPAddr     string
	NATSURL      string
	NATSSubject  string

	CORSAllowOrigins []string // vazio libera todas as origens
}

// Load carrega as configurações das variáveis de ambiente
func Load() (*Config, error) {
	cfg := &Config{
		AliGatewayURL:      DefaultGatewayURL,
		AliSignMethod:      DefaultSignMethod,
		Vendor:             DefaultVendor,
		CouponsFile:        DefaultCouponsFile,
		Categories:         DefaultCategories,
		ProductsFetchLimit: DefaultFetchLimit,
		PostPrefixText:     DefaultPostPrefix,
		DatabasePath:       DefaultDatabasePath,
		HTTPAddr:           DefaultHTTPAddr,
		NATSSubject:        DefaultNATSSubject,
	}

	required := []struct {
		name string
		dst  *string
	}{
		{"TELEGRAM_BOT_TOKEN", &cfg.TelegramBotToken},
		{"TELEGRAM_CHANNEL_ID", &cfg.TelegramChannelID},
		{"ALI_APP_KEY", &cfg.AliAppKey},
		{"ALI_APP_SECRET", &cfg.AliAppSecret},
		{"ALI_TRACKING_ID", &cfg.AliTrackingID},
	}
	for _, r := range required {
		v := strings.TrimSpace(os.Getenv(r.name))
		if v == "" {
			return nil, &ConfigError{Field: r.name, Err: errNotSet}
		}
		*r.dst = v
	}

	setString(&cfg.AliGatewayURL, "ALI_GATEWAY_URL")
	setString(&cfg.AliSignMethod, "ALI_SIGN_METHOD")
	setString(&cfg.Vendor, "MARKETPLACE_VENDOR")
	setString(&cfg.CouponsFile, "COUPONS_FILE")
	setString(&cfg.PostPrefixText, "POST_PREFIX_TEXT")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.NATSURL, "NATS_URL")
	setString(&cfg.NATSSubject, "NATS_SUBJECT")

	// PORT tem precedência menor que HTTP_ADDR (plataformas como Render só definem PORT)
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	setString(&cfg.HTTPAddr, "HTTP_ADDR")

	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowOrigins = append(cfg.CORSAllowOrigins, origin)
			}
		}
	}

	if v := os.Getenv("PRODUCTS_FETCH_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, &ConfigError{Field: "PRODUCTS_FETCH_LIMIT", Err: fmt.Errorf("valor inválido %q", v)}
		}
		cfg.ProductsFetchLimit = parsed
	}

	// Chat de administração é opcional
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &ConfigError{Field: "TELEGRAM_ADMIN_CHAT_ID", Err: err}
		}
		cfg.TelegramAdminChatID = chatID
	}

	if path := os.Getenv("CATEGORIES_FILE"); path != "" {
		categories, err := LoadCategories(path)
		if err != nil {
			return nil, err
		}
		cfg.Categories = categories
	}

	return cfg, nil
}

// LoadCategories lê uma lista de categorias em JSON ou YAML (pela extensão)
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "CATEGORIES_FILE", Err: err}
	}

	var categories []models.Category
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &categories)
	default:
		err = json.Unmarshal(data, &categories)
	}
	if err != nil {
		return nil, &ConfigError{Field: "CATEGORIES_FILE", Err: err}
	}

	if len(categories) == 0 {
		return nil, &ConfigError{Field: "CATEGORIES_FILE", Err: errors.New("nenhuma categoria definida")}
	}
	for i, c := range categories {
		if c.Keywords == "" && c.CategoryID == "" {
			return nil, &ConfigError{Field: "CATEGORIES_FILE", Err: fmt.Errorf("categoria %d sem keywords nem category_id", i)}
		}
	}
	return categories, nil
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}
