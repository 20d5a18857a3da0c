package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bot-cupons/config"
	"bot-cupons/internal/api"
	"bot-cupons/internal/bot"
	"bot-cupons/internal/coupons"
	"bot-cupons/internal/database"
	"bot-cupons/internal/events"
	"bot-cupons/internal/marketplace"
	"bot-cupons/internal/metrics"
	"bot-cupons/internal/publisher"
	"bot-cupons/internal/random"
	"bot-cupons/internal/selector"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

const (
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Erro ao inicializar logger: %v", err)
	}

	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		logger.Info("arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	code := execute(logger)
	logger.Sync()
	os.Exit(code)
}

// execute roda o bot e devolve o código de saída do processo. Quando retorna,
// os recursos abertos por run (banco, NATS, servidor HTTP) já foram fechados.
func execute(logger *zap.Logger) int {
	if err := run(logger); err != nil {
		logger.Error("erro fatal", zap.Error(err), zap.Bool("config_error", config.IsConfigError(err)))
		if config.IsConfigError(err) {
			return exitConfigError
		}
		return exitFailure
	}
	return 0
}

func run(logger *zap.Logger) error {
	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	target, err := bot.ParseTarget(cfg.TelegramChannelID)
	if err != nil {
		return err
	}

	// Tabela de cupons
	couponStore, err := coupons.Load(cfg.CouponsFile, random.Global)
	if err != nil {
		return err
	}
	logger.Info("tabela de cupons carregada", zap.String("file", cfg.CouponsFile), zap.Int("ranges", len(couponStore.Ranges())))

	// Inicializar marketplaces
	aliexpress, err := marketplace.NewAliExpressClient(marketplace.AliExpressOptions{
		AppKey:     cfg.AliAppKey,
		AppSecret:  cfg.AliAppSecret,
		TrackingID: cfg.AliTrackingID,
		GatewayURL: cfg.AliGatewayURL,
		SignMethod: cfg.AliSignMethod,
		Logger:     logger.Named("aliexpress"),
	})
	if err != nil {
		return err
	}
	registry := marketplace.NewRegistry()
	registry.Register(config.DefaultVendor, aliexpress)

	client, ok := registry.Find(cfg.Vendor)
	if !ok {
		return &config.ConfigError{Field: "MARKETPLACE_VENDOR", Err: fmt.Errorf("marketplace não suportado: %s (disponíveis: %s)", cfg.Vendor, strings.Join(registry.Vendors(), ", "))}
	}

	productSelector, err := selector.New(client, cfg.Categories, cfg.ProductsFetchLimit, random.Global, logger.Named("selector"))
	if err != nil {
		return err
	}

	// Inicializar bot do Telegram
	telegramBot, err := bot.Init(cfg.TelegramBotToken, logger)
	if err != nil {
		return err
	}
	messenger := bot.NewMessenger(telegramBot, target, logger.Named("telegram"))

	// Inicializar banco de dados
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	notifier, err := events.New(cfg.NATSURL, cfg.NATSSubject, logger.Named("events"))
	if err != nil {
		return err
	}
	defer notifier.Close()

	pub := publisher.New(publisher.Options{
		Products:  productSelector,
		Coupons:   couponStore,
		Messenger: messenger,
		Links:     client,
		History:   db,
		Notifier:  notifier,
		Prefix:    cfg.PostPrefixText,
		Logger:    logger.Named("publisher"),
	})

	metrics.Init(cfg.Vendor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Comandos do bot só com chat de administração configurado
	if cfg.TelegramAdminChatID != 0 {
		commands := bot.NewCommands(telegramBot, pub, couponStore, db, cfg.TelegramAdminChatID, logger.Named("commands"))
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := telegramBot.GetUpdatesChan(u)
		go commands.Run(ctx, updates)
		defer telegramBot.StopReceivingUpdates()
		logger.Info("comandos de administração ativos", zap.Int64("admin_chat_id", cfg.TelegramAdminChatID))
	}

	router := api.Setup(api.Options{
		Publisher:    pub,
		Coupons:      couponStore,
		History:      db,
		Stats:        db,
		AllowOrigins: cfg.CORSAllowOrigins,
		Logger:       logger.Named("http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("servidor HTTP iniciado", zap.String("addr", cfg.HTTPAddr), zap.String("target", target.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Aguardar sinal de interrupção
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("encerrando bot...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
