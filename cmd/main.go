package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"stockflow/config"
	"stockflow/internal/pkg/cache"
	"stockflow/internal/pkg/database"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/middleware"
	"stockflow/internal/pkg/token"

	// Handlers
	"stockflow/internal/api/alert"
	"stockflow/internal/api/auth"
	"stockflow/internal/api/count"
	"stockflow/internal/api/fulfillment"
	"stockflow/internal/api/inventory"
	"stockflow/internal/api/reservation"
	"stockflow/internal/api/router"
	"stockflow/internal/api/transfer"
	"stockflow/internal/api/warehouse"

	// Dados e jobs
	"stockflow/internal/domain"
	"stockflow/internal/jobs"
	"stockflow/internal/repository/memrepo"
	"stockflow/internal/repository/stockrepo"
	"stockflow/internal/repository/warehouserepo"

	// Lógica de Negócio
	"stockflow/internal/service/alertservice"
	"stockflow/internal/service/authservice"
	"stockflow/internal/service/countservice"
	"stockflow/internal/service/reservationservice"
	"stockflow/internal/service/selectorservice"
	"stockflow/internal/service/stockservice"
	"stockflow/internal/service/transferservice"
	"stockflow/internal/service/warehouseservice"
)

// stores agrupa as implementações de persistência escolhidas por STORAGE_DRIVER.
type stores struct {
	ledger       domain.LedgerStore
	warehouses   domain.WarehouseRepository
	transfers    domain.TransferRepository
	counts       domain.CountRepository
	reservations domain.ReservationRepository
	close        func() error
}

func openStores(cfg *config.Config, log logger.Logger) (stores, error) {
	if cfg.StorageDriver == "memory" {
		mem := memrepo.NewStore(log)
		return stores{ledger: mem, warehouses: mem, transfers: mem, counts: mem, reservations: mem, close: func() error { return nil }}, nil
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		ConnMaxIdleTime: cfg.DBConnIdleLimit,
	})
	if err != nil {
		return stores{}, err
	}
	stock := stockrepo.NewStockRepository(db, cfg.DBTimeout, log)
	return stores{
		ledger:       stock,
		warehouses:   warehouserepo.NewWarehouseRepository(db, cfg.DBTimeout, log),
		transfers:    stock,
		counts:       stock,
		reservations: stock,
		close:        db.Close,
	}, nil
}

func main() {
	log.Println("⚡ Inicializando serviço StockFlow...")
	if err := godotenv.Load(); err != nil {
		// As variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "storage": cfg.StorageDriver})

	// 1. Persistência
	st, err := openStores(cfg, appLog)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer st.close()
	appLog.Info("Armazenamento inicializado.", map[string]interface{}{"driver": cfg.StorageDriver})

	// 2. Cache (Redis) é opcional: sem ele não há rate limiting, cache de armazéns nem velocidade de vendas.
	var limiter func(http.Handler) http.Handler
	var velocity alertservice.VelocitySource
	cacheClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
	if err != nil {
		appLog.Warn("Redis indisponível; seguindo sem rate limiting.", map[string]interface{}{"error": err.Error()})
	} else {
		defer cacheClient.Close()
		limiter = middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, appLog)
		velocity = alertservice.NewRedisVelocitySource(cacheClient)
		st.warehouses = warehouserepo.NewCachedRepository(st.warehouses, cacheClient, cfg.WarehouseTTL, appLog)
		appLog.Info("Conexão Redis estabelecida.", nil)
	}

	// 3. Serviços. Ordem: Repository -> Service -> Handler
	ledgerSvc := stockservice.NewService(st.ledger, st.warehouses, appLog)
	warehouseSvc := warehouseservice.NewService(st.warehouses, appLog)
	selectorSvc := selectorservice.NewService(st.warehouses, st.ledger, appLog)
	reservationSvc := reservationservice.NewService(ledgerSvc, st.reservations, selectorSvc, cfg.ReservationTTL, appLog)
	transferSvc := transferservice.NewService(ledgerSvc, st.transfers, st.warehouses, appLog)
	countSvc := countservice.NewService(ledgerSvc, st.counts, st.warehouses, appLog)
	alertSvc := alertservice.NewService(st.ledger, velocity, appLog)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	clients, err := authservice.ParseClients(cfg.APIClients)
	if err != nil {
		appLog.Fatal("API_CLIENTS inválido.", err)
	}
	authSvc := authservice.NewService(clients, tokenSvc, appLog)
	appLog.Debug("Serviços inicializados.", nil)

	// 4. Jobs em segundo plano
	scheduler, err := jobs.NewScheduler(reservationSvc, alertSvc, jobs.Intervals{
		Sweep:      cfg.SweepInterval,
		AlertCheck: cfg.AlertCheckInterval,
	}, appLog)
	if err != nil {
		appLog.Fatal("Falha ao configurar jobs.", err)
	}
	scheduler.Start()

	// 5. Roteador e servidor
	handlers := router.Handlers{
		Auth:        auth.NewHandler(authSvc, appLog),
		Warehouse:   warehouse.NewHandler(warehouseSvc, ledgerSvc, appLog),
		Fulfillment: fulfillment.NewHandler(selectorSvc, appLog),
		Inventory:   inventory.NewHandler(ledgerSvc, appLog),
		Reservation: reservation.NewHandler(reservationSvc, appLog),
		Transfer:    transfer.NewHandler(transferSvc, appLog),
		Count:       count.NewHandler(countSvc, appLog),
		Alert:       alert.NewHandler(alertSvc, appLog),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(handlers, tokenSvc, limiter),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("Servidor StockFlow ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	if err := scheduler.Stop(); err != nil {
		appLog.Error("Falha ao parar os jobs.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
