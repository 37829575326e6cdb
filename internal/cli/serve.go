package cli

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spotbroker/internal/api"
	"spotbroker/internal/app/auction"
	"spotbroker/internal/app/billing"
	"spotbroker/internal/app/executor"
	"spotbroker/internal/app/service"
	"spotbroker/internal/app/worker"
	"spotbroker/internal/common/security"
	"spotbroker/internal/domain/model"
	"spotbroker/internal/domain/repository"
	"spotbroker/internal/platform/cache"
	"spotbroker/internal/platform/config"
	"spotbroker/internal/platform/database"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			applyServeFlags(cmd, config.AppConfig)
			if err := config.AppConfig.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(config.AppConfig)
		},
	}

	cmd.Flags().String("central-bank", "", "location of the central bank (host:port)")
	cmd.Flags().Int64("account-id", 0, "the broker's bank account id")
	cmd.Flags().String("port", "", "port to serve requests on")
	cmd.Flags().Int("capacity", 0, "number of jobs allowed to run at once")
	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("central-bank") {
		cfg.CentralBankAddr, _ = flags.GetString("central-bank")
	}
	if flags.Changed("account-id") {
		cfg.BrokerAccountID, _ = flags.GetInt64("account-id")
	}
	if flags.Changed("port") {
		cfg.APIPort, _ = flags.GetString("port")
	}
	if flags.Changed("capacity") {
		cfg.PoolCapacity, _ = flags.GetInt("capacity")
	}
}

func serve(cfg *config.Config) error {
	// 1. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 2. Initialize Database
	database.Connect()
	defer database.Close()

	// 3. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()

	// 4. Initialize Repositories
	chargeRepo := repository.NewSQLChargeRepository(database.DB, cfg.DBDriver)
	priceRepo := repository.NewRedisPriceHistoryRepository(cache.RDB, cfg.PriceHistoryKey, cfg.PriceHistoryLimit)

	// 5. Initialize the auction core
	sched := auction.NewScheduler(cfg.PoolCapacity)
	tasks, err := executor.NewFactory(cfg.ExecutorCommand)
	if err != nil {
		return err
	}
	bank := billing.NewBankClient(cfg.CentralBankAddr, cfg.BankTimeout)
	charger := billing.NewCharger(bank, chargeRepo, cfg.BrokerAccountID)

	// 6. Initialize Services
	broker := service.NewBrokerService(sched, tasks, charger, cfg.RebillInterval)
	services := api.Services{
		Auth:    service.NewAuthService(cfg.AdminUsername, cfg.AdminPasswordHash),
		Pool:    service.NewPoolService(sched),
		Price:   service.NewPriceService(priceRepo, cfg.PriceHistoryLimit),
		Broker:  broker,
		Charges: service.NewChargeService(chargeRepo),
	}

	// 7. Start the price sampler
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()
	sampler := worker.NewPriceSampler(sched, priceRepo, cfg.PriceSampleInterval)
	go sampler.Start(appCtx)
	fmt.Println("Price sampler started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(appCtx, services)
	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// 9. Announce to discovery
	discovery := service.NewDiscoveryService(cfg.DiscoveryAddr)
	go discovery.RegisterOrWarn(appCtx, model.ResourceOffer{
		Name:     cfg.ResourceName,
		Address:  advertisedAddr(cfg.APIPort),
		Resource: model.SpotPriceResource(),
	})

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s (capacity %d, rebill every %s)", cfg.APIPort, cfg.PoolCapacity, cfg.RebillInterval)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown failed: %v", err)
	}

	// Ends every session; each one still settles its final charge.
	appCancel()
	broker.Wait()

	log.Println("Server and sessions stopped gracefully.")
	return nil
}

func advertisedAddr(port string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
