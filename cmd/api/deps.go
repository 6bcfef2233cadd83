package main

import (
	"log"

	"zzpboek/internal/domain/banksync"
	"zzpboek/internal/domain/connection"
	"zzpboek/internal/infrastructure/crypto"
	"zzpboek/internal/infrastructure/postgres"
	"zzpboek/internal/infrastructure/tink"
	httphandlers "zzpboek/internal/interfaces/http"
	"zzpboek/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ConnectionHandler  *httphandlers.ConnectionHandler
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler
	HealthHandler      *httphandlers.HealthHandler

	// Set in main once the scheduler exists; nil when it is disabled.
	SyncHandler *httphandlers.SyncHandler

	// Connection service (for the scheduler job provider)
	Connections *connection.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	connectionRepo := postgres.NewConnectionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	tinkClient := tink.NewClient(tink.Config{
		ClientID:     cfg.Tink.ClientID,
		ClientSecret: cfg.Tink.ClientSecret,
		RedirectURL:  cfg.Tink.RedirectURL,
		PageSize:     cfg.Tink.PageSize,
	})

	syncService := banksync.NewService(tinkClient, accountRepo, transactionRepo)
	sessions := connection.NewSessionStore(cfg.Session.Secret, cfg.Session.TTL)
	connections := connection.NewService(
		tinkClient, connectionRepo, sessions, encryptor, syncService,
		cfg.Tink.DefaultMarket, cfg.Tink.DefaultLocale, cfg.Tink.TestMode,
	)

	return &Dependencies{
		DB:                 db,
		ConnectionHandler:  httphandlers.NewConnectionHandler(connections, cfg.Session.TTL),
		AccountHandler:     httphandlers.NewAccountHandler(accountRepo, transactionRepo),
		TransactionHandler: httphandlers.NewTransactionHandler(transactionRepo),
		HealthHandler:      httphandlers.NewHealthHandler(db),
		Connections:        connections,
	}, nil
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if err := d.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
