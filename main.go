package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var cfg Config

// newRouter wires routes and middleware. Split out of main so tests can
// run requests against the real routing table.
func newRouter() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", healthCheck)
	r.POST("/api/register", register)
	r.POST("/api/login", login)
	r.POST("/api/logout", logout)

	api := r.Group("/api", authRequired())
	{
		api.GET("/wallets", getWallets)
		api.POST("/wallets", addWallet)
		api.GET("/wallets/:id", getWallet)
		api.PUT("/wallets/:id", updateWallet)
		api.DELETE("/wallets/:id", deleteWallet)

		api.GET("/invoices", getInvoices)
		api.POST("/invoices", addInvoice)
		api.GET("/invoices/:id", getInvoice)
		api.PUT("/invoices/:id", updateInvoice)
		api.DELETE("/invoices/:id", deleteInvoice)

		api.GET("/transactions", getTransactions)
		api.POST("/transactions", addTransaction)
		api.GET("/transactions/:id", getTransaction)
		api.PUT("/transactions/:id", updateTransaction)
		api.DELETE("/transactions/:id", deleteTransaction)

		api.GET("/users/me", getMe)
		api.PUT("/users/me", updateMe)
		api.DELETE("/users/me", deleteMe)

		api.GET("/analytics", getAnalytics)
	}

	return r
}

func main() {
	// Check for migrate command
	migrateCmd := flag.Bool("migrate", false, "Run database migration")
	seedDemoCmd := flag.Bool("seed-demo", false, "Seed a demo account with ledger data (idempotent)")
	flag.Parse()

	cfg = loadConfig()

	if *migrateCmd {
		if err := setupDatabase(cfg.DatabaseURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
		os.Exit(0)
	}
	if *seedDemoCmd {
		if err := initDB(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		if err := seedDemoData(db); err != nil {
			log.Fatalf("Seeding demo data failed: %v", err)
		}
		log.Println("Demo data seeded")
		os.Exit(0)
	}

	// Initialize database
	if err := initDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	store = newPGStore(db)

	// Initialize Redis
	if err := initRedis(cfg.RedisURL); err != nil {
		log.Printf("Warning: Failed to initialize Redis: %v", err)
		log.Println("Continuing without Redis cache...")
		redisClient = nil
	}

	r := newRouter()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
