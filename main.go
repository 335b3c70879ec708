package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tokoadmin/internal/handlers"
	"tokoadmin/internal/middleware"
	"tokoadmin/internal/models"
	"tokoadmin/internal/repositories"
	"tokoadmin/internal/services"
	"tokoadmin/pkg/mediahost"
	"tokoadmin/pkg/rabbitmq"

	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "") // empty selects the in-memory repositories
	viper.SetDefault("JWT_SECRET", "change_me")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("RABBITMQ_URL", "") // empty disables catalog events
	viper.SetDefault("MEDIA_BASE_URL", "https://media.example.com")
	viper.SetDefault("MEDIA_API_KEY", "")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "")
	viper.SetDefault("ADMIN_EMAIL", "admin@example.com")
	viper.SetDefault("ADMIN_NAME", "Administrator")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	// --- Storage ---
	userRepo, categoryRepo, productRepo, err := buildRepositories(viper.GetString("DATABASE_DSN"))
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// --- Media host client ---
	uploader, err := mediahost.NewClient(mediahost.Config{
		BaseURL: viper.GetString("MEDIA_BASE_URL"),
		APIKey:  viper.GetString("MEDIA_API_KEY"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize media host client: %v", err)
	}

	// --- Optional RabbitMQ client ---
	var mqClient *rabbitmq.Client
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, catalog events disabled")
	}

	// --- Services ---
	tokenTTL := time.Duration(viper.GetInt("TOKEN_TTL_HOURS")) * time.Hour
	authService := services.NewAuthService(userRepo, viper.GetString("JWT_SECRET"), tokenTTL)
	categoryService := services.NewCategoryService(categoryRepo, productRepo)
	var events services.EventPublisher
	if mqClient != nil {
		events = mqClient
	}
	productService := services.NewProductService(productRepo, categoryRepo, uploader, events)

	// Out-of-band account provisioning: the API surface never creates users.
	seedAdminUser(userRepo)

	app := newApp(authService, categoryService, productService)

	// --- Catalog event consumer ---
	if mqClient != nil {
		if consumerErr := mqClient.Consume(func(msg amqp.Delivery) error {
			log.Printf("Received catalog event %s (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
			return nil
		}); consumerErr != nil {
			log.Printf("Failed to start catalog event consumer: %v", consumerErr)
		}
	}

	// --- Start HTTP server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// newApp wires repositories, services and handlers into a Fiber app. All
// routes except login and the health check sit behind the bearer-token gate.
func newApp(authService *services.AuthService, categoryService *services.CategoryService, productService *services.ProductService) *fiber.App {
	app := fiber.New()
	app.Use(logger.New())

	api := app.Group("/api")

	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	handlers.NewCategoryHandler(categoryService).RegisterRoutes(protected)
	handlers.NewProductHandler(productService).RegisterRoutes(protected)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app
}

// buildRepositories selects the storage backend from the DSN: postgres for a
// key=value DSN, sqlite for file DSNs, in-memory when empty.
func buildRepositories(dsn string) (repositories.UserRepository, repositories.CategoryRepository, repositories.ProductRepository, error) {
	if dsn == "" {
		log.Println("DATABASE_DSN not set, using in-memory repositories")
		return repositories.NewMockUserRepository(),
			repositories.NewMockCategoryRepository(),
			repositories.NewMockProductRepository(),
			nil
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Category{}, &models.Product{}); err != nil {
		return nil, nil, nil, err
	}

	return repositories.NewGORMUserRepository(db),
		repositories.NewGORMCategoryRepository(db),
		repositories.NewGORMProductRepository(db),
		nil
}

// seedAdminUser provisions the initial operator account from ADMIN_* config.
// Skipped when the username already exists or no password is configured.
func seedAdminUser(userRepo repositories.UserRepository) {
	username := viper.GetString("ADMIN_USERNAME")
	password := viper.GetString("ADMIN_PASSWORD")
	if password == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin provisioning")
		return
	}
	if existing, err := userRepo.GetByUsername(username); err == nil && existing != nil {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}
	admin := &models.User{
		Username: username,
		Email:    viper.GetString("ADMIN_EMAIL"),
		Name:     viper.GetString("ADMIN_NAME"),
		Password: string(hashed),
	}
	if err := userRepo.Create(admin); err != nil {
		log.Printf("Failed to provision admin user: %v", err)
		return
	}
	log.Printf("Provisioned admin user %s (ID: %s)", admin.Username, admin.ID)
}
