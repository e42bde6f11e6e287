package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/paystack"
	"storefront/internal/sms"
	"storefront/internal/store"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureCustomerIndexes(db); err != nil {
		log.Println("customer index warning:", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Println("product index warning:", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Println("order index warning:", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Println("cart index warning:", err)
	}
	if err := database.EnsureNotificationIndexes(db); err != nil {
		log.Println("notification index warning:", err)
	}

	orders := store.NewMongo(db)
	gateway := paystack.NewClient(config.AppEnv.PaystackSecretKey, config.AppEnv.PaystackBaseURL)
	smsClient := sms.NewClient(
		config.AppEnv.SMSAPIURL,
		config.AppEnv.SMSAPIKey,
		config.AppEnv.SMSSenderID,
		config.AppEnv.CountryCallingCode,
	)

	var feed notify.Publisher
	if len(config.AppEnv.KafkaBrokers) > 0 {
		producer := events.NewProducer(config.AppEnv.KafkaBrokers, config.AppEnv.KafkaNotificationsTopic)
		defer producer.Close()
		feed = producer
	} else {
		log.Println("KAFKA_BROKERS not set, notification feed disabled")
	}

	notifier := notify.New(
		smsClient,
		notify.NewMongoRecorder(db),
		feed,
		config.AppEnv.OperatorPhone,
		config.AppEnv.Currency,
	)

	svc := checkout.NewService(orders, gateway, notifier, checkout.Config{
		Currency:    config.AppEnv.Currency,
		DeliveryFee: config.AppEnv.DeliveryFee,
		CallbackURL: config.AppEnv.CallbackURL,
	})

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(db))
	r.POST("/auth/login", handlers.Login(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/refresh", handlers.Refresh(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/campaign", handlers.GetCampaignProducts(db))
	r.GET("/categories", handlers.GetCategories(db))

	r.POST("/webhooks/paystack", handlers.PaystackWebhook(svc, config.AppEnv.PaystackSecretKey))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/addresses", handlers.GetAddresses(db))
		user.POST("/addresses", handlers.CreateAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteAddress(db))
	}

	cart := r.Group("/cart")
	cart.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		cart.GET("", handlers.GetCart(db))
		cart.POST("/items", handlers.AddCartItem(db))
		cart.PUT("/items/:productId", handlers.UpdateCartItem(db))
		cart.DELETE("/items/:productId", handlers.RemoveCartItem(db))
		cart.DELETE("", handlers.ClearCart(db))
	}

	shop := r.Group("/")
	shop.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		shop.POST("/checkout", handlers.Checkout(db, svc))
		shop.POST("/checkout/:orderNumber/pay", handlers.RetryPayment(orders, svc))
		shop.GET("/checkout/confirm", handlers.ConfirmPayment(orders, svc))
		shop.GET("/orders", handlers.GetMyOrders(orders))
		shop.GET("/orders/:orderNumber", handlers.GetMyOrder(orders))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(orders))
		admin.PATCH("/orders/:orderNumber/status", handlers.UpdateOrderStatus(orders))

		admin.GET("/notifications", handlers.GetNotifications(db))
		admin.PATCH("/notifications/:id/read", handlers.MarkNotificationRead(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
