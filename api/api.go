package main

import (
	"context"
	"strings"
	"time"

	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/handlers"
	sseserver "github.com/huddlechat/huddle/sse_server"
	"github.com/joho/godotenv"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	jwtware "github.com/gofiber/contrib/jwt"
)

func main() {
	lg := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(lg)

	slog.Info("🚀 Starting chat api ✅")

	if len(os.Getenv("PORT")) > 0 {
		time.Sleep(4 * time.Second)
	}

	ctx := context.Background()

	godotenv.Load("../.env")

	readRedisOpts, err := redis.ParseURL(os.Getenv("READ_REDIS_URL"))

	if err != nil {
		slog.Error("Unable to read redis database",
			slog.String("error", err.Error()))

		panic(err)
	}

	writeRedisOpts, err := redis.ParseURL(os.Getenv("WRITE_REDIS_URL"))

	if err != nil {
		slog.Error("Unable to read redis database",
			slog.String("error", err.Error()))

		panic(err)
	}

	db, err := sqlx.Connect("mysql", os.Getenv("DATABASE_URL"))

	if err != nil {
		slog.Error("Unable to connect to db",
			slog.String("error", err.Error()))

		panic(err)
	}

	defer db.Close()

	store := chatdb.NewSQLStore(db)

	rRdb := redis.NewClient(&redis.Options{
		Addr:     readRedisOpts.Addr,
		Username: readRedisOpts.Username,
		Password: readRedisOpts.Password,
		DB:       readRedisOpts.DB,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			slog.Info("Read Connected")
			return nil
		},
	})

	if err := rRdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("Read Redis Error",
			slog.String("error", err.Error()))
	}

	wRdb := redis.NewClient(&redis.Options{
		Addr:     writeRedisOpts.Addr,
		Username: writeRedisOpts.Username,
		Password: writeRedisOpts.Password,
		DB:       writeRedisOpts.DB,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			slog.Info("Write Connected")
			return nil
		},
	})

	if err := wRdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("Write Redis Error",
			slog.String("error", err.Error()))
	}

	hub := sseserver.NewRegistry()

	app := fiber.New(fiber.Config{
		Network:   "tcp",
		BodyLimit: 10485760,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		DisableColors: false,
		Format:        "${pid} ${locals:requestid} ${status} - ${method} ${path}​",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/sse")
		},
	}))
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Huddle up!")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("I'm healthy!")
	})

	app.Get("/metrics", monitor.New(monitor.Config{Title: "Metrics"}))

	api := fiber.New()
	app.Mount("/api", api)

	api.Use(func(c *fiber.Ctx) error {
		c.Accepts("application/json")
		return c.Next()
	})

	auth := fiber.New()

	auth.Use(limiter.New(limiter.Config{
		Max:               30,
		Expiration:        1 * time.Hour,
		LimiterMiddleware: limiter.SlidingWindow{},
	}))

	api.Mount("/auth", auth)

	auth.Post("/sign_up", func(c *fiber.Ctx) error {
		return handlers.SignUp(c, ctx, db, wRdb)
	})

	auth.Post("/sign_in", func(c *fiber.Ctx) error {
		return handlers.SignIn(c, ctx, db, wRdb)
	})

	api.Use(jwtware.New(jwtware.Config{
		SuccessHandler: func(c *fiber.Ctx) error {
			lg.Info("jwt authorized ✅")
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, h error) error {
			lg.Info("jwt unauthorized 👀")
			return c.Next()
		},
		SigningKey: jwtware.SigningKey{Key: []byte(os.Getenv("JWT_SECRET"))},
	}))

	api.Use(func(c *fiber.Ctx) error {
		return handlers.AuthorizationREST(c, ctx, db, wRdb, rRdb)
	})

	api.Get("/rooms/public", func(c *fiber.Ctx) error {
		return handlers.PublicRoom(c, ctx, store)
	})

	api.Post("/rooms/create", func(c *fiber.Ctx) error {
		return handlers.CreateRoom(c, ctx, store)
	})

	api.Get("/rooms/join/:code", func(c *fiber.Ctx) error {
		return handlers.JoinRoom(c, ctx, store)
	})

	api.Get("/sse/stats", func(c *fiber.Ctx) error {
		return handlers.SSEStats(c, hub)
	})

	api.Get("/sse/:roomId", func(c *fiber.Ctx) error {
		return handlers.SSEConnect(c, ctx, store, wRdb, hub)
	})

	sendLimiter := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(&fiber.Map{
				"success":    false,
				"message":    "Too many requests, please try again later.",
				"retryAfter": 60,
			})
		},
	})

	api.Post("/messages/send", sendLimiter, func(c *fiber.Ctx) error {
		return handlers.SendMessage(c, ctx, store, hub)
	})

	api.Get("/messages/:roomId/latest", func(c *fiber.Ctx) error {
		return handlers.LatestMessages(c, ctx, store)
	})

	api.Get("/messages/:roomId", func(c *fiber.Ctx) error {
		return handlers.Messages(c, ctx, store)
	})

	port := ":3001"

	if envPort := os.Getenv("PORT"); envPort != "" {
		port = ":" + envPort
	}

	app.Listen(port)
}
