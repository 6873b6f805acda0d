package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/tasks"
	"github.com/redis/go-redis/v9"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	lg := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(lg)

	slog.Info("🚀 Starting scheduler ✅")

	if len(os.Getenv("PORT")) > 0 {
		time.Sleep(4 * time.Second)
	}

	godotenv.Load("../.env")

	db, err := sqlx.Connect("mysql", os.Getenv("DATABASE_URL"))

	if err != nil {
		slog.Error("Unable to connect to db",
			slog.String("error", err.Error()))

		panic(err)
	}

	defer db.Close()

	store := chatdb.NewSQLStore(db)

	writeRedisOpts, err := redis.ParseURL(os.Getenv("WRITE_REDIS_URL"))

	if err != nil {
		slog.Error("Unable to read redis database",
			slog.String("error", err.Error()))

		panic(err)
	}

	redisOpt := asynq.RedisClientOpt{
		Network:  writeRedisOpts.Network,
		Addr:     writeRedisOpts.Addr,
		Username: writeRedisOpts.Username,
		Password: writeRedisOpts.Password,
		DB:       writeRedisOpts.DB,
	}

	retentionDays, _ := strconv.Atoi(os.Getenv("MESSAGE_RETENTION_DAYS"))

	go runPeriodicTasks(redisOpt, retentionDays)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()

	mux.HandleFunc(tasks.TypeMessagesCleanup, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleMessagesCleanupTask(ctx, t, store)
	})

	if err := srv.Run(mux); err != nil {
		slog.Error("Scheduler crashed",
			slog.String("error", err.Error()))
	}
}

func runPeriodicTasks(redisOpt asynq.RedisClientOpt, retentionDays int) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	cleanup, err := tasks.NewMessagesCleanupTask(retentionDays)

	if err != nil {
		slog.Error("Unable to create cleanup task",
			slog.String("error", err.Error()))

		return
	}

	if _, err := scheduler.Register("@every 24h", cleanup, asynq.Queue("low")); err != nil {
		slog.Error("Unable to register cleanup task",
			slog.String("error", err.Error()))

		return
	}

	if err := scheduler.Run(); err != nil {
		slog.Error("Periodic scheduler crashed",
			slog.String("error", err.Error()))
	}
}
