package bootstrap

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"studybot/internal/cache"
	"studybot/internal/config"
	"studybot/internal/dispatch"
	"studybot/internal/flow"
	"studybot/internal/notify"
	"studybot/internal/pkg/logger"
	"studybot/internal/quota"
	"studybot/internal/repository/implementation"
	"studybot/internal/session"
	"studybot/internal/sweep"
	"studybot/internal/transport"
	"studybot/internal/worker"
	"studybot/pkg/completion"
)

const jobTopic = "jobs.prompts"

type Container struct {
	Router   *dispatch.Router
	Executor *worker.Executor
	Sweeper  *sweep.Sweeper
	Logger   logger.ILogger

	notifier notify.OperatorNotifier
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Redis backs sessions, the response cache, and debit dedupe. Without
	// it the bot still runs, single-process, with in-memory fallbacks.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Invalid REDIS_URL, falling back to in-memory stores: %v", err)
		} else {
			rdb = redis.NewClient(opts)
		}
	}

	var sessions session.Store
	var responses cache.ResponseCache
	if rdb != nil {
		sessions = session.NewRedisStore(rdb)
		responses = cache.NewRedisCache(rdb, sysLogger)
	} else {
		sessions = session.NewMemoryStore()
		responses = cache.NewMemoryCache()
	}

	var notifier notify.OperatorNotifier = notify.NopNotifier{}
	if cfg.App.NatsURL != "" {
		natsNotifier, err := notify.NewNATSNotifier(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS, operator alerts disabled: %v", err)
		} else {
			notifier = natsNotifier
		}
	}

	userRepo := implementation.NewUserRepository(db)
	docRepo := implementation.NewDocumentRepository(db)
	promptRepo := implementation.NewPromptRepository(db, sysLogger)

	ledger := quota.NewLedger(userRepo, rdb, sysLogger)

	sender := transport.NewBotClient(cfg.Bot.Token, sysLogger)

	adapter := completion.NewAdapter(
		completion.NewGeminiClient(cfg.Keys.GoogleGemini),
		notifier,
		sysLogger,
	)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	executor := worker.NewExecutor(pubSub, jobTopic, sender, sysLogger)

	handlers := flow.NewHandlers(flow.Deps{
		Users:      userRepo,
		Docs:       docRepo,
		Prompts:    promptRepo,
		Sessions:   sessions,
		Ledger:     ledger,
		Cache:      responses,
		Adapter:    adapter,
		Executor:   executor,
		Sender:     sender,
		Notifier:   notifier,
		Log:        sysLogger,
		OperatorID: cfg.Bot.OperatorID,
	})

	router := dispatch.NewRouter(sessions, sender, cfg.Bot.OperatorID, sysLogger)
	handlers.Register(router)

	sweeper := sweep.NewSweeper(userRepo, ledger, sender, sysLogger)

	return &Container{
		Router:   router,
		Executor: executor,
		Sweeper:  sweeper,
		Logger:   sysLogger,
		notifier: notifier,
	}
}

func (c *Container) Close() {
	if n, ok := c.notifier.(*notify.NATSNotifier); ok {
		n.Close()
	}
	if err := c.Logger.Sync(); err != nil {
		log.Printf("[WARN] Failed to flush logger: %v", err)
	}
}
