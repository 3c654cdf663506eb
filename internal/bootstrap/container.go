package bootstrap

import (
	"context"
	"crypto/rand"
	"fmt"

	"echo-assistant-be/internal/config"
	"echo-assistant-be/internal/controller"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/mailer"
	"echo-assistant-be/internal/repository/contract"
	"echo-assistant-be/internal/repository/memory"
	redisRepo "echo-assistant-be/internal/repository/redis"
	"echo-assistant-be/internal/repository/unitofwork"
	"echo-assistant-be/internal/service"
	"echo-assistant-be/internal/websocket"
	"echo-assistant-be/pkg/discovery"
	"echo-assistant-be/pkg/embedding"
	"echo-assistant-be/pkg/embedding/jina"
	"echo-assistant-be/pkg/events"
	"echo-assistant-be/pkg/extractor"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/hr"
	"echo-assistant-be/pkg/intent"
	"echo-assistant-be/pkg/llm/factory"
	"echo-assistant-be/pkg/ranking"
	"echo-assistant-be/pkg/selection"
	"echo-assistant-be/pkg/vectorindex"

	pktNats "echo-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
	"gorm.io/gorm"
)

type Container struct {
	Logger    logger.ILogger
	JwtSecret []byte

	// Controllers
	AuthController       controller.IAuthController
	ChatController       controller.IChatController
	HRDocumentController controller.IHRDocumentController
	AdminController      controller.IAdminController

	// Background services, started by main
	ConsumerService  service.IConsumerService
	PublisherService service.IPublisherService

	WebSocketHub *websocket.Hub

	closers []func()
}

// Close releases every connection the container opened, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := logger.NewIsolatedLogger("logs/pipeline.log")
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	uowFactory := unitofwork.NewRepositoryFactory(db)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	secret, err := jwtSecret(cfg.App.JwtSecret, sysLogger)
	if err != nil {
		return nil, err
	}
	c.JwtSecret = secret

	// 2. Event bus
	var publisher events.Publisher = events.NoopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "NATS publisher unavailable, events are dropped", map[string]interface{}{"error": err.Error()})
	} else {
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Redis backs the session store and the websocket fan-out when reachable
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var sessions contract.SessionRepository
	if cfg.Session.Store == "redis" && rdb != nil {
		sessions = redisRepo.NewSessionRepository(rdb, cfg.Session.TTL)
		sysLogger.Info("Bootstrap", "Using Redis session store", nil)
	} else {
		sessions = memory.NewSessionRepository(cfg.Session.TTL)
		sysLogger.Info("Bootstrap", "Using in-memory session store", nil)
	}

	// 4. AI providers and indexes
	embedder, err := NewEmbeddingProvider(cfg.Ai)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("Bootstrap", "Embedding provider ready", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})

	llmProvider, err := factory.NewLLMProvider(cfg.Ai)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	// Conversation indexes live as long as the session they serve. The HR
	// index is rebuilt in place and never expires.
	var fileIndex, hrIndex vectorindex.Index
	switch cfg.Search.VectorBackend {
	case "postgres":
		pg := vectorindex.NewPostgresIndex(db)
		fileIndex, hrIndex = pg, pg
	default:
		fileIndex = vectorindex.NewExpiringMemoryIndex(cfg.Session.TTL)
		hrIndex = vectorindex.NewMemoryIndex()
	}

	// 5. Search pipeline
	graphClient := graph.NewClient(cfg.Graph.BaseURL, cfg.Graph.MaxRetries, sysLogger)
	textExtractor := extractor.New(
		extractor.NewTesseractOCR(cfg.Search.TesseractLanguage),
		extractor.PDFTextLayer{},
		extractor.FitzRasterizer{},
		pipelineLogger,
	)
	discoverer := discovery.NewService(
		graphClient,
		textExtractor,
		ranking.NewRanker(embedder, fileIndex),
		discovery.Options{
			Timeout:            cfg.Search.PipelineTimeout,
			ExtractConcurrency: cfg.Search.ExtractConcurrency,
		},
		pipelineLogger,
	)

	knowledgeBase := hr.NewKnowledgeBase(cfg.HR.KnowledgeBaseDir, hr.NewLoader(extractor.PDFTextLayer{}, sysLogger), embedder, hrIndex, sysLogger)
	oracle := hr.NewOracle(llmProvider, knowledgeBase, cfg.Ai.HRModel, sysLogger)

	var notifier *mailer.Notifier
	if cfg.Search.MailTransport == mailer.TransportSMTP {
		notifier = mailer.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password, cfg.SMTP.SenderName, publisher, sysLogger)
	} else {
		notifier = mailer.NewGraphNotifier(graphClient, publisher, sysLogger)
	}

	machine := selection.NewMachine(selection.Deps{
		Discoverer: discoverer,
		Access:     graphClient,
		Notifier:   notifier,
		HR:         oracle,
		Classifier: intent.NewClassifier(llmProvider, cfg.Ai.LLMModel, sysLogger),
		General:    intent.NewResponder(llmProvider, cfg.Ai.LLMModel, sysLogger),
	}, selection.Config{
		PageSize:           cfg.Search.PageSize,
		PerformAccessCheck: cfg.Search.PerformAccessCheck,
		CandidateTTL:       cfg.Session.TTL,
	}, sysLogger)

	// 6. Services
	authService := service.NewAuthService(oauthConfig(cfg.Graph), uowFactory, service.AuthOptions{
		AllowedEmailDomain: cfg.App.AllowedEmailDomain,
		JwtSecret:          secret,
		AppTokenTTL:        cfg.Session.TTL,
	}, sysLogger)
	chatService := service.NewChatService(uowFactory, sessions, authService, machine, fileIndex, publisher, sysLogger)

	c.PublisherService = service.NewPublisherService(cfg.HR.ReindexTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.HR.ReindexTopic, knowledgeBase, publisher, sysLogger)
	hrService := service.NewHRDocumentService(cfg.HR.KnowledgeBaseDir, cfg.HR.AdminEmails, uowFactory, c.PublisherService, sysLogger)

	// 7. Live notices
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	go c.WebSocketHub.Run(ctx)

	if natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn("Bootstrap", "NATS subscriber unavailable, live notices disabled", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsSub.Close)
		notices := service.NewDeliveryNoticeService(c.WebSocketHub, wsLogger)
		for _, eventType := range []string{events.TypeFilesDelivered, events.TypeSearchCompleted} {
			if err := natsSub.Subscribe(ctx, eventType, "echo-ws-"+eventType, notices.Handle); err != nil {
				sysLogger.Warn("Bootstrap", "Failed to subscribe", map[string]interface{}{"event": eventType, "error": err.Error()})
			}
		}
	}

	// 8. Controllers
	c.AuthController = controller.NewAuthController(authService, chatService, hrService, cfg.App.ClientURL, sysLogger)
	c.ChatController = controller.NewChatController(chatService, c.WebSocketHub, sysLogger)
	c.HRDocumentController = controller.NewHRDocumentController(hrService)
	c.AdminController = controller.NewAdminController(hrService, sysLogger)

	return c, nil
}

// NewEmbeddingProvider builds the configured embedding backend.
func NewEmbeddingProvider(cfg config.AIConfig) (embedding.EmbeddingProvider, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	case "jina":
		if cfg.JinaKey == "" {
			return nil, fmt.Errorf("JINA_API_KEY is required for the jina embedding provider")
		}
		return jina.NewJinaProvider(cfg.JinaKey), nil
	case "openai", "":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		return embedding.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// oauthConfig always requests the OpenID scopes the callback reads the
// user's identity from.
func oauthConfig(cfg config.GraphConfig) *oauth2.Config {
	scopes := []string{"openid", "profile", "email"}
	seen := map[string]bool{"openid": true, "profile": true, "email": true}
	for _, s := range cfg.Scopes {
		if !seen[s] {
			seen[s] = true
			scopes = append(scopes, s)
		}
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     microsoft.AzureADEndpoint(cfg.TenantID),
	}
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Redis unreachable, running single-instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// jwtSecret falls back to a random per-process secret, which signs every
// user out on restart.
func jwtSecret(configured string, log logger.ILogger) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	log.Warn("Bootstrap", "JWT_SECRET not set, using a random secret for this process", nil)
	return secret, nil
}
