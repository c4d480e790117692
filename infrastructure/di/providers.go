package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"treeviz-backend/application/ports"
	"treeviz-backend/application/services"
	"treeviz-backend/infrastructure/config"
	"treeviz-backend/infrastructure/llm"
	dynamorepo "treeviz-backend/infrastructure/persistence/dynamodb"
	"treeviz-backend/infrastructure/persistence/memory"
	"treeviz-backend/pkg/auth"
	"treeviz-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	SessionRepo  ports.TreeSessionRepository
	MessageRepo  ports.ChatMessageRepository
	LLMClient    ports.LLMClient
	Metrics      *observability.Metrics
	ChatService  *services.ChatService
	TreeService  *services.TreeSessionService
	JWTValidator *auth.JWTValidator
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics publisher. Publishing stays disabled
// unless ENABLE_METRICS is set.
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics("TreeViz", nil, logger)
	}
	return observability.NewMetrics("TreeViz", client, logger)
}

// ProvideSessionRepository creates a tree session repository, in-memory or
// DynamoDB depending on configuration
func ProvideSessionRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.TreeSessionRepository {
	if cfg.UseMemoryStore {
		logger.Info("Using in-memory tree session store")
		return memory.NewTreeSessionRepository()
	}
	return dynamorepo.NewTreeSessionRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideMessageRepository creates a chat message repository, in-memory or
// DynamoDB depending on configuration
func ProvideMessageRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.ChatMessageRepository {
	if cfg.UseMemoryStore {
		logger.Info("Using in-memory chat message store")
		return memory.NewChatMessageRepository()
	}
	return dynamorepo.NewChatMessageRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLLMClient creates the Gemini client behind a circuit breaker. A
// missing API key yields a nil client; the chat service then answers with
// its fallback turns instead of failing startup.
func ProvideLLMClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.LLMClient, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, assistant will run in fallback mode")
		return nil, nil
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewBreakerClient(gemini, logger), nil
}

// ProvideJWTValidator creates the token validator. Without a secret the
// validator is nil and the auth middleware falls back to a development
// identity; production config validation rejects the missing secret first.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, authentication runs in development mode")
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideChatService creates the chat orchestration service
func ProvideChatService(
	cfg *config.Config,
	sessionRepo ports.TreeSessionRepository,
	messageRepo ports.ChatMessageRepository,
	llmClient ports.LLMClient,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.ChatService {
	return services.NewChatService(
		sessionRepo,
		messageRepo,
		llmClient,
		cfg.GeminiModel,
		cfg.LLMTimeout,
		metrics,
		logger,
	)
}

// ProvideTreeSessionService creates the tree session lifecycle service
func ProvideTreeSessionService(
	sessionRepo ports.TreeSessionRepository,
	messageRepo ports.ChatMessageRepository,
	logger *zap.Logger,
) *services.TreeSessionService {
	return services.NewTreeSessionService(sessionRepo, messageRepo, logger)
}
