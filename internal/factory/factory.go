package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voting-service/internal/bucketing"
	"voting-service/internal/client"
	"voting-service/internal/config"
	"voting-service/internal/encryption"
	"voting-service/internal/hashing"
	"voting-service/internal/ratelimit"
	redisrepo "voting-service/internal/repository/redis"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/service"
	"voting-service/internal/session"
	"voting-service/internal/tls"
	"voting-service/internal/util"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	kmsClient        *kms.Client

	// Managers
	hasher           *hashing.Hasher
	tokenCipher      *encryption.TokenCipher
	bucketingManager *bucketing.BucketingManager

	// Rate limiting
	memoryStore *ratelimit.MemoryStore
	limiter     *ratelimit.Limiter

	// Repositories
	voterRepository    scylla.VoterRepository
	electionRepository scylla.ElectionRepository
	voteRepository     scylla.VoteRepository
	sessionRepository  scylla.SessionRepository
	sessionCache       *redisrepo.SessionCache

	// Domain managers
	eventRecorder  *security.EventRecorder
	sessionManager *session.Manager
	suspicion      *security.SuspicionEvaluator

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	factory.initializeDomain()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka is fan-out only; the service runs without it.
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch is fan-out only as well.
	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch initialization failed - proceeding without search index", util.ErrorField(err))
	} else {
		f.esClient = esClient
		util.Info("Elasticsearch client initialized and healthy")
	}

	// ClickHouse
	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = chClient
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	// KMS
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("aws config: %w", err))
		} else {
			f.kmsClient = kms.NewFromConfig(awsCfg)
			util.Info("KMS client initialized")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, token encryption, bucketing and
// rate limiting
func (f *Factory) initializeManagers() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f.hasher = hashing.NewHasher(f.config)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)

	cipher, err := encryption.NewTokenCipher(ctx, f.config, f.kmsClient)
	if err != nil {
		return fmt.Errorf("token cipher: %w", err)
	}
	f.tokenCipher = cipher

	if f.redisClient != nil {
		f.limiter = ratelimit.NewLimiter(redisrepo.NewRateLimitStore(f.redisClient))
		util.Info("Rate limiter using Redis store")
	} else {
		f.memoryStore = ratelimit.NewMemoryStore()
		f.memoryStore.StartCleanup(f.config.RateLimit.CleanupInterval)
		f.limiter = ratelimit.NewLimiter(f.memoryStore)
		util.Warn("Rate limiter using in-process store; limits are per-instance")
	}

	if f.config.IsProduction() {
		f.hasher.StartPepperRotation()
	}

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("token_cipher_initialized", f.tokenCipher != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
	return nil
}

// initializeDomain wires repositories, the event recorder, the session
// manager and the suspicion evaluator
func (f *Factory) initializeDomain() {
	f.voterRepository = scylla.NewVoterRepository(f.scyllaClient, f.bucketingManager)
	f.electionRepository = scylla.NewElectionRepository(f.scyllaClient)
	f.voteRepository = scylla.NewVoteRepository(f.scyllaClient)
	f.sessionRepository = scylla.NewSessionRepository(f.scyllaClient)

	if f.redisClient != nil {
		f.sessionCache = redisrepo.NewSessionCache(f.redisClient)
	}

	f.eventRecorder = security.NewEventRecorder(f.clickhouseClient, f.kafkaProducer,
		f.esClient, f.bucketingManager)

	var cache session.Cache
	if f.sessionCache != nil {
		cache = f.sessionCache
	}
	f.sessionManager = session.NewManager(f.sessionRepository, cache, f.tokenCipher,
		f.eventRecorder, f.config.Session)

	f.suspicion = security.NewSuspicionEvaluator(f.clickhouseClient, f.voterRepository,
		f.sessionManager, f.eventRecorder, f.config.Security)
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.voterRepository,
			f.electionRepository,
			f.voteRepository,
			f.sessionManager,
			f.hasher,
			f.limiter,
			f.eventRecorder,
			f.suspicion,
		)
	}
	return f.serviceFactory
}

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	} else {
		healthErrors["clickhouse"] = fmt.Errorf("clickhouse client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	// Fan-out targets are optional.
	delete(healthErrors, "kafka")
	delete(healthErrors, "elasticsearch")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.memoryStore != nil {
			f.memoryStore.Stop()
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Info("Factory shutdown complete")
		util.Sync()
	})
	return nil
}
