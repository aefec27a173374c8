package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/config"
	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/services"
)

// Clients are the connections built in main. Every field except Config
// and Logger may be nil when its backend is not configured.
type Clients struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	DB         *gorm.DB
	Supabase   *supabase.Client
	Mongo      *mongo.Client
	Redis      *redis.Client
	Cloudinary *cloudinary.Cloudinary
	JWKS       jwt.Keyfunc
}

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Redis         *redis.Client
	Authenticator auth.Authenticator
	HealthChecks  map[string]func(ctx context.Context) error

	AuthService     *services.AuthService
	PropertyService *services.PropertyService
	SearchService   *services.SearchService
	UserService     *services.UserService
	SavedService    *services.SavedService
	WaitlistService *services.WaitlistService

	Views models.PropertyViewsRepo
}

type repositories struct {
	properties models.PropertyRepo
	users      models.UserRepo
	sessions   models.SessionRepo
	waitlist   models.WaitlistRepo
	saved      models.SavedRepo
	views      models.PropertyViewsRepo
}

// selectRepositories picks implementations for STORAGE_BACKEND. Listings
// may live behind PostgREST, but accounts, sessions and the waitlist always
// need a direct database connection outside the memory backend.
func selectRepositories(cl Clients) (*repositories, error) {
	cfg := cl.Config
	r := &repositories{}

	switch cfg.Storage {
	case config.BackendMemory:
		mem := models.NewMemoryRepo()
		r.properties, r.users, r.sessions, r.waitlist, r.saved = mem, mem, mem, mem, mem
	case config.BackendPostgres, config.BackendSupabase:
		if cl.DB == nil {
			return nil, fmt.Errorf("storage backend %q requires a database connection", cfg.Storage)
		}
		g := models.GormNewRepo(cl.DB)
		r.properties, r.users, r.sessions, r.waitlist, r.saved = g, g, g, g, g
		if cfg.Storage == config.BackendSupabase {
			if cl.Supabase == nil {
				return nil, fmt.Errorf("storage backend %q requires SUPABASE_URL and a key", cfg.Storage)
			}
			r.properties = models.SupabaseNewRepo(cl.Supabase)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	if cl.Mongo != nil {
		mdb := models.MongodbNewRepo(cl.Mongo, cfg.MongoDBDatabase)
		r.saved = mdb
		r.views = mdb
	}
	return r, nil
}

// NewContainer creates a new dependency injection container
func NewContainer(cl Clients) (*Container, error) {
	repos, err := selectRepositories(cl)
	if err != nil {
		return nil, err
	}
	cfg, logger := cl.Config, cl.Logger

	bearer := auth.NewBearerStrategy([]byte(cfg.JWTSecret), repos.users)
	strategies := []auth.Authenticator{bearer}
	var supa *auth.SupabaseStrategy
	if cl.JWKS != nil {
		supa = auth.NewSupabaseStrategy(cl.JWKS, repos.users)
		bearer.ForwardForeign = true
		strategies = append(strategies, supa)
	}
	strategies = append(strategies, auth.NewSessionStrategy(repos.sessions, repos.users))

	var managed services.ManagedAuth
	if cl.Supabase != nil {
		managed = services.NewGotrueAuth(cl.Supabase.Auth)
	}
	uploader := helpers.NewCloudinaryUploader(cl.Cloudinary)

	c := &Container{
		Config:        cfg,
		Logger:        logger,
		Metrics:       cl.Metrics,
		Redis:         cl.Redis,
		Authenticator: auth.NewChain(strategies...),
		Views:         repos.views,
		AuthService: services.NewAuthService(repos.users, repos.sessions, supa, managed, services.AuthConfig{
			JWTSecret:   []byte(cfg.JWTSecret),
			JWTTTL:      cfg.JWTExpiresIn,
			SessionTTL:  cfg.SessionTTL,
			SupabaseURL: cfg.SupabaseURL,
		}, cl.Metrics, logger),
		PropertyService: services.NewPropertyService(repos.properties, repos.views, uploader, cl.Redis, cl.Metrics, logger),
		SearchService:   services.NewSearchService(repos.properties, repos.users, cl.Metrics, logger),
		UserService:     services.NewUserService(repos.users, uploader, logger),
		SavedService:    services.NewSavedService(repos.saved, repos.properties, logger),
		WaitlistService: services.NewWaitlistService(repos.waitlist, logger),
		HealthChecks:    healthChecks(cl),
	}
	return c, nil
}

func healthChecks(cl Clients) map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if cl.DB != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := cl.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if cl.Mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error {
			return cl.Mongo.Ping(ctx, nil)
		}
	}
	if cl.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cl.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
