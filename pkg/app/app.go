// Package app assembles the storefront: infrastructure, domain services,
// event listeners, queue jobs, the export scheduler and the HTTP kernel.
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close()
//	return a.Serve(ctx)
//
// Tests build one from explicit infrastructure with New.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/jobs"
	"github.com/artisanmart/storefront/app/listeners"
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/app/routes"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/internal/kernel"
	"github.com/artisanmart/storefront/pkg/cache"
	"github.com/artisanmart/storefront/pkg/event"
	"github.com/artisanmart/storefront/pkg/graphql"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/notification"
	"github.com/artisanmart/storefront/pkg/queue"
	"github.com/artisanmart/storefront/pkg/router"
	"github.com/artisanmart/storefront/pkg/schedule"
	"github.com/artisanmart/storefront/pkg/storage"
	"github.com/artisanmart/storefront/pkg/workerpool"
	"github.com/artisanmart/storefront/pkg/ws"
)

const (
	cachePrefix = "storefront:"
	queuePrefix = "storefront:queue"
)

// Infra is what the application is built on. DB and Mailer are required;
// without Redis the catalog is uncached and the queue lives in memory.
type Infra struct {
	DB     *gorm.DB
	Redis  redis.UniversalClient
	Mailer mail.Mailer
	Disks  *storage.Manager
}

// Application holds every long-lived component.
type Application struct {
	DB        *gorm.DB
	Redis     redis.UniversalClient
	Cache     *cache.Store
	Queue     *queue.Manager
	Pool      *workerpool.Pool
	Bus       *event.Bus
	Sessions  *ws.Registry
	Scheduler *schedule.Scheduler
	Disks     *storage.Manager

	// Mailer queues mail; Transport sends it. Export and restock mail
	// use Transport directly.
	Mailer    mail.Mailer
	Transport mail.Mailer

	Services routes.Services
	Runner   *services.ExportRunner

	kernel  *kernel.HTTPKernel
	onClose []func()

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// New wires the application on infra. Nothing runs until Start.
func New(infra Infra) (*Application, error) {
	if infra.DB == nil {
		return nil, fmt.Errorf("app: database is required")
	}
	if infra.Mailer == nil {
		infra.Mailer = mail.LogMailer{}
	}
	if infra.Disks == nil {
		disks, err := storage.FromEnv(context.Background())
		if err != nil {
			return nil, fmt.Errorf("app: storage: %w", err)
		}
		infra.Disks = disks
	}

	a := &Application{
		DB:        infra.DB,
		Redis:     infra.Redis,
		Cache:     cache.New(infra.Redis, cachePrefix),
		Sessions:  ws.NewRegistry(),
		Scheduler: schedule.New(),
		Disks:     infra.Disks,
		Transport: infra.Mailer,
	}

	a.Pool = workerpool.New(config.WorkerPoolSize(),
		workerpool.WithQueueSize(config.WorkerPoolQueue()),
		workerpool.WithPanicHandler(func(r any) { logger.Error("worker pool: task panicked", "panic", r) }),
	)
	a.Bus = event.NewBus(a.Pool)
	a.Queue = queue.NewManager(a.queueDriver(), queue.WithFailedJobStore(infra.DB))
	a.Mailer = jobs.QueuedMailer{Queue: a.Queue}

	a.buildServices()

	jobs.Register(a.Queue, a.Transport, a.Runner)
	listeners.Register(a.Bus, listeners.Deps{
		Users:    repositories.NewUserRepository(a.DB),
		Mailer:   a.Mailer,
		Sessions: a.Sessions,
		LowStock: a.Services.LowStock,
		Restock:  a.Services.Restock,
	})

	schema, err := graphql.NewSchema(routes.CatalogQuery(a.Services.Catalog))
	if err != nil {
		return nil, fmt.Errorf("app: graphql schema: %w", err)
	}
	ws.AllowOrigins(config.CORSOrigins()...)
	a.kernel = kernel.NewHTTPKernel(kernel.Options{
		CORSOrigins: config.CORSOrigins(),
		RateLimit:   config.RateLimitPerMinute(),
		Health:      a.health,
		GraphQL:     &schema,
		Routes: []func(*router.Router){
			func(r *router.Router) { routes.RegisterAPI(r, a.Services) },
		},
	})
	return a, nil
}

func (a *Application) queueDriver() queue.Driver {
	if config.QueueDriver() == "redis" {
		if a.Redis != nil {
			return queue.NewRedisDriver(a.Redis, queuePrefix)
		}
		logger.Warn("app: QUEUE_DRIVER=redis but redis is unavailable, using the in-memory queue")
	}
	return queue.NewMemoryDriver()
}

func (a *Application) buildServices() {
	db := a.DB
	catalog := services.NewCatalogService(db, a.Cache, config.CacheTTL(), a.Bus)

	a.Runner = services.NewExportRunner(db, catalog, map[string]services.Deliverer{
		// Export mail goes out inline so a failed send fails the run and
		// triggers its retry policy.
		models.DestinationEmail:   services.EmailDeliverer{Mailer: a.Transport},
		models.DestinationStorage: services.StorageDeliverer{Disk: a.Disks.Default()},
	})
	a.Runner.SetRetryScheduler(jobs.ExportRetries(a.Queue))

	a.Services = routes.Services{
		Auth:     services.NewAuthService(db),
		Catalog:  catalog,
		Carts:    services.NewCartService(db),
		Wishlist: services.NewWishlistService(db),
		Checkout: services.NewCheckoutService(db, a.Bus, services.CheckoutConfig{
			PaymentSecret:   config.PaymentSecret(),
			AmountTolerance: decimal.NewFromFloat(config.AmountTolerance()),
		}),
		Orders:  services.NewOrderService(db, a.Bus),
		// Restock mail is sent inline too: a subscription is only marked
		// notified once its mail was actually delivered.
		Restock: services.NewRestockService(db, a.Transport),
		LowStock: services.NewLowStockService(db,
			notification.New(a.Mailer, config.SlackWebhook()),
			config.AdminEmail(), config.LowStockThreshold()),
		Contact:  services.NewContactService(db, jobs.ForwardContact(a.Queue, config.ContactInbox())),
		Exports:  services.NewExportService(db, a.Runner),
		Sessions: a.Sessions,
	}
}

// Handler is the root HTTP handler.
func (a *Application) Handler() http.Handler { return a.kernel.Handler() }

// Routes lists the mounted routes.
func (a *Application) Routes() []router.Route { return a.kernel.Router().Routes() }
