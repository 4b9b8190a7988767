package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"courtbooking/internal/application/services"
	"courtbooking/internal/application/usecases/cancellation"
	"courtbooking/internal/application/usecases/completion"
	"courtbooking/internal/application/usecases/reconciliation"
	"courtbooking/internal/application/usecases/reservation"
	"courtbooking/internal/config"
	"courtbooking/internal/infrastructure/event_publisher"
	"courtbooking/internal/interfaces/http"
	msg "courtbooking/internal/interfaces/message"
	"courtbooking/internal/interfaces/message/commands"
	"courtbooking/internal/interfaces/message/events"
	"courtbooking/internal/observability"
	"courtbooking/internal/outbox"
	"courtbooking/internal/repository"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger             zerolog.Logger
	db                 *sqlx.DB
	router             *message.Router
	forwarder          *outbox.Forwarder
	srv                *http.Server
	completion         *completion.Usecase
	completionInterval time.Duration
}

func NewApp(
	cfg config.App,
	watermillLogger watermill.LoggerAdapter,
	db *sqlx.DB,
	redisClient *redis.Client,
	gateway PaymentGateway,
) (*App, error) {
	getter := trmsqlx.DefaultCtxGetter
	trManager := trmanager.Must(trmsqlx.NewDefaultFactory(db))

	bookingsRepo := repository.NewBookingsRepo(db, getter)
	paymentsRepo := repository.NewPaymentsRepo(db, getter)
	courtsRepo := repository.NewCourtsRepo(db, getter)
	eventsRepo := repository.NewEventsRepo(db)

	redisPublisher, err := event_publisher.NewRedisPublisher(watermillLogger, redisClient)
	if err != nil {
		return nil, err
	}
	var decoratedPublisher message.Publisher = observability.PublisherWithTracing{Publisher: redisPublisher}
	decoratedPublisher = event_publisher.CorrelationPublisherDecorator{Publisher: decoratedPublisher}

	eventBus, err := events.NewEventBus(decoratedPublisher, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	commandBus, err := commands.NewCommandBus(decoratedPublisher, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create command bus: %w", err)
	}

	router, err := msg.NewRouter(
		watermillLogger,
		redisClient,
		redisPublisher,
		events.NewHandler(commandBus),
		commands.NewHandler(eventBus, gateway),
		eventsRepo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	forwarder, err := outbox.NewForwarder(db, redisPublisher, watermillLogger, cfg.OutboxPollInterval)
	if err != nil {
		return nil, err
	}

	txEventBus := outbox.NewTxEventBus(getter, watermillLogger)

	srv := http.NewServer(
		commonHTTP.NewEcho(),
		cfg.HTTPAddr,
		http.Deps{
			Reservation: reservation.NewUsecase(
				bookingsRepo, paymentsRepo, courtsRepo, gateway, txEventBus, trManager, cfg.GatewayTimeout,
			),
			Webhooks: reconciliation.NewUsecase(
				bookingsRepo, paymentsRepo, gateway, txEventBus, trManager, cfg.GatewayTimeout,
			),
			Cancellation: cancellation.NewUsecase(bookingsRepo, paymentsRepo, txEventBus, trManager, time.Now),
			Bookings:     services.NewBookingsService(bookingsRepo, courtsRepo, paymentsRepo),
			Courts:       services.NewCourtsService(courtsRepo),
			Auth:         http.NewAuthenticator(cfg.JWTSecret),
			RateLimiter:  http.NewRateLimiter(cfg.ReserveRatePerMinute),
			HealthCheck: func(ctx context.Context) error {
				if !router.IsRunning() {
					return errors.New("router is not running")
				}
				return db.PingContext(ctx)
			},
		},
	)

	return &App{
		logger:             zerolog.New(os.Stdout).With().Timestamp().Logger(),
		db:                 db,
		router:             router,
		forwarder:          forwarder,
		srv:                srv,
		completion:         completion.NewUsecase(bookingsRepo, txEventBus, trManager),
		completionInterval: cfg.CompletionInterval,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := repository.InitializeDBSchema(a.db)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Msg("starting outbox forwarder")
		return a.forwarder.Run(ctx)
	})

	g.Go(func() error {
		a.logger.Info().Msg("starting router")
		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		<-a.forwarder.Running()
		a.logger.Info().Msg("router and outbox forwarder are running")

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		a.logger.Info().Dur("interval", a.completionInterval).Msg("starting completion sweep")
		return a.completion.Run(ctx, a.completionInterval)
	})

	g.Go(func() error {
		// Shut down
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := a.srv.Stop(shutdownCtx)
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	// Will block until all goroutines finish
	return g.Wait()
}
