package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/course-marketplace/api"
	"github.com/irsalhamdi/course-marketplace/api/background"
	"github.com/irsalhamdi/course-marketplace/config"
	"github.com/irsalhamdi/course-marketplace/core/auth"
	"github.com/irsalhamdi/course-marketplace/core/checkout"
	"github.com/irsalhamdi/course-marketplace/core/course"
	"github.com/irsalhamdi/course-marketplace/database"
	"github.com/irsalhamdi/course-marketplace/events"
	"github.com/irsalhamdi/course-marketplace/metrics"
	"github.com/irsalhamdi/course-marketplace/payment"
	"github.com/irsalhamdi/course-marketplace/rate"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "COURSES"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	catalog, err := course.NewCatalog(course.Courses)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}

	metrics.Register()

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime

	bg := background.New(logger)

	gateway, strp, err := makeGateway(cfg)
	if err != nil {
		return err
	}
	logger.Infof("checkout sessions backed by %s", gateway.Name())

	var pub events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer pub.Close()

	cancelURL := cfg.Stripe.CancelURL
	if gateway.Name() == "paypal" {
		cancelURL = cfg.Paypal.CancelURL
	}

	svc := checkout.NewService(checkout.Deps{
		Log:     logger,
		Catalog: catalog,
		Gateway: gateway,
		Store:   checkout.NewStore(db),
		Events:  pub,
		Runner:  bg,
	}, checkout.Config{
		BaseURL:       cfg.Checkout.BaseURL,
		CancelURL:     cancelURL,
		Currency:      cfg.Checkout.Currency,
		AbandonAfter:  cfg.Checkout.AbandonAfter,
		RetryAttempts: cfg.Checkout.RetryAttempts,
		RetryDelay:    cfg.Checkout.RetryDelay,
		RetryMaxDelay: cfg.Checkout.RetryMaxDelay,
	})

	limiter := rate.NewLimiter(cfg.Checkout.RateBurst, cfg.Checkout.RateExpiry, rate.Every(cfg.Checkout.RateEvery))
	defer limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Catalog:          catalog,
		Checkout:         svc,
		Stripe:           strp,
		CheckoutLimiter:  limiter,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

// makeGateway builds the configured payment gateway. The Stripe gateway is
// also returned on its own since it serves the webhook.
func makeGateway(cfg config.Config) (payment.Gateway, *payment.Stripe, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		var backends *stripe.Backends
		if cfg.Stripe.URL != "" {
			backends = &stripe.Backends{
				API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
					URL: stripe.String(cfg.Stripe.URL),
				}),
			}
		}

		strp := &stripecl.API{}
		strp.Init(cfg.Stripe.APISecret, backends)

		gw := payment.NewStripe(strp, cfg.Stripe.WebhookSecret)
		return gw, gw, nil

	case "paypal":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
		defer cancel()

		gw, err := payment.NewPayPal(ctx, cfg.Paypal.ClientID, cfg.Paypal.Secret, cfg.Paypal.URL)
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil
	}

	return nil, nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}
