package config

import "time"

type Config struct {
	Web      Web
	Cors     Cors
	DB       DB
	Auth     Auth
	Oauth    Oauth
	Payment  Payment
	Stripe   Stripe
	Paypal   Paypal
	Checkout Checkout
	Kafka    Kafka
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:courses"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

// Payment selects the gateway that backs checkout sessions.
type Payment struct {
	Provider string `conf:"default:stripe"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	URL           string
	CancelURL     string `conf:"default:http://localhost:3000/pricing"`
}

type Paypal struct {
	ClientID  string
	Secret    string `conf:"mask"`
	URL       string `conf:"default:https://api-m.sandbox.paypal.com"`
	CancelURL string `conf:"default:http://localhost:3000/pricing"`
}

type Checkout struct {
	BaseURL       string        `conf:"default:http://localhost:3000"`
	Currency      string        `conf:"default:usd"`
	AbandonAfter  time.Duration `conf:"default:24h"`
	RetryAttempts uint          `conf:"default:4"`
	RetryDelay    time.Duration `conf:"default:200ms"`
	RetryMaxDelay time.Duration `conf:"default:2s"`
	RateBurst     int           `conf:"default:5"`
	RateEvery     time.Duration `conf:"default:2s"`
	RateExpiry    time.Duration `conf:"default:10m"`
}

type Kafka struct {
	Brokers []string
	Topic   string `conf:"default:course-enrollments"`
}
