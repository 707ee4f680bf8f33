package app

import (
	"context"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/pkg/clock"
	"github.com/gatewarden/gatewarden/internal/pkg/config"
	"github.com/gatewarden/gatewarden/internal/pkg/goroutine"
	"github.com/gatewarden/gatewarden/internal/pkg/hash"
	"github.com/gatewarden/gatewarden/internal/pkg/idempotency"
	"github.com/gatewarden/gatewarden/internal/pkg/instrument"
	"github.com/gatewarden/gatewarden/internal/pkg/jwt"
	"github.com/gatewarden/gatewarden/internal/pkg/messaging"
	"github.com/gatewarden/gatewarden/internal/pkg/otp"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/pkg/router"
	"github.com/gatewarden/gatewarden/internal/pkg/uid"
	"github.com/gatewarden/gatewarden/internal/pkg/validator"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID
	totp      otp.OTP
	jwt       jwt.JWT
	vault     vault.Vault
	recovery  recovery.Generator

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	messaging messaging.Messaging

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
