// Package twofactor wires the second-factor authentication module: password
// login with an optional TOTP or recovery code step, enrollment with
// confirm-before-activate, and recovery code management.
package twofactor

import (
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
	"github.com/gatewarden/gatewarden/internal/pkg/throttle"
	"github.com/gatewarden/gatewarden/internal/pkg/uid"
	"github.com/gatewarden/gatewarden/internal/pkg/validator"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/inbound"
	"github.com/gatewarden/gatewarden/internal/twofactor/outbound/cache"
	"github.com/gatewarden/gatewarden/internal/twofactor/outbound/db"
	"github.com/gatewarden/gatewarden/internal/twofactor/outbound/mq"
	"github.com/gatewarden/gatewarden/internal/twofactor/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Dependency struct {
	DBConn      *pgxpool.Pool              `validate:"required"`
	CacheConn   *redis.Client              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	OID         uid.StringID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Bcrypt      hash.Hash                  `validate:"required"`
	Vault       vault.Vault                `validate:"required"`
	Recovery    recovery.Generator         `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Totp        otp.OTP                    `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	JWT         jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoChallenge := cache.NewCache(dep.CacheConn, dep.Clock, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Idempotency, dep.Instrument)

	limiter := throttle.NewLimiter(
		throttle.NewRedisStore(dep.CacheConn),
		dep.Config.GetInt("modules.twofactor.verify_attempt_limit"),
		dep.Config.GetMinute("modules.twofactor.verify_window_minutes"),
	)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoChallenge: repoChallenge,
		RepoMessaging: repoMsg,
		Limiter:       limiter,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		Vault:         dep.Vault,
		Recovery:      dep.Recovery,
		UID:           dep.UID,
		OID:           dep.OID,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
