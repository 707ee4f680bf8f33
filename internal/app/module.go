package app

import (
	"log/slog"
	"os"

	"github.com/gatewarden/gatewarden/internal/twofactor"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.twofactor.enabled") {
		if err := twofactor.New(twofactor.Dependency{
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			OID:         a.oid,
			Bcrypt:      a.bcrypt,
			HMAC:        a.hmac,
			Vault:       a.vault,
			Recovery:    a.recovery,
			Clock:       a.clock,
			Validator:   a.validator,
			Router:      a.router,
			Totp:        a.totp,
			DBConn:      a.dbConn,
			CacheConn:   a.cacheConn,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Goroutine:   a.goroutine,
			JWT:         a.jwt,
		}); err != nil {
			slog.Error("failed to init module twofactor", "error", err)
			os.Exit(1)
		}
	}
}
