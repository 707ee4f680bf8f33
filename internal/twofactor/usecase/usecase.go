package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gatewarden/gatewarden/internal/pkg/clock"
	"github.com/gatewarden/gatewarden/internal/pkg/config"
	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/goroutine"
	"github.com/gatewarden/gatewarden/internal/pkg/hash"
	"github.com/gatewarden/gatewarden/internal/pkg/instrument"
	"github.com/gatewarden/gatewarden/internal/pkg/jwt"
	"github.com/gatewarden/gatewarden/internal/pkg/otp"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/pkg/throttle"
	"github.com/gatewarden/gatewarden/internal/pkg/uid"
	"github.com/gatewarden/gatewarden/internal/pkg/validator"
	"github.com/gatewarden/gatewarden/internal/pkg/valueobject"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
	"go.opentelemetry.io/otel/trace"
)

// TwoFactorEvent describes a change to a user's two-factor credential.
type TwoFactorEvent struct {
	UserID int64
	Email  string
	At     time.Time
}

// VaultIntegrityEvent is published when sealed credential material fails to
// open: wrong key, cross-user copy, or tampering.
type VaultIntegrityEvent struct {
	UserID  int64
	Purpose string
	At      time.Time
}

type repoMessaging interface {
	PublishTwoFactorEnabled(ctx context.Context, ev TwoFactorEvent) error
	PublishTwoFactorDisabled(ctx context.Context, ev TwoFactorEvent) error
	PublishVaultIntegrity(ctx context.Context, ev VaultIntegrityEvent) error
}

type repoDB interface {
	GetUserLoginInfo(ctx context.Context, email string) (*entity.UserLoginInfo, error)
	GetUserCredentialInfo(ctx context.Context, id int64) (*entity.UserCredentialInfo, error)
	GetTwoFactorCredential(ctx context.Context, userID int64) (*entity.TwoFactorCredential, error)

	EnableTwoFactor(ctx context.Context, userID int64, sealedSeed, sealedCodes []byte) error
	DisableTwoFactor(ctx context.Context, userID int64) error
	ReplaceRecoveryCodes(ctx context.Context, userID int64, sealedCodes []byte) error
	SwapRecoveryCodes(ctx context.Context, userID int64, oldSealed, newSealed []byte) (bool, error)
}

type repoChallenge interface {
	Create(ctx context.Context, ch entity.Challenge) error
	GetByTokenPurpose(ctx context.Context, tokenHash string, p entity.ChallengePurpose) (*entity.Challenge, error)
	Delete(ctx context.Context, tokenHash string, p entity.ChallengePurpose) error
}

type limiter interface {
	Check(ctx context.Context, key string) (throttle.Result, error)
	Hit(ctx context.Context, key string) (throttle.Result, error)
	Clear(ctx context.Context, key string) error
}

type Usecase struct {
	repoDB        repoDB
	repoChallenge repoChallenge
	repoMessaging repoMessaging
	limiter       limiter
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	bcrypt        hash.Hash
	vault         vault.Vault
	recovery      recovery.Generator
	uid           uid.NumberID
	oid           uid.StringID
	totp          otp.OTP
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoChallenge repoChallenge
	RepoMessaging repoMessaging
	Limiter       limiter
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	Vault         vault.Vault
	Recovery      recovery.Generator
	UID           uid.NumberID
	OID           uid.StringID
	Totp          otp.OTP
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoChallenge: dep.RepoChallenge,
		repoMessaging: dep.RepoMessaging,
		limiter:       dep.Limiter,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		vault:         dep.Vault,
		recovery:      dep.Recovery,
		uid:           dep.UID,
		oid:           dep.OID,
		totp:          dep.Totp,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.usecase").Start(ctx, name)
}

func (s *Usecase) ensureUserStatusAllowed(ctx context.Context, userID int64, status entity.UserStatus) error {
	switch status.Ensure() {
	case entity.UserStatusUnknown:
		slog.WarnContext(ctx, "user account status is unrecognized", "user_id", userID)
		return goerror.NewBusiness("account status is unrecognized", goerror.CodeForbidden)

	case entity.UserStatusUnverified:
		slog.WarnContext(ctx, "user account is unverified", "user_id", userID)
		return goerror.NewBusiness("email not verified", goerror.CodeForbidden)

	case entity.UserStatusBanned:
		slog.WarnContext(ctx, "user account is banned", "user_id", userID)
		return goerror.NewBusiness("account is banned", goerror.CodeForbidden)

	case entity.UserStatusInactive:
		slog.WarnContext(ctx, "user account is deleted", "user_id", userID)
		return goerror.NewBusiness("account is deleted", goerror.CodeForbidden)

	default:
		return nil
	}
}

// authenticatedUser re-checks the caller's password before sensitive
// credential operations so a hijacked session alone cannot change the
// second factor.
func (s *Usecase) authenticatedUser(ctx context.Context, currentPassword string) (*entity.UserCredentialInfo, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetUserCredentialInfo(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", clm.UserID)
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
		return nil, err
	}

	if !s.bcrypt.Verify(user.Password, currentPassword) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("invalid password", goerror.CodeUnauthorized)
	}

	return user, nil
}

// newChallenge creates a challenge session and returns the plaintext token.
// Only the HMAC of the token is ever stored.
func (s *Usecase) newChallenge(ctx context.Context, userID int64, purpose entity.ChallengePurpose, remember bool, ttl time.Duration, metadata valueobject.JSONMap) (string, error) {
	token := s.oid.Generate()

	tokenHash, err := s.hmac.Hash(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash challenge token", "error", err)
		return "", goerror.NewServer(err)
	}

	if err := s.repoChallenge.Create(ctx, entity.Challenge{
		ID:        s.uid.Generate(),
		UserID:    userID,
		TokenHash: string(tokenHash),
		Purpose:   purpose,
		Remember:  remember,
		ExpiresAt: s.clock.Now().Add(ttl),
		Metadata:  metadata,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create challenge", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	return token, nil
}

// loadChallenge resolves an opaque token to its session. A missing or
// expired session yields the same error as a forged token.
func (s *Usecase) loadChallenge(ctx context.Context, token string, purpose entity.ChallengePurpose) (*entity.Challenge, error) {
	tokenHash, err := s.hmac.Hash(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash challenge token", "error", err)
		return nil, goerror.NewServer(err)
	}

	ch, err := s.repoChallenge.GetByTokenPurpose(ctx, string(tokenHash), purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "challenge session not found", "purpose", purpose.String())
		return nil, goerror.NewBusiness("challenge session not found or expired", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get challenge by token purpose", "purpose", purpose.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return ch, nil
}

func (s *Usecase) deleteChallenge(ctx context.Context, ch *entity.Challenge) {
	if err := s.repoChallenge.Delete(ctx, ch.TokenHash, ch.Purpose); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete challenge", "user_id", ch.UserID, "error", err)
	}
}

// reportVaultIntegrity logs and publishes a sealed-material open failure.
// Callers still fail closed with a generic error; the event is what makes
// the incident visible.
func (s *Usecase) reportVaultIntegrity(ctx context.Context, userID int64, purpose vault.Purpose) {
	slog.ErrorContext(ctx, "sealed credential material failed to open",
		"user_id", userID, "purpose", string(purpose))

	ev := VaultIntegrityEvent{UserID: userID, Purpose: string(purpose), At: s.clock.Now()}
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishVaultIntegrity(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish vault integrity event", "user_id", userID, "error", err)
			return err
		}
		return nil
	})
}
