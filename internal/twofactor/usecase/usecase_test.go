package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/goroutine"
	"github.com/gatewarden/gatewarden/internal/pkg/hash"
	"github.com/gatewarden/gatewarden/internal/pkg/instrument"
	"github.com/gatewarden/gatewarden/internal/pkg/jwt"
	"github.com/gatewarden/gatewarden/internal/pkg/otp"
	"github.com/gatewarden/gatewarden/internal/pkg/recovery"
	"github.com/gatewarden/gatewarden/internal/pkg/throttle"
	"github.com/gatewarden/gatewarden/internal/pkg/validator"
	"github.com/gatewarden/gatewarden/internal/pkg/vault"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
	libOTP "github.com/pquerna/otp"
)

// ---------------------------------------------------------------------------
// fakes

func goerrNotFound() error { return goerror.ErrNotFound }

type fakeDB struct {
	mu    sync.Mutex
	users map[int64]*entity.UserLoginInfo
	creds map[int64]*entity.TwoFactorCredential
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users: map[int64]*entity.UserLoginInfo{},
		creds: map[int64]*entity.TwoFactorCredential{},
	}
}

func (f *fakeDB) GetUserLoginInfo(_ context.Context, email string) (*entity.UserLoginInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, goerrNotFound()
}

func (f *fakeDB) GetUserCredentialInfo(_ context.Context, id int64) (*entity.UserCredentialInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, goerrNotFound()
	}
	return &entity.UserCredentialInfo{ID: u.ID, Email: u.Email, Status: u.Status, Password: u.Password}, nil
}

func (f *fakeDB) GetTwoFactorCredential(_ context.Context, userID int64) (*entity.TwoFactorCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return nil, goerrNotFound()
	}

	c, ok := f.creds[userID]
	if !ok {
		return &entity.TwoFactorCredential{UserID: userID}, nil
	}
	cp := *c
	cp.SealedSeed = append([]byte(nil), c.SealedSeed...)
	cp.SealedRecoveryCodes = append([]byte(nil), c.SealedRecoveryCodes...)
	return &cp, nil
}

func (f *fakeDB) EnableTwoFactor(_ context.Context, userID int64, sealedSeed, sealedCodes []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return goerrNotFound()
	}
	u.TwoFactorEnabled = true
	f.creds[userID] = &entity.TwoFactorCredential{
		UserID:              userID,
		SealedSeed:          append([]byte(nil), sealedSeed...),
		Enabled:             true,
		SealedRecoveryCodes: append([]byte(nil), sealedCodes...),
	}
	return nil
}

func (f *fakeDB) DisableTwoFactor(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return goerrNotFound()
	}
	u.TwoFactorEnabled = false
	delete(f.creds, userID)
	return nil
}

func (f *fakeDB) ReplaceRecoveryCodes(_ context.Context, userID int64, sealedCodes []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.creds[userID]
	if !ok || !c.Enabled {
		return goerrNotFound()
	}
	c.SealedRecoveryCodes = append([]byte(nil), sealedCodes...)
	return nil
}

func (f *fakeDB) SwapRecoveryCodes(_ context.Context, userID int64, oldSealed, newSealed []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.creds[userID]
	if !ok || !c.Enabled {
		return false, nil
	}
	if !bytes.Equal(c.SealedRecoveryCodes, oldSealed) {
		return false, nil
	}
	c.SealedRecoveryCodes = append([]byte(nil), newSealed...)
	return true, nil
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	sessions   map[string]entity.Challenge
	failDelete bool
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{sessions: map[string]entity.Challenge{}}
}

func challengeKey(tokenHash string, p entity.ChallengePurpose) string {
	return fmt.Sprintf("%d:%s", p, tokenHash)
}

func (f *fakeChallengeRepo) Create(_ context.Context, ch entity.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[challengeKey(ch.TokenHash, ch.Purpose)] = ch
	return nil
}

func (f *fakeChallengeRepo) GetByTokenPurpose(_ context.Context, tokenHash string, p entity.ChallengePurpose) (*entity.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, ok := f.sessions[challengeKey(tokenHash, p)]
	if !ok {
		return nil, goerrNotFound()
	}
	cp := ch
	return &cp, nil
}

func (f *fakeChallengeRepo) Delete(_ context.Context, tokenHash string, p entity.ChallengePurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDelete {
		return errors.New("challenge store unavailable")
	}

	delete(f.sessions, challengeKey(tokenHash, p))
	return nil
}

func (f *fakeChallengeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sessions)
}

type fakeMessaging struct {
	mu        sync.Mutex
	enabled   []TwoFactorEvent
	disabled  []TwoFactorEvent
	integrity []VaultIntegrityEvent
}

func (f *fakeMessaging) PublishTwoFactorEnabled(_ context.Context, ev TwoFactorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enabled = append(f.enabled, ev)
	return nil
}

func (f *fakeMessaging) PublishTwoFactorDisabled(_ context.Context, ev TwoFactorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disabled = append(f.disabled, ev)
	return nil
}

func (f *fakeMessaging) PublishVaultIntegrity(_ context.Context, ev VaultIntegrityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.integrity = append(f.integrity, ev)
	return nil
}

func (f *fakeMessaging) counts() (enabled, disabled, integrity int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.enabled), len(f.disabled), len(f.integrity)
}

type fakeJWT struct{}

func (fakeJWT) Generate(uid int64, email string, remember bool) (string, error) {
	return fmt.Sprintf("jwt:%d:%s:%t", uid, email, remember), nil
}

func (fakeJWT) Verify(string) (jwt.Claims, error) {
	return jwt.Claims{}, nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type seqNumberID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqNumberID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	return s.next
}

type seqStringID struct {
	mu   sync.Mutex
	next int
}

func (s *seqStringID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	return fmt.Sprintf("token-%04d", s.next)
}

type fakeConfig struct {
	values map[string]any
}

func (fakeConfig) Close() error { return nil }

func (c fakeConfig) GetSecond(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * time.Second
}

func (c fakeConfig) GetMinute(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * time.Minute
}

func (c fakeConfig) GetHour(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * time.Hour
}

func (c fakeConfig) GetDay(key string) time.Duration {
	return time.Duration(c.GetInt(key)) * 24 * time.Hour
}

func (c fakeConfig) GetInt(key string) int {
	if v, ok := c.values[key].(int); ok {
		return v
	}
	return 0
}

func (c fakeConfig) GetInt32(key string) int32   { return int32(c.GetInt(key)) }
func (c fakeConfig) GetInt64(key string) int64   { return int64(c.GetInt(key)) }
func (c fakeConfig) GetUint(key string) uint     { return uint(c.GetInt(key)) }
func (c fakeConfig) GetUint16(key string) uint16 { return uint16(c.GetInt(key)) }
func (c fakeConfig) GetUint32(key string) uint32 { return uint32(c.GetInt(key)) }
func (c fakeConfig) GetUint64(key string) uint64 { return uint64(c.GetInt(key)) }

func (c fakeConfig) GetFloat32(key string) float32 { return float32(c.GetFloat64(key)) }

func (c fakeConfig) GetFloat64(key string) float64 {
	if v, ok := c.values[key].(float64); ok {
		return v
	}
	return 0
}

func (c fakeConfig) GetBool(key string) bool {
	if v, ok := c.values[key].(bool); ok {
		return v
	}
	return false
}

func (c fakeConfig) GetString(key string) string {
	if v, ok := c.values[key].(string); ok {
		return v
	}
	return ""
}

func (c fakeConfig) GetBinary(key string) []byte {
	if v, ok := c.values[key].([]byte); ok {
		return v
	}
	return nil
}

func (c fakeConfig) GetArray(key string) []string {
	if v, ok := c.values[key].([]string); ok {
		return v
	}
	return nil
}

func (c fakeConfig) GetMap(key string) map[string]string {
	if v, ok := c.values[key].(map[string]string); ok {
		return v
	}
	return nil
}

// ---------------------------------------------------------------------------
// harness

type testEnv struct {
	uc         *Usecase
	db         *fakeDB
	challenges *fakeChallengeRepo
	msgs       *fakeMessaging
	goroutine  *goroutine.Manager
	vault      vault.Vault
	totp       otp.OTP
	bcrypt     hash.Hash
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("init validator: %v", err)
	}

	now := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	db := newFakeDB()
	challenges := newFakeChallengeRepo()
	msgs := &fakeMessaging{}
	grt := goroutine.NewManager(16)

	key := bytes.Repeat([]byte{0x5a}, 32)
	sealer := vault.NewAESGCM(vault.StaticKeyProvider{KeyBytes: key})
	totp := otp.NewTOTP("Gatewarden", 0, 0, libOTP.DigitsSix)
	bcrypt := hash.NewBcrypt(4, "")

	limiter := throttle.NewLimiter(throttle.NewMemoryStore(), 5, time.Minute)

	uc := New(Dependency{
		RepoDB:        db,
		RepoChallenge: challenges,
		RepoMessaging: msgs,
		Limiter:       limiter,
		Validator:     v10,
		Config: fakeConfig{values: map[string]any{
			"modules.twofactor.login_challenge_ttl_minutes":  5,
			"modules.twofactor.enroll_challenge_ttl_minutes": 10,
		}},
		HMAC:       hash.NewHMACSHA256("test-hmac-secret"),
		Bcrypt:     bcrypt,
		Vault:      sealer,
		Recovery:   recovery.NewCodeGenerator(),
		UID:        &seqNumberID{},
		OID:        &seqStringID{},
		Totp:       totp,
		Clock:      fixedClock{t: now},
		JWT:        fakeJWT{},
		Instrument: instrument.NewNoop(),
		Goroutine:  grt,
	})

	return &testEnv{
		uc:         uc,
		db:         db,
		challenges: challenges,
		msgs:       msgs,
		goroutine:  grt,
		vault:      sealer,
		totp:       totp,
		bcrypt:     bcrypt,
		now:        now,
	}
}

func (e *testEnv) addUser(t *testing.T, id int64, email, password string) {
	t.Helper()

	hashed, err := e.bcrypt.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	e.db.mu.Lock()
	defer e.db.mu.Unlock()

	e.db.users[id] = &entity.UserLoginInfo{
		ID:       id,
		Email:    email,
		Status:   entity.UserStatusActive,
		Password: string(hashed),
	}
}

// activateTwoFactor enables the second factor directly in storage and returns
// the plaintext seed and recovery codes for driving assertions.
func (e *testEnv) activateTwoFactor(t *testing.T, id int64) (string, []string) {
	t.Helper()

	secret, _, err := e.totp.Generate(fmt.Sprintf("user-%d@example.com", id))
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	codes, err := recovery.NewCodeGenerator().Generate()
	if err != nil {
		t.Fatalf("generate recovery codes: %v", err)
	}

	sealedSeed, err := e.vault.Seal([]byte(secret), vault.Scope{UserID: id, Purpose: vault.PurposeTOTPSeed})
	if err != nil {
		t.Fatalf("seal seed: %v", err)
	}

	encoded, err := codes.Encode()
	if err != nil {
		t.Fatalf("encode codes: %v", err)
	}
	sealedCodes, err := e.vault.Seal(encoded, vault.Scope{UserID: id, Purpose: vault.PurposeRecoveryCodes})
	if err != nil {
		t.Fatalf("seal codes: %v", err)
	}

	if err := e.db.EnableTwoFactor(context.Background(), id, sealedSeed, sealedCodes); err != nil {
		t.Fatalf("enable two-factor: %v", err)
	}

	return secret, codes
}

func (e *testEnv) totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := e.totp.GenerateCode(secret, e.now)
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

func (e *testEnv) authedCtx(id int64, email string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: id, UserEmail: email})
}
