package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"homesync/internal/models"
	"homesync/internal/repositories"
)

type memUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	calls int
	err   error
	// raceOnCreate makes the pre-check miss the row a concurrent request just inserted.
	raceOnCreate bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*models.User)}
}

func (r *memUserRepo) GetByEmailOrMobile(ctx context.Context, email, mobile string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.raceOnCreate {
		return nil, nil
	}
	for _, u := range r.byID {
		if (email != "" && u.Email == email) || (mobile != "" && u.Mobile == mobile) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, email, mobile, passwordHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	for _, u := range r.byID {
		if (email != "" && u.Email == email) || (mobile != "" && u.Mobile == mobile) {
			return "", repositories.ErrDuplicate
		}
	}
	id := uuid.NewString()
	r.byID[id] = &models.User{ID: id, Email: email, Mobile: mobile, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return id, nil
}

func (r *memUserRepo) MarkVerified(ctx context.Context, userID string, field models.VerificationField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	u, ok := r.byID[userID]
	if !ok {
		return repositories.ErrNoRows
	}
	switch field {
	case models.EmailVerification:
		u.IsEmailVerified = true
	case models.MobileVerification:
		u.IsMobileVerified = true
	default:
		return errors.New("unknown field")
	}
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *memUserRepo) get(id string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

type memCodeRepo struct {
	mu   sync.Mutex
	rows []*models.VerificationCode
	ttl  time.Duration
	now  func() time.Time
	err  error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{ttl: repositories.DefaultCodeTTL, now: time.Now}
}

func (r *memCodeRepo) Store(ctx context.Context, userID string, typ models.VerificationType, code string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	now := r.now()
	v := &models.VerificationCode{
		ID: uuid.NewString(), UserID: userID, Type: typ, Code: code,
		ExpiresAt: now.Add(r.ttl), CreatedAt: now,
	}
	r.rows = append(r.rows, v)
	cp := *v
	return &cp, nil
}

func (r *memCodeRepo) FindActive(ctx context.Context, userID, code string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for i := len(r.rows) - 1; i >= 0; i-- {
		v := r.rows[i]
		if v.UserID == userID && v.Code == code && v.Active(now) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCodeRepo) MarkUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.rows {
		if v.ID == id && !v.IsUsed {
			v.IsUsed = true
			return nil
		}
	}
	return repositories.ErrAlreadyUsed
}

// vanishingUserRepo drops the user row right before flagging it.
type vanishingUserRepo struct {
	*memUserRepo
}

func (r *vanishingUserRepo) MarkVerified(ctx context.Context, userID string, field models.VerificationField) error {
	r.mu.Lock()
	delete(r.byID, userID)
	r.mu.Unlock()
	return r.memUserRepo.MarkVerified(ctx, userID, field)
}

// lockstepCodeRepo holds every FindActive caller until n of them have read the code,
// so concurrent verifications all see it unused.
type lockstepCodeRepo struct {
	*memCodeRepo
	wg sync.WaitGroup
}

func newLockstepCodeRepo(inner *memCodeRepo, n int) *lockstepCodeRepo {
	r := &lockstepCodeRepo{memCodeRepo: inner}
	r.wg.Add(n)
	return r
}

func (r *lockstepCodeRepo) FindActive(ctx context.Context, userID, code string) (*models.VerificationCode, error) {
	v, err := r.memCodeRepo.FindActive(ctx, userID, code)
	r.wg.Done()
	r.wg.Wait()
	return v, err
}

func (r *memCodeRepo) forUser(userID string) []models.VerificationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VerificationCode
	for _, v := range r.rows {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out
}

type failingNotifier struct{ err error }

func (n failingNotifier) Deliver(ctx context.Context, address, code string) error { return n.err }

// sequenceGenerator hands out fixed codes in order.
func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	svc     AuthService
	users   *memUserRepo
	codes   *memCodeRepo
	capture *CaptureNotifier
	tokens  *TokenService
}

func newAuthFixture(t *testing.T, notifier Notifier, gen CodeGenerator) *authFixture {
	t.Helper()
	users := newMemUserRepo()
	codes := newMemCodeRepo()
	capture := NewCaptureNotifier(discardLogger())
	if notifier == nil {
		notifier = capture
	}
	courier, err := NewCourier(notifier, time.Second, noop.NewMeterProvider().Meter("test"), nil, discardLogger())
	require.NoError(t, err)
	tokens := newTestTokens(t, 0, nil)
	svc := NewAuthService(users, codes, gen, courier, NewPasswordHasher(4), tokens, discardLogger())
	return &authFixture{svc: svc, users: users, codes: codes, capture: capture, tokens: tokens}
}
