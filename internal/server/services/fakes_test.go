package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/auth"
	"github.com/dmitrijs2005/learnhub/internal/server/config"
	"github.com/dmitrijs2005/learnhub/internal/server/lockout"
	"github.com/dmitrijs2005/learnhub/internal/server/mailer"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/adminlog"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/visits"
	"github.com/google/uuid"
)

// --- clock ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- in-memory store ---

type memStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	verifs    map[string]*models.AccountVerification
	refresh   map[string]*models.RefreshToken
	blacklist map[string]time.Time
	visits    []models.UserVisit
	actions   []*models.AdminAction
	clock     *testClock
}

func newMemStore(c *testClock) *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		verifs:    map[string]*models.AccountVerification{},
		refresh:   map[string]*models.RefreshToken{},
		blacklist: map[string]time.Time{},
		clock:     c,
	}
}

func (s *memStore) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[id]
	return &u
}

func (s *memStore) userByEmail(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *memStore) verification(userID string) models.AccountVerification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.verifs[userID]
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.clock.Now()
	c := *u
	r.users[u.ID] = &c
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u := r.userByEmail(strings.TrimSpace(email)); u != nil {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r memUsers) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r memUsers) SetActive(_ context.Context, id string, active bool) error {
	return r.update(id, func(u *models.User) { u.IsActive = active })
}

func (r memUsers) SetDeleted(_ context.Context, id string, deleted bool) error {
	return r.update(id, func(u *models.User) { u.IsDeleted = deleted })
}

func (r memUsers) SetRole(_ context.Context, id string, role models.Role) error {
	return r.update(id, func(u *models.User) { u.Role = role })
}

func (r memUsers) SetTokensValidAfter(_ context.Context, id string, t time.Time) error {
	return r.update(id, func(u *models.User) { u.TokensValidAfter = &t })
}

func (r memUsers) SearchByEmail(_ context.Context, fragment string, limit int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Email), strings.ToLower(fragment)) && len(out) < limit {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memUsers) AnyAdmin(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Role == models.RoleAdmin && !u.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

type memVerifs struct{ *memStore }

func (r memVerifs) Upsert(_ context.Context, v *models.AccountVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *v
	r.verifs[v.UserID] = &c
	return nil
}

func (r memVerifs) GetByUserID(_ context.Context, userID string) (*models.AccountVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verifs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *v
	return &c, nil
}

type memRefresh struct{ *memStore }

func (r memRefresh) Create(_ context.Context, userID, hash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[hash] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, TokenHash: hash, Expires: expires}
	return nil
}

func (r memRefresh) Consume(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.refresh[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if t.Revoked {
		return nil, common.ErrRefreshTokenRevoked
	}
	t.Revoked = true
	c := *t
	return &c, nil
}

func (r memRefresh) Revoke(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.refresh[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (r memRefresh) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r memRefresh) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.refresh {
		if t.Expires.Before(now) {
			delete(r.refresh, k)
			n++
		}
	}
	return n, nil
}

type memBlacklist struct{ *memStore }

func (r memBlacklist) Add(_ context.Context, token string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklist[token] = exp
	return nil
}

func (r memBlacklist) IsBlacklisted(_ context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.blacklist[token]
	return ok && exp.After(now), nil
}

func (r memBlacklist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, exp := range r.blacklist {
		if !exp.After(now) {
			delete(r.blacklist, k)
			n++
		}
	}
	return n, nil
}

type memVisits struct{ *memStore }

func (r memVisits) Record(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, models.UserVisit{UserID: userID, VisitedAt: at})
	return nil
}

type memAdminLog struct{ *memStore }

func (r memAdminLog) Record(_ context.Context, a *models.AdminAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = int64(len(r.actions) + 1)
	c := *a
	r.actions = append(r.actions, &c)
	return nil
}

func (r memAdminLog) ListForUser(_ context.Context, target string, limit int) ([]*models.AdminAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AdminAction
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.actions[i].TargetUserID == target {
			c := *r.actions[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- repo manager and transactor ---

type memManager struct{ s *memStore }

func (m memManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m memManager) Users(dbx.DBTX) users.Repository                 { return memUsers{m.s} }
func (m memManager) Verifications(dbx.DBTX) verifications.Repository { return memVerifs{m.s} }
func (m memManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memRefresh{m.s} }
func (m memManager) Blacklist(dbx.DBTX) blacklist.Repository         { return memBlacklist{m.s} }
func (m memManager) Visits(dbx.DBTX) visits.Repository               { return memVisits{m.s} }
func (m memManager) AdminLog(dbx.DBTX) adminlog.Repository           { return memAdminLog{m.s} }

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	f.calls++
	return fn(ctx, nil)
}

// --- mail ---

type sentMail struct {
	Kind    mailer.Kind
	Email   string
	Name    string
	Payload string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMail) Enqueue(kind mailer.Kind, email, name, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind, email, name, payload})
}

func (f *fakeMail) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no mail enqueued")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// --- environment ---

type testEnv struct {
	clock   *testClock
	store   *memStore
	mail    *fakeMail
	tx      *fakeTx
	issuer  *auth.Issuer
	tracker *lockout.MemoryTracker
	cfg     *config.Config
	svc     *AccountService
	admin   *AdminService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PublicURL = "https://learnhub.example/"

	c := newTestClock()
	store := newMemStore(c)
	rm := memManager{s: store}
	tx := &fakeTx{}
	mail := &fakeMail{}
	issuer := auth.NewIssuer([]byte(cfg.SecretKey), cfg.Issuer, cfg.Audience, cfg.AccessTokenValidityDuration, c.Now)
	tracker := lockout.NewMemoryTracker(lockout.Policy{Threshold: cfg.LockoutThreshold, Duration: cfg.LockoutDuration}, c.Now)

	return &testEnv{
		clock:   c,
		store:   store,
		mail:    mail,
		tx:      tx,
		issuer:  issuer,
		tracker: tracker,
		cfg:     cfg,
		svc:     NewAccountService(nil, tx, rm, issuer, tracker, mail, logging.Nop{}, cfg, c.Now),
		admin:   NewAdminService(nil, tx, rm, logging.Nop{}, c.Now),
	}
}

// registerVerified signs up and verifies an account, returning its id.
func (e *testEnv) registerVerified(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	res, err := e.svc.Signup(ctx, SignupInput{FullName: "Test User", Email: email, Password: password, ConfirmPassword: password})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	u := e.store.userByEmail(res.Email)
	code := e.store.verification(u.ID).Code
	if err := e.svc.VerifyAccount(ctx, res.Email, code); err != nil {
		t.Fatalf("VerifyAccount error: %v", err)
	}
	return u.ID
}
