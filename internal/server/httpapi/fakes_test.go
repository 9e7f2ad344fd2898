package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeAccounts answers with the configured funcs; nil funcs succeed with
// zero values.
type fakeAccounts struct {
	signup       func(in services.SignupInput) (*services.SignupResult, error)
	verify       func(email, code string) error
	resend       func(email string) error
	signin       func(email, password string) (*services.Session, error)
	refresh      func(token string) (*services.Session, error)
	autoLogin    func(token string) (*services.Session, error)
	forgot       func(email string) error
	reset        func(in services.ResetPasswordInput) error
	logout       func(access, remember string) error
	authenticate func(token string) (*services.Principal, error)
	me           func(p *services.Principal) (*models.User, error)
}

func (f *fakeAccounts) Signup(_ context.Context, in services.SignupInput) (*services.SignupResult, error) {
	if f.signup != nil {
		return f.signup(in)
	}
	return &services.SignupResult{Email: in.Email}, nil
}

func (f *fakeAccounts) VerifyAccount(_ context.Context, email, code string) error {
	if f.verify != nil {
		return f.verify(email, code)
	}
	return nil
}

func (f *fakeAccounts) ResendVerification(_ context.Context, email string) error {
	if f.resend != nil {
		return f.resend(email)
	}
	return nil
}

func (f *fakeAccounts) Signin(_ context.Context, email, password string) (*services.Session, error) {
	if f.signin != nil {
		return f.signin(email, password)
	}
	return testSession("access", "refresh"), nil
}

func (f *fakeAccounts) Refresh(_ context.Context, token string) (*services.Session, error) {
	if f.refresh != nil {
		return f.refresh(token)
	}
	return testSession("access", "refresh"), nil
}

func (f *fakeAccounts) AutoLogin(_ context.Context, token string) (*services.Session, error) {
	if f.autoLogin != nil {
		return f.autoLogin(token)
	}
	return testSession("access", "refresh"), nil
}

func (f *fakeAccounts) ForgotPassword(_ context.Context, email string) error {
	if f.forgot != nil {
		return f.forgot(email)
	}
	return nil
}

func (f *fakeAccounts) ResetPassword(_ context.Context, in services.ResetPasswordInput) error {
	if f.reset != nil {
		return f.reset(in)
	}
	return nil
}

func (f *fakeAccounts) Logout(_ context.Context, access, remember string) error {
	if f.logout != nil {
		return f.logout(access, remember)
	}
	return nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, token string) (*services.Principal, error) {
	if f.authenticate != nil {
		return f.authenticate(token)
	}
	return &services.Principal{UserID: "u-1", Role: models.RoleRegularUser, Token: token}, nil
}

func (f *fakeAccounts) Me(_ context.Context, p *services.Principal) (*models.User, error) {
	if f.me != nil {
		return f.me(p)
	}
	return &models.User{ID: p.UserID, Email: p.Email, Role: p.Role}, nil
}

type fakeAdmin struct {
	calls  []string
	err    error
	search func(fragment string) ([]*models.User, error)
}

func (f *fakeAdmin) record(op, id string) (*models.User, error) {
	f.calls = append(f.calls, op+":"+id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id}, nil
}

func (f *fakeAdmin) ChangeRole(_ context.Context, _ *services.Principal, id string, role models.Role) (*models.User, error) {
	u, err := f.record("role="+role.String(), id)
	if u != nil {
		u.Role = role
	}
	return u, err
}

func (f *fakeAdmin) Delete(_ context.Context, _ *services.Principal, id string) (*models.User, error) {
	return f.record("delete", id)
}

func (f *fakeAdmin) Restore(_ context.Context, _ *services.Principal, id string) (*models.User, error) {
	return f.record("restore", id)
}

func (f *fakeAdmin) Disable(_ context.Context, _ *services.Principal, id string) (*models.User, error) {
	return f.record("disable", id)
}

func (f *fakeAdmin) Enable(_ context.Context, _ *services.Principal, id string) (*models.User, error) {
	return f.record("enable", id)
}

func (f *fakeAdmin) Search(_ context.Context, fragment string) ([]*models.User, error) {
	if f.search != nil {
		return f.search(fragment)
	}
	return nil, nil
}

func (f *fakeAdmin) Get(_ context.Context, id string) (*models.User, error) {
	return f.record("get", id)
}

func (f *fakeAdmin) History(_ context.Context, id string) ([]*models.AdminAction, error) {
	f.calls = append(f.calls, "history:"+id)
	return []*models.AdminAction{{ID: 7, AdminID: "admin-1", TargetUserID: id, Action: services.ActionDelete}}, f.err
}

func testSession(access, refresh string) *services.Session {
	return &services.Session{
		TokenPair: services.TokenPair{AccessToken: access, RefreshToken: refresh},
		User:      &models.User{ID: "u-1", Role: models.RoleRegularUser},
	}
}

func newTestServer(accounts *fakeAccounts, admin *fakeAdmin) *HTTPServer {
	if accounts == nil {
		accounts = &fakeAccounts{}
	}
	if admin == nil {
		admin = &fakeAdmin{}
	}
	return NewHTTPServer(":0", logging.Nop{}, accounts, admin, Options{
		AllowedOrigins:  []string{"https://app.learnhub.example"},
		CookieSecure:    true,
		PendingEmailTTL: 30 * time.Minute,
		RememberTTL:     7 * 24 * time.Hour,
	})
}

type testRequest struct {
	method  string
	path    string
	body    string
	token   string
	cookies []*http.Cookie
	header  map[string]string
}

func do(s *HTTPServer, r testRequest) *httptest.ResponseRecorder {
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type decoded struct {
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) decoded {
	t.Helper()
	var d decoded
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return d
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
