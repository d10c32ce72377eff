package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seralis/authgate/jwt"
	"github.com/seralis/authgate/navigation"
	"github.com/seralis/authgate/session"
)

const testSecret = "unit-test-signing-secret"

type fakeTransport struct {
	mu              sync.Mutex
	loginCalls      int
	mfaCalls        int
	biometricCalls  int
	refreshCalls    int
	logoutCalls     int
	loginFn         func(ctx context.Context, creds Credentials) (*TokenGrant, error)
	verifyMFAFn     func(ctx context.Context, code, mfaToken string) (*TokenGrant, error)
	verifyBiometric func(ctx context.Context, token string, result BiometricResult) (*TokenGrant, error)
	refreshFn       func(ctx context.Context, refreshToken string) (*TokenGrant, error)
	logoutFn        func(ctx context.Context) error
}

func (f *fakeTransport) Login(ctx context.Context, creds Credentials) (*TokenGrant, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrInvalidCredentials
	}
	return fn(ctx, creds)
}

func (f *fakeTransport) VerifyMFA(ctx context.Context, code, mfaToken string) (*TokenGrant, error) {
	f.mu.Lock()
	f.mfaCalls++
	fn := f.verifyMFAFn
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrMFAInvalid
	}
	return fn(ctx, code, mfaToken)
}

func (f *fakeTransport) VerifyBiometric(ctx context.Context, token string, result BiometricResult) (*TokenGrant, error) {
	f.mu.Lock()
	f.biometricCalls++
	fn := f.verifyBiometric
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrBiometricRejected
	}
	return fn(ctx, token, result)
}

func (f *fakeTransport) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("refresh not configured")
	}
	return fn(ctx, refreshToken)
}

func (f *fakeTransport) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	fn := f.logoutFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f *fakeTransport) calls() (login, mfa, biometric, refresh, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.mfaCalls, f.biometricCalls, f.refreshCalls, f.logoutCalls
}

type fakeBiometrics struct {
	available bool
	result    BiometricResult
	err       error
}

func (f *fakeBiometrics) IsAvailable() bool { return f.available }

func (f *fakeBiometrics) Authenticate(context.Context, string) (BiometricResult, error) {
	return f.result, f.err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func mintToken(t *testing.T, uid string, ttl time.Duration) string {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{SigningMethod: jwt.MethodHS256, Key: []byte(testSecret)})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}
	tok, err := m.CreateAccess(uid, "", "password", ttl)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	return tok
}

func fullGrant(t *testing.T, uid string, ttl time.Duration) *TokenGrant {
	t.Helper()
	return &TokenGrant{
		User:           &session.User{ID: uid, Name: "Dana", Role: "NURSE"},
		AccessToken:    mintToken(t, uid, ttl),
		RefreshToken:   "refresh-1",
		BiometricToken: "bio-1",
	}
}

func testRoutes() []navigation.RoutePermission {
	return []navigation.RoutePermission{
		{Route: "/home", AuditLevel: navigation.AuditNone},
		{Route: "/dashboard", RequiresAuth: true, AllowedRoles: []session.Role{session.RoleAll}, AuditLevel: navigation.AuditBasic},
		{
			Route:          "/patient/records",
			RequiresAuth:   true,
			AllowedRoles:   []session.Role{"DOCTOR", "NURSE"},
			AuditLevel:     navigation.AuditDetailed,
			HIPAACompliant: true,
			AccessRestrictions: navigation.AccessRestrictions{
				MFARequired: true,
			},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.Key = []byte(testSecret)
	return cfg
}

func newTestEngine(t *testing.T, transport AuthTransport, clock *fakeClock, mutate func(*Builder)) *Engine {
	t.Helper()
	b := New().
		WithConfig(testConfig()).
		WithTransport(transport).
		WithRoutes(testRoutes())
	if clock != nil {
		b.WithClock(clock.Now)
	}
	if mutate != nil {
		mutate(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestLoginSuccess(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(_ context.Context, creds Credentials) (*TokenGrant, error) {
			if creds.Username != "dana" || creds.Password != "pw" {
				return nil, ErrInvalidCredentials
			}
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	clock := newFakeClock()
	engine := newTestEngine(t, transport, clock, nil)

	res, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Status != session.StatusAuthenticated || res.MFARequired {
		t.Fatalf("result = %+v", res)
	}

	snap := engine.Snapshot()
	if !snap.Authenticated() {
		t.Fatalf("snapshot not authenticated: %+v", snap)
	}
	if snap.AuthMethod != session.AuthMethodPassword {
		t.Fatalf("AuthMethod = %v, want password", snap.AuthMethod)
	}
	if snap.User.ID != "u1" {
		t.Fatalf("User = %+v", snap.User)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("login success counter = %d", got)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	transport := &fakeTransport{}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	_, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "bad"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	view := engine.Session()
	if view.Status != session.StatusIdle {
		t.Fatalf("status = %v, want idle after rejection", view.Status)
	}
	if !errors.Is(view.Err, ErrInvalidCredentials) {
		t.Fatalf("session error = %v", view.Err)
	}
}

func TestLoginEmptyCredentialsRejected(t *testing.T) {
	transport := &fakeTransport{}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	ctx := context.Background()
	before := engine.RemainingLoginAttempts()
	for _, creds := range []Credentials{
		{},
		{Username: "dana"},
		{Password: "pw"},
	} {
		if _, err := engine.Login(ctx, creds); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%+v): %v, want ErrInvalidCredentials", creds, err)
		}
	}

	// Blank credentials are rejected locally: the server is never asked
	// and the device window keeps its full budget.
	if logins, _, _, _, _ := transport.calls(); logins != 0 {
		t.Fatalf("transport called %d times, want 0", logins)
	}
	if got := engine.RemainingLoginAttempts(); got != before {
		t.Fatalf("remaining attempts = %d, want %d", got, before)
	}
	if got := engine.Session().Status; got != session.StatusIdle {
		t.Fatalf("status = %v, want idle", got)
	}
}

func TestLoginTransportFailure(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return nil, errors.New("connection refused")
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	_, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"})
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("expected ErrTransportUnavailable, got %v", err)
	}
	if got := engine.Session().Status; got != session.StatusError {
		t.Fatalf("status = %v, want error", got)
	}
}

func TestLoginRateLimited(t *testing.T) {
	transport := &fakeTransport{}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 2
		cfg.Security.LockoutThreshold = 10
		b.WithConfig(cfg)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "bad"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	_, err := engine.Login(ctx, Credentials{Username: "dana", Password: "bad"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	// The limited attempt never reaches the server.
	if logins, _, _, _, _ := transport.calls(); logins != 2 {
		t.Fatalf("transport called %d times, want 2", logins)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("rate limited counter = %d", got)
	}
}

func TestRateWindowRecovers(t *testing.T) {
	transport := &fakeTransport{}
	clock := newFakeClock()
	engine := newTestEngine(t, transport, clock, func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 1
		cfg.Security.AttemptWindow = 15 * time.Minute
		cfg.Security.LockoutThreshold = 10
		b.WithConfig(cfg)
	})

	ctx := context.Background()
	_, _ = engine.Login(ctx, Credentials{Username: "dana", Password: "bad"})
	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "bad"}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	clock.Advance(15 * time.Minute)
	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "bad"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected fresh window after lapse, got %v", err)
	}
}

func TestAccountLockedWinsOverRateLimit(t *testing.T) {
	transport := &fakeTransport{}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 3
		cfg.Security.LockoutThreshold = 3
		b.WithConfig(cfg)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, Credentials{Username: "mallory", Password: "bad"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	// The third failure crosses the identity threshold.
	if _, err := engine.Login(ctx, Credentials{Username: "mallory", Password: "bad"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked at threshold, got %v", err)
	}

	// Both mechanisms are now tripped; the identity lockout reports.
	_, err := engine.Login(ctx, Credentials{Username: "mallory", Password: "bad"})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked to win, got %v", err)
	}
	if logins, _, _, _, _ := transport.calls(); logins != 3 {
		t.Fatalf("transport called %d times, want 3", logins)
	}
}

func TestLockoutIsPerIdentity(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(_ context.Context, creds Credentials) (*TokenGrant, error) {
			if creds.Username == "dana" && creds.Password == "pw" {
				return fullGrant(t, "u1", 15*time.Minute), nil
			}
			return nil, ErrInvalidCredentials
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 10
		cfg.Security.LockoutThreshold = 2
		b.WithConfig(cfg)
	})

	ctx := context.Background()
	_, _ = engine.Login(ctx, Credentials{Username: "mallory", Password: "bad"})
	if _, err := engine.Login(ctx, Credentials{Username: "mallory", Password: "bad"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected mallory locked, got %v", err)
	}

	// A different identity on the same device still gets through.
	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("dana login: %v", err)
	}
}

func TestConcurrentLoginRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			close(started)
			<-release
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"})
		done <- err
	}()

	<-started
	_, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"})
	if !errors.Is(err, ErrLoginInFlight) {
		t.Fatalf("expected ErrLoginInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}
	if logins, _, _, _, _ := transport.calls(); logins != 1 {
		t.Fatalf("transport called %d times, want 1", logins)
	}
}

func TestMFAFlow(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return &TokenGrant{
				User:        &session.User{ID: "u1", Role: "NURSE"},
				MFARequired: true,
				MFAToken:    "chal-1",
			}, nil
		},
		verifyMFAFn: func(_ context.Context, code, mfaToken string) (*TokenGrant, error) {
			if mfaToken != "chal-1" {
				return nil, ErrTokenInvalid
			}
			if code != "123456" {
				return nil, ErrMFAInvalid
			}
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)
	ctx := context.Background()

	res, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.MFARequired || res.Status != session.StatusMFARequired {
		t.Fatalf("result = %+v", res)
	}

	// A wrong code keeps the challenge retryable.
	if _, err := engine.VerifyMFA(ctx, "000000"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid, got %v", err)
	}
	if got := engine.Session().Status; got != session.StatusMFARequired {
		t.Fatalf("status after bad code = %v", got)
	}

	res, err = engine.VerifyMFA(ctx, "123456")
	if err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}
	if res.Status != session.StatusAuthenticated {
		t.Fatalf("status = %v", res.Status)
	}
	snap := engine.Snapshot()
	if snap.AuthMethod != session.AuthMethodMFA {
		t.Fatalf("AuthMethod = %v, want mfa", snap.AuthMethod)
	}
	if got := engine.MetricsSnapshot().Counters[MetricMFASuccess]; got != 1 {
		t.Fatalf("mfa success counter = %d", got)
	}
}

func TestPendingMFABlocksStepUp(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return &TokenGrant{MFARequired: true, MFAToken: "chal-1", User: &session.User{ID: "u1"}}, nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		b.WithBiometricProvider(&fakeBiometrics{available: true, result: BiometricResult{Success: true, Method: "faceid"}})
	})
	ctx := context.Background()

	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The parked session names the missing factor.
	if view := engine.Session(); !errors.Is(view.Err, ErrMFARequired) {
		t.Fatalf("session error = %v, want ErrMFARequired", view.Err)
	}
	// Step-up cannot leapfrog the pending challenge.
	if err := engine.RequireBiometricStepUp(ctx); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("RequireBiometricStepUp: %v, want ErrMFARequired", err)
	}
	if got := engine.Session().Status; got != session.StatusMFARequired {
		t.Fatalf("status = %v, want mfa_required", got)
	}
}

func TestMFARateLimited(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return &TokenGrant{MFARequired: true, MFAToken: "chal-1", User: &session.User{ID: "u1"}}, nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxMFAAttempts = 2
		b.WithConfig(cfg)
	})
	ctx := context.Background()

	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := engine.VerifyMFA(ctx, "000000"); !errors.Is(err, ErrMFAInvalid) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	_, err := engine.VerifyMFA(ctx, "000000")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, mfa, _, _, _ := transport.calls(); mfa != 2 {
		t.Fatalf("transport called %d times, want 2", mfa)
	}
}

func TestVerifyMFAOutsideChallenge(t *testing.T) {
	engine := newTestEngine(t, &fakeTransport{}, newFakeClock(), nil)
	if _, err := engine.VerifyMFA(context.Background(), "123456"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSnapshotExpiresDeadToken(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 10*time.Minute), nil
		},
	}
	clock := newFakeClock()
	engine := newTestEngine(t, transport, clock, nil)

	if _, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock.Advance(11 * time.Minute)
	snap := engine.Snapshot()
	if snap.Status != session.StatusSessionExpired {
		t.Fatalf("status = %v, want session_expired", snap.Status)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("session expired counter = %d", got)
	}
}

func TestSnapshotExpiresStaleVerification(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 2*time.Hour), nil
		},
	}
	clock := newFakeClock()
	engine := newTestEngine(t, transport, clock, func(b *Builder) {
		cfg := testConfig()
		cfg.Session.FreshnessWindow = 30 * time.Minute
		b.WithConfig(cfg)
	})

	if _, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock.Advance(29 * time.Minute)
	if got := engine.Snapshot().Status; got != session.StatusAuthenticated {
		t.Fatalf("expired early: %v", got)
	}

	clock.Advance(2 * time.Minute)
	if got := engine.Snapshot().Status; got != session.StatusSessionExpired {
		t.Fatalf("status = %v, want session_expired on stale verification", got)
	}
}

func TestSecurityViolationClearsSession(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	if _, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	engine.ReportSecurityViolation(SecurityViolation{
		Type:    ViolationSuspiciousActivity,
		Details: "token replay detected",
	})

	view := engine.Session()
	if view.Status != session.StatusSecurityViolation {
		t.Fatalf("status = %v", view.Status)
	}
	if view.AccessToken != nil || view.RefreshToken != "" || view.User != nil {
		t.Fatal("violation left session material behind")
	}
	if !errors.Is(view.Err, ErrSecurityViolation) {
		t.Fatalf("Err = %v", view.Err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSecurityViolation]; got != 1 {
		t.Fatalf("violation counter = %d", got)
	}
}

func TestObserveContextDeviceChange(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	ctx := WithDeviceID(WithClientIP(context.Background(), "10.0.0.1"), "dev-1")
	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Same fingerprint: nothing happens.
	engine.ObserveContext(session.SecurityContext{DeviceID: "dev-1", IPAddress: "10.0.0.1"})
	if got := engine.Session().Status; got != session.StatusAuthenticated {
		t.Fatalf("status = %v after matching fingerprint", got)
	}

	engine.ObserveContext(session.SecurityContext{DeviceID: "dev-2", IPAddress: "10.0.0.1"})
	view := engine.Session()
	if view.Status != session.StatusSecurityViolation {
		t.Fatalf("status = %v, want security_violation", view.Status)
	}
	var violation *SecurityViolation
	if !errors.As(view.Err, &violation) || violation.Type != ViolationDeviceChange {
		t.Fatalf("Err = %v", view.Err)
	}
}

func TestTouchStampsActivity(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	clock := newFakeClock()
	engine := newTestEngine(t, transport, clock, nil)

	if _, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock.Advance(5 * time.Minute)
	engine.Touch()
	if got := engine.Session().LastActivity; !got.Equal(clock.Now()) {
		t.Fatalf("LastActivity = %v, want %v", got, clock.Now())
	}
}

func TestSecurityReport(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)

	if _, err := engine.Login(context.Background(), Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	report := engine.SecurityReport()
	if report.Status != session.StatusAuthenticated || report.UserID != "u1" {
		t.Fatalf("report = %+v", report)
	}
	if !report.VerificationFresh {
		t.Fatal("fresh login reported stale")
	}
	if report.RemainingLoginAttempts != 5 {
		t.Fatalf("RemainingLoginAttempts = %d", report.RemainingLoginAttempts)
	}
}

func TestAuditTrailOnLogin(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	sink := NewChannelSink(16)
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		b.WithAuditSink(sink)
	})

	ctx := WithDeviceID(context.Background(), "dev-1")
	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != "login" || !event.Success {
			t.Fatalf("event = %+v", event)
		}
		if event.UserID != "u1" || event.DeviceID != "dev-1" {
			t.Fatalf("event identity = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event")
	}
}

func TestStepUpUnlocksSensitiveRoutes(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return fullGrant(t, "u1", time.Hour), nil
		},
		verifyBiometric: func(context.Context, string, BiometricResult) (*TokenGrant, error) {
			return fullGrant(t, "u1", time.Hour), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), func(b *Builder) {
		b.WithBiometricProvider(&fakeBiometrics{available: true, result: BiometricResult{Success: true, Method: "faceid"}})
	})
	nav := engine.Navigation()
	ctx := context.Background()

	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Password-only: ordinary routes open, PHI routes closed.
	if !nav.CanNavigate("/dashboard").Allowed {
		t.Fatal("password session denied dashboard")
	}
	dec := nav.CanNavigate("/patient/records")
	if dec.Allowed || dec.Guard != "HipaaGuard" {
		t.Fatalf("decision = %+v, want HipaaGuard denial", dec)
	}

	if err := engine.RequireBiometricStepUp(ctx); err != nil {
		t.Fatalf("RequireBiometricStepUp: %v", err)
	}
	if err := engine.AuthenticateWithBiometrics(ctx, "open patient records"); err != nil {
		t.Fatalf("AuthenticateWithBiometrics: %v", err)
	}

	if !nav.CanNavigate("/patient/records").Allowed {
		t.Fatal("step-up did not unlock PHI route")
	}
}

func TestNavigationWiredToSession(t *testing.T) {
	transport := &fakeTransport{
		loginFn: func(context.Context, Credentials) (*TokenGrant, error) {
			return &TokenGrant{User: &session.User{ID: "u1", Role: "NURSE"}, MFARequired: true, MFAToken: "chal-1"}, nil
		},
		verifyMFAFn: func(context.Context, string, string) (*TokenGrant, error) {
			return fullGrant(t, "u1", 15*time.Minute), nil
		},
	}
	engine := newTestEngine(t, transport, newFakeClock(), nil)
	nav := engine.Navigation()
	ctx := context.Background()

	// Anonymous: protected routes refuse, public ones do not.
	if nav.CanNavigate("/dashboard").Allowed {
		t.Fatal("anonymous dashboard access allowed")
	}
	if !nav.CanNavigate("/home").Allowed {
		t.Fatal("public route denied")
	}

	if _, err := engine.Login(ctx, Credentials{Username: "dana", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := engine.VerifyMFA(ctx, "123456"); err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}

	if !nav.CanNavigate("/patient/records").Allowed {
		t.Fatal("MFA-verified nurse denied PHI route")
	}

	// Logout propagates into navigation immediately.
	if err := engine.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	dec := nav.CanNavigate("/patient/records")
	if dec.Allowed || dec.Reason != navigation.ReasonAuthRequired {
		t.Fatalf("decision after logout = %+v", dec)
	}
}
