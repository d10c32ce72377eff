package authgate

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envSpec mirrors the Config knobs that make sense to override from the
// environment. Key material and route tables stay in code or files.
type envSpec struct {
	JWTSigningMethod string        `envconfig:"JWT_SIGNING_METHOD"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	JWTIssuer        string        `envconfig:"JWT_ISSUER"`
	FreshnessWindow  time.Duration `envconfig:"FRESHNESS_WINDOW"`
	IdleTimeout      time.Duration `envconfig:"IDLE_TIMEOUT"`
	RefreshRatio     float64       `envconfig:"REFRESH_RATIO"`
	MaxLoginAttempts int           `envconfig:"MAX_LOGIN_ATTEMPTS"`
	AttemptWindow    time.Duration `envconfig:"ATTEMPT_WINDOW"`
	LockoutThreshold int           `envconfig:"LOCKOUT_THRESHOLD"`
	LockoutDuration  time.Duration `envconfig:"LOCKOUT_DURATION"`
	NavThrottle      time.Duration `envconfig:"NAV_THROTTLE"`
	AuditEnabled     *bool         `envconfig:"AUDIT_ENABLED"`
	MetricsEnabled   *bool         `envconfig:"METRICS_ENABLED"`
}

// ConfigFromEnv starts from [DefaultConfig] and overlays any variables
// found under the given prefix (e.g. prefix "AUTHGATE" reads
// AUTHGATE_IDLE_TIMEOUT and friends).
func ConfigFromEnv(prefix string) (Config, error) {
	cfg := DefaultConfig()

	var spec envSpec
	if err := envconfig.Process(prefix, &spec); err != nil {
		return Config{}, err
	}

	if spec.JWTSigningMethod != "" {
		cfg.JWT.SigningMethod = spec.JWTSigningMethod
	}
	if spec.JWTSecret != "" {
		cfg.JWT.Key = []byte(spec.JWTSecret)
	}
	if spec.JWTIssuer != "" {
		cfg.JWT.Issuer = spec.JWTIssuer
	}
	if spec.FreshnessWindow > 0 {
		cfg.Session.FreshnessWindow = spec.FreshnessWindow
	}
	if spec.IdleTimeout > 0 {
		cfg.Session.IdleTimeout = spec.IdleTimeout
	}
	if spec.RefreshRatio > 0 {
		cfg.Session.RefreshRatio = spec.RefreshRatio
	}
	if spec.MaxLoginAttempts > 0 {
		cfg.Security.MaxLoginAttempts = spec.MaxLoginAttempts
	}
	if spec.AttemptWindow > 0 {
		cfg.Security.AttemptWindow = spec.AttemptWindow
	}
	if spec.LockoutThreshold > 0 {
		cfg.Security.LockoutThreshold = spec.LockoutThreshold
	}
	if spec.LockoutDuration > 0 {
		cfg.Security.LockoutDuration = spec.LockoutDuration
	}
	if spec.NavThrottle > 0 {
		cfg.Navigation.Throttle = spec.NavThrottle
	}
	if spec.AuditEnabled != nil {
		cfg.Audit.Enabled = *spec.AuditEnabled
	}
	if spec.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *spec.MetricsEnabled
	}

	return cfg, cfg.Validate()
}
