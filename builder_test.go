package authgate

import (
	"testing"
	"time"

	"github.com/seralis/authgate/navigation"
)

func TestBuildRequiresTransport(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithRoutes(testRoutes()).
		Build()
	if err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestBuildRequiresRoutes(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithTransport(&fakeTransport{}).
		Build()
	if err == nil {
		t.Fatal("expected error without route table")
	}
}

func TestBuildRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Key = nil
	_, err := New().
		WithConfig(cfg).
		WithTransport(&fakeTransport{}).
		WithRoutes(testRoutes()).
		Build()
	if err == nil {
		t.Fatal("expected error without key material")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Session.RefreshRatio = 1.5
	_, err := New().
		WithConfig(cfg).
		WithTransport(&fakeTransport{}).
		WithRoutes(testRoutes()).
		Build()
	if err == nil {
		t.Fatal("expected error for invalid refresh ratio")
	}
}

func TestBuildRejectsDuplicateRoutes(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithTransport(&fakeTransport{}).
		WithRoutes([]navigation.RoutePermission{
			{Route: "/home"},
			{Route: "/home"},
		}).
		Build()
	if err == nil {
		t.Fatal("expected error for duplicate routes")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().
		WithConfig(testConfig()).
		WithTransport(&fakeTransport{}).
		WithRoutes(testRoutes())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestBuildClonesConfig(t *testing.T) {
	cfg := testConfig()
	b := New().
		WithConfig(cfg).
		WithTransport(&fakeTransport{}).
		WithRoutes(testRoutes())

	// Mutating the caller's copy after WithConfig must not leak in.
	cfg.JWT.Key[0] ^= 0xff
	cfg.Session.IdleTimeout = time.Nanosecond

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if string(engine.config.JWT.Key) != testSecret {
		t.Fatal("builder shared key material with the caller")
	}
	if engine.config.Session.IdleTimeout != DefaultConfig().Session.IdleTimeout {
		t.Fatal("builder picked up post-WithConfig mutation")
	}
}
