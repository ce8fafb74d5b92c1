package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	HealthLive(healthConfig())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resp.Header().Get("X-SwiftPay-Env") != "test" {
		t.Fatal("expected env header")
	}
}

func TestHealthReadyAllDependenciesUp(t *testing.T) {
	deps := map[string]ReadinessPinger{
		"database": &fakePinger{},
		"redis":    &fakePinger{},
	}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	HealthReady(healthConfig(), testLogger(), deps)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	deps := map[string]ReadinessPinger{
		"database": &fakePinger{err: errors.New("connection refused")},
	}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	HealthReady(healthConfig(), testLogger(), deps)(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestHealthReadySkipsNilPingers(t *testing.T) {
	deps := map[string]ReadinessPinger{"pubsub": nil}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	HealthReady(healthConfig(), testLogger(), deps)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
