package config

import (
	"strings"
	"testing"
	"time"
)

const validAddress = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EVM_ADDRESS", validAddress)
	t.Setenv("NETWORK", "")
	t.Setenv("CDP_API_KEY_ID", "")
	t.Setenv("CDP_API_KEY_SECRET", "")
	t.Setenv("CHALLENGE_TTL_SECONDS", "")
	t.Setenv("FACILITATOR_RETRIES", "")
	t.Setenv("REPLAY_BACKEND", "")
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Network != "eip155:84532" {
		t.Errorf("unexpected default network: %s", cfg.Network)
	}
	if cfg.ChallengeTTL != 2*time.Minute {
		t.Errorf("unexpected default TTL: %v", cfg.ChallengeTTL)
	}
	if cfg.ReplayBackend != ReplayBackendMemory {
		t.Errorf("unexpected default replay backend: %s", cfg.ReplayBackend)
	}
	if cfg.FacilitatorAuth != "" {
		t.Error("no credentials configured, auth must be empty")
	}
	if cfg.ReplayTTL() <= cfg.ChallengeTTL {
		t.Error("replay retention must exceed the challenge TTL")
	}
	if cfg.Addr() != "0.0.0.0:4022" {
		t.Errorf("unexpected addr: %s", cfg.Addr())
	}
}

func TestLoad_MissingRecipient(t *testing.T) {
	setValidEnv(t)
	t.Setenv("EVM_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing EVM_ADDRESS")
	}
}

func TestLoad_InvalidRecipient(t *testing.T) {
	setValidEnv(t)
	t.Setenv("EVM_ADDRESS", "not-an-address")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid EVM_ADDRESS")
	}
}

func TestLoad_UnknownNetwork(t *testing.T) {
	setValidEnv(t)
	t.Setenv("NETWORK", "eip155:424242")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown network")
	}
}

func TestLoad_CredentialsMustBePaired(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CDP_API_KEY_ID", "key-id")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for key id without secret")
	}
}

func TestLoad_CredentialsBuildAuthHeader(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CDP_API_KEY_ID", "key-id")
	t.Setenv("CDP_API_KEY_SECRET", "key-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.HasPrefix(cfg.FacilitatorAuth, "Basic ") {
		t.Errorf("expected Basic authorization, got %q", cfg.FacilitatorAuth)
	}
}

func TestLoad_BadReplayBackend(t *testing.T) {
	setValidEnv(t)
	t.Setenv("REPLAY_BACKEND", "dynamo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown replay backend")
	}
}

func TestLoad_BadTTL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CHALLENGE_TTL_SECONDS", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive TTL")
	}
}
