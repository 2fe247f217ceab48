package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/logger"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("POLL_INTERVAL", "not-a-duration")

	cfg := Load(logger.Nop())

	if cfg.Client.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.Client.RequestTimeout)
	}
	if cfg.Client.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Client.PollInterval)
	}
	if cfg.Client.RefreshDelay != DefaultRefreshDelay {
		t.Errorf("RefreshDelay = %v", cfg.Client.RefreshDelay)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("WALLET_TOKEN", "tok")
	t.Setenv("WALLET_PROXY_URL", "https://proxy.example/request-proxy")
	t.Setenv("REFRESH_DELAY", "1s")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg := Load(logger.Nop())

	if cfg.Wallet.Token != "tok" || cfg.Wallet.ProxyURL != "https://proxy.example/request-proxy" {
		t.Errorf("unexpected wallet settings: %+v", cfg.Wallet)
	}
	if cfg.Client.RefreshDelay != time.Second {
		t.Errorf("RefreshDelay = %v, want 1s", cfg.Client.RefreshDelay)
	}
	if cfg.Server.RateBurst != 5 {
		t.Errorf("RateBurst = %d, want 5", cfg.Server.RateBurst)
	}
}

func TestFileStore_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	defaults := WalletSettings{Token: "default"}

	store, err := NewFileStore(path, defaults)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if store.Current() != defaults {
		t.Errorf("Current() = %+v, want defaults", store.Current())
	}
}

func TestFileStore_ReplacePersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewFileStore(path, WalletSettings{Token: "old"})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	var got []WalletSettings
	unsubscribe := store.Subscribe(func(s WalletSettings) { got = append(got, s) })

	next := WalletSettings{Token: "new", ProxyURL: "https://proxy"}
	if err := store.Replace(next); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if store.Current() != next {
		t.Errorf("Current() = %+v, want %+v", store.Current(), next)
	}
	if len(got) != 1 || got[0] != next {
		t.Errorf("subscriber saw %+v", got)
	}

	reloaded, err := NewFileStore(path, WalletSettings{})
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Current() != next {
		t.Errorf("reloaded = %+v, want %+v", reloaded.Current(), next)
	}

	unsubscribe()
	if err := store.Replace(WalletSettings{Token: "third"}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("unsubscribed listener was called again: %+v", got)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path, WalletSettings{}); err == nil {
		t.Error("expected an error for a corrupt settings file")
	}
}
