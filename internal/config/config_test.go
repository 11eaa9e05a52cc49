package config

import "testing"

func TestResolveDefaultsDerivesDriver(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		driver string
	}{
		{"memory when nothing set", Config{Mode: ModeDevelopment, DBDriver: "auto"}, "memory"},
		{"postgres from dsn", Config{Mode: ModeDevelopment, DBDriver: "auto", PostgresDSN: "postgres://x"}, "postgres"},
		{"sqlite from path", Config{Mode: ModeDevelopment, DBDriver: "auto", SQLitePath: "/tmp/s.db"}, "sqlite"},
		{"explicit wins", Config{Mode: ModeDevelopment, DBDriver: "sqlite", PostgresDSN: "postgres://x", SQLitePath: "/tmp/s.db"}, "sqlite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.ResolveDefaults(); err != nil {
				t.Fatalf("ResolveDefaults: %v", err)
			}
			if tc.cfg.DBDriver != tc.driver {
				t.Errorf("driver = %s, want %s", tc.cfg.DBDriver, tc.driver)
			}
		})
	}
}

func TestResolveDefaultsRejectsBadInput(t *testing.T) {
	bad := []Config{
		{Mode: "staging"},
		{Mode: ModeDevelopment, DBDriver: "mongodb"},
		{Mode: ModeProduction, DBDriver: "memory"},
		{Mode: ModeProduction, DBDriver: "postgres", PostgresDSN: "postgres://x"}, // no encryption key
	}
	for i, cfg := range bad {
		if err := cfg.ResolveDefaults(); err == nil {
			t.Errorf("case %d: expected error, got nil (cfg=%+v)", i, cfg)
		}
	}
}

func TestDevEncryptionKeyOnlyInDevelopment(t *testing.T) {
	cfg := Config{Mode: ModeDevelopment, DBDriver: "memory"}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("ResolveDefaults: %v", err)
	}
	if cfg.EncryptionKey == "" {
		t.Error("development mode should fill a default encryption key")
	}
}

func TestLLMConfigured(t *testing.T) {
	cfg := Config{}
	if cfg.LLMConfigured() {
		t.Error("empty key should mean no LLM")
	}
	cfg.LLMAPIKey = "sk-test"
	if !cfg.LLMConfigured() {
		t.Error("key present should mean LLM configured")
	}
}
