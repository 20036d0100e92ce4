package config

import "testing"

func TestParseCSV(t *testing.T) {
	got := parseCSV("a, b, ,c,,")
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected values: %#v", got)
	}
}

func TestAsFloat(t *testing.T) {
	if f, ok := asFloat("0.25"); !ok || f != 0.25 {
		t.Fatalf("expected 0.25, got %v ok=%v", f, ok)
	}
	if _, ok := asFloat(struct{}{}); ok {
		t.Fatalf("expected failure for unsupported type")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_PATH", "")
	cfg, _ := Load("monitor", 8080)
	if cfg.BucketWidthMS != 5*60*1000 {
		t.Fatalf("unexpected bucket width: %d", cfg.BucketWidthMS)
	}
	if cfg.MaxVisibleAlerts != 3 {
		t.Fatalf("unexpected max visible alerts: %d", cfg.MaxVisibleAlerts)
	}
	if cfg.AlertStrategy != StrategyDelta {
		t.Fatalf("unexpected default strategy: %s", cfg.AlertStrategy)
	}
}

func TestLoadRejectsBadStrategy(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("ALERT_STRATEGY", "bogus")
	cfg, problems := Load("monitor", 8080)
	if cfg.AlertStrategy != StrategyDelta {
		t.Fatalf("expected fallback to delta, got %s", cfg.AlertStrategy)
	}
	found := false
	for _, p := range problems {
		if p.Field == "ALERT_STRATEGY" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ALERT_STRATEGY problem, got %v", problems)
	}
}
