package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validManual = `
mode: manual
transactions: 2
delay_minutes: 5
gas_multiplier: "1.3"
rpc_url: https://eth.llamarpc.com
accounts:
  - key_env: WRAPCYCLE_KEY_1
    amount: "0.05"
`

func TestLoadValidManualConfig(t *testing.T) {
	cfg, err := Load(Flags{ConfigPath: writeConfig(t, validManual), Hour: -1, Minute: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeManual || cfg.Transactions != 2 || cfg.DelayMinutes != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.GasRat().FloatString(2) != "1.30" {
		t.Fatalf("unexpected gas multiplier %s", cfg.GasRat())
	}
	if cfg.Delay().Minutes() != 5 {
		t.Fatalf("unexpected delay %s", cfg.Delay())
	}
}

func TestLoadValidAutoConfig(t *testing.T) {
	cfg, err := Load(Flags{ConfigPath: writeConfig(t, `
mode: auto
transactions: 1
delay_minutes: 1
gas_multiplier: "2"
schedule:
  hour: 9
  minute: 30
rpc_url: https://eth.llamarpc.com
accounts:
  - key_env: WRAPCYCLE_KEY_1
    amount: "1"
`), Hour: -1, Minute: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeAuto || *cfg.Hour != 9 || *cfg.Minute != 30 {
		t.Fatalf("unexpected schedule: %+v", cfg)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, strings.Replace(validManual, "manual", "sometimes", 1)), Hour: -1, Minute: -1})
	if err == nil || !strings.Contains(err.Error(), "mode") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestLoadAutoRequiresSchedule(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, strings.Replace(validManual, "manual", "auto", 1)), Hour: -1, Minute: -1})
	if err == nil || !strings.Contains(err.Error(), "schedule") {
		t.Fatalf("expected schedule error, got %v", err)
	}
}

func TestLoadRejectsOutOfRangeHour(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, `
mode: auto
transactions: 1
delay_minutes: 1
gas_multiplier: "1.3"
schedule:
  hour: 24
  minute: 0
rpc_url: https://eth.llamarpc.com
accounts:
  - key_env: K
    amount: "1"
`), Hour: -1, Minute: -1})
	if err == nil || !strings.Contains(err.Error(), "hour") {
		t.Fatalf("expected hour range error, got %v", err)
	}
}

func TestLoadRejectsBadNumericFields(t *testing.T) {
	cases := []struct {
		name, old, new string
	}{
		{"zero transactions", "transactions: 2", "transactions: 0"},
		{"zero delay", "delay_minutes: 5", "delay_minutes: 0"},
		{"negative multiplier", `gas_multiplier: "1.3"`, `gas_multiplier: "-1"`},
		{"non-numeric multiplier", `gas_multiplier: "1.3"`, `gas_multiplier: "fast"`},
	}
	for _, tc := range cases {
		_, err := Load(Flags{ConfigPath: writeConfig(t, strings.Replace(validManual, tc.old, tc.new, 1)), Hour: -1, Minute: -1})
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadRequiresAccounts(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, `
mode: manual
transactions: 1
delay_minutes: 1
gas_multiplier: "1.3"
rpc_url: https://eth.llamarpc.com
`), Hour: -1, Minute: -1})
	if err == nil || !strings.Contains(err.Error(), "account") {
		t.Fatalf("expected accounts error, got %v", err)
	}
}

func TestLoadRejectsAccountWithoutKeySource(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, `
mode: manual
transactions: 1
delay_minutes: 1
gas_multiplier: "1.3"
rpc_url: https://eth.llamarpc.com
accounts:
  - amount: "0.05"
`), Hour: -1, Minute: -1})
	if err == nil || !strings.Contains(err.Error(), "key source") {
		t.Fatalf("expected key source error, got %v", err)
	}
}

func TestLoadRejectsBadAmount(t *testing.T) {
	_, err := Load(Flags{ConfigPath: writeConfig(t, strings.Replace(validManual, `amount: "0.05"`, `amount: "lots"`, 1)), Hour: -1, Minute: -1})
	if err == nil {
		t.Fatal("expected amount error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WRAPCYCLE_GAS_MULTIPLIER", "1.5")
	cfg, err := Load(Flags{ConfigPath: writeConfig(t, validManual), Hour: -1, Minute: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GasMultiplier != "1.5" {
		t.Fatalf("expected env override, got %q", cfg.GasMultiplier)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("WRAPCYCLE_TRANSACTIONS", "9")
	cfg, err := Load(Flags{ConfigPath: writeConfig(t, validManual), Transactions: 3, Hour: -1, Minute: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transactions != 3 {
		t.Fatalf("expected flag override, got %d", cfg.Transactions)
	}
}

func TestMissingFileUsesDefaultsButStillValidates(t *testing.T) {
	_, err := Load(Flags{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"), Hour: -1, Minute: -1})
	if err == nil {
		t.Fatal("expected validation failure without rpc url and accounts")
	}
}
