package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/prelude-sh/prelude/internal/config"
)

func writeEncryptedSecrets(t *testing.T, path, passphrase, plaintext string) {
	t.Helper()
	var buf bytes.Buffer
	w, err := openpgp.SymmetricallyEncrypt(&buf, []byte(passphrase), nil, nil)
	if err != nil {
		t.Fatalf("SymmetricallyEncrypt() error = %v", err)
	}
	if _, err := w.Write([]byte(plaintext)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestBuildEncryptedSecrets(t *testing.T) {
	host := testHost(t)
	host.Vars[EnvSecretsPassphrase] = "correct horse"

	secretsPath := filepath.Join(host.ConfigDir, ".secrets.env.gpg")
	writeEncryptedSecrets(t, secretsPath, "correct horse", "API_TOKEN=hunter2\nDB_URL=postgres://x\n")

	cfg := &config.Config{
		Bootstrap: config.Bootstrap{
			SecretsFile:     "{config_dir}/.secrets.env.gpg",
			SecretsStrategy: config.StrategyFillMissing,
		},
	}

	env, err := Build(host, cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if env.Vars["API_TOKEN"] != "hunter2" {
		t.Errorf("API_TOKEN = %q", env.Vars["API_TOKEN"])
	}
	if env.Vars["DB_URL"] != "postgres://x" {
		t.Errorf("DB_URL = %q", env.Vars["DB_URL"])
	}
}

func TestBuildEncryptedSecretsOverrideStrategy(t *testing.T) {
	host := testHost(t)
	host.Vars[EnvSecretsPassphrase] = "pw"
	host.Vars["API_TOKEN"] = "stale"

	secretsPath := filepath.Join(host.ConfigDir, ".secrets.env.gpg")
	writeEncryptedSecrets(t, secretsPath, "pw", "API_TOKEN=fresh\n")

	cfg := &config.Config{
		Bootstrap: config.Bootstrap{
			SecretsFile:     "{config_dir}/.secrets.env.gpg",
			SecretsStrategy: config.StrategyOverride,
		},
	}

	env, err := Build(host, cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if env.Vars["API_TOKEN"] != "fresh" {
		t.Errorf("API_TOKEN = %q, override strategy must replace", env.Vars["API_TOKEN"])
	}
}

func TestBuildEncryptedSecretsErrors(t *testing.T) {
	t.Run("missing passphrase", func(t *testing.T) {
		host := testHost(t)
		secretsPath := filepath.Join(host.ConfigDir, ".secrets.env.gpg")
		writeEncryptedSecrets(t, secretsPath, "pw", "A=1\n")

		cfg := &config.Config{
			Bootstrap: config.Bootstrap{
				SecretsFile:     "{config_dir}/.secrets.env.gpg",
				SecretsStrategy: config.StrategyFillMissing,
			},
		}

		if _, err := Build(host, cfg); err == nil {
			t.Error("Build() expected error for encrypted secrets without passphrase")
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		host := testHost(t)
		host.Vars[EnvSecretsPassphrase] = "wrong"
		secretsPath := filepath.Join(host.ConfigDir, ".secrets.env.gpg")
		writeEncryptedSecrets(t, secretsPath, "right", "A=1\n")

		cfg := &config.Config{
			Bootstrap: config.Bootstrap{
				SecretsFile:     "{config_dir}/.secrets.env.gpg",
				SecretsStrategy: config.StrategyFillMissing,
			},
		}

		if _, err := Build(host, cfg); err == nil {
			t.Error("Build() expected error for wrong passphrase")
		}
	})

	t.Run("missing encrypted file is skipped", func(t *testing.T) {
		host := testHost(t)
		cfg := &config.Config{
			Bootstrap: config.Bootstrap{
				SecretsFile:     "{config_dir}/.secrets.env.gpg",
				SecretsStrategy: config.StrategyFillMissing,
			},
		}
		if _, err := Build(host, cfg); err != nil {
			t.Errorf("Build() error = %v, missing secrets file should be fine", err)
		}
	})
}
