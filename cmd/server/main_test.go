package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/auth"
	"github.com/Skufu/SymptomDx/internal/config"
	"github.com/Skufu/SymptomDx/internal/notify"
)

const testDatasets = "../../internal/reference/testdata"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "predict", "symptoms", "token"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, c, err)
		}
	}
}

func TestPredictCommand(t *testing.T) {
	t.Setenv("DATASETS_DIR", testDatasets)

	out, err := run(t, "predict", "itching, skin_rash", "nodal skin eruptions")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var got struct {
		Disease     string   `json:"disease"`
		Symptoms    []string `json:"symptoms"`
		Precautions []string `json:"precautions"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Disease != "Fungal infection" {
		t.Fatalf("disease = %q", got.Disease)
	}
	if len(got.Symptoms) != 3 || len(got.Precautions) != 4 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestPredictCommandUnknownSymptom(t *testing.T) {
	t.Setenv("DATASETS_DIR", testDatasets)

	_, err := run(t, "predict", "flying")
	if err == nil || !strings.Contains(err.Error(), "flying") {
		t.Fatalf("expected unknown symptom error, got %v", err)
	}
}

func TestSymptomsCommand(t *testing.T) {
	t.Setenv("DATASETS_DIR", testDatasets)

	out, err := run(t, "symptoms")
	if err != nil {
		t.Fatalf("symptoms: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 132 || lines[0] != "itching" {
		t.Fatalf("got %d keys, first %q", len(lines), lines[0])
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")
	t.Setenv("AUTH_ISSUER", "symptomdx")

	out, err := run(t, "token", "--role", "doctor", "--name", "Dr. Lee", "--email", "lee@clinic.test")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims := &auth.Claims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (any, error) {
		return []byte("cli-test-key"), nil
	}, jwt.WithIssuer("symptomdx"))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != "doctor" || claims.Email != "lee@clinic.test" || claims.Subject != "lee@clinic.test" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := run(t, "token", "--role", "nurse"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestTokenCommandRequiresKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	if _, err := run(t, "token"); err == nil {
		t.Fatal("expected error without JWT_SIGNING_KEY")
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://"+t.TempDir()+"/records.db")
	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Setenv("DATABASE_URL", "")
	if _, err := run(t, "migrate"); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestNewSender(t *testing.T) {
	cfg := &config.Config{}
	if _, ok := newSender(cfg, zerolog.Nop()).(notify.LogSender); !ok {
		t.Fatal("expected LogSender without MAIL_SERVER")
	}

	cfg.MailServer = "smtp.example.com"
	if _, ok := newSender(cfg, zerolog.Nop()).(*notify.SMTPSender); !ok {
		t.Fatal("expected SMTPSender with MAIL_SERVER")
	}
}
