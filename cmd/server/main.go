package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/SymptomDx/internal/auth"
	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/config"
	"github.com/Skufu/SymptomDx/internal/diagnosis"
	"github.com/Skufu/SymptomDx/internal/logging"
	"github.com/Skufu/SymptomDx/internal/model"
	"github.com/Skufu/SymptomDx/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "symptomdx",
		Short:        "Symptom based disease prediction service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(symptomsCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runServer(cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the record schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer st.Close()
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <symptoms>",
		Short: "Diagnose a comma separated symptom list and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := offlineEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pred, err := engine.Diagnose(strings.Join(args, ","))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pred)
		},
	}
}

func symptomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symptoms",
		Short: "List the recognised symptom keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := offlineEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, key := range engine.Symptoms() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		role  string
		name  string
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token with JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSigningKey == "" {
				return errors.New("JWT_SIGNING_KEY is required")
			}
			switch role {
			case model.RolePatient, model.RoleDoctor, model.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			now := time.Now()
			claims := auth.Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   email,
					Issuer:    cfg.AuthIssuer,
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				},
				Name:  name,
				Email: email,
				Role:  role,
			}
			tok, err := auth.Sign(claims, []byte(cfg.JWTSigningKey))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", model.RolePatient, "patient, doctor or admin")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address, also the subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// offlineEngine loads the engine for one-shot commands. Logs go to stderr
// so stdout stays machine readable.
func offlineEngine(cmd *cobra.Command) (*diagnosis.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
	engine, err := diagnosis.Load(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		if cfg.HasONNXModels() {
			classifier.ShutdownRuntime()
		}
	}, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	format := cfg.LogFormat
	if cfg.IsDev() && format == "" {
		format = "console"
	}
	return logging.New(cfg.LogLevel, format, w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
