package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/cuuri/internal/config"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/providers/llm"
	"github.com/sandevgo/cuuri/internal/service/wizard"
	"github.com/sandevgo/cuuri/pkg/env"
	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/spf13/cobra"
)

var initForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the runtime .env file",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Write a .env file with the current settings",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")
		if _, err := os.Stat(envPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", envPath)
		}
		if err := initEnv(ctx, runtimePath); err != nil {
			return err
		}

		appCfg := config.NewAppConfig(ctx)
		providerCfg := config.NewProviderConfig(ctx)
		// the runtime path locates the file itself
		appCfg.RuntimePath = ""

		var content string
		for _, c := range []any{providerCfg, appCfg} {
			part, err := env.MarshalEnv(c)
			if err != nil {
				return err
			}
			content += part
		}

		if err := os.MkdirAll(runtimePath, 0700); err != nil {
			return fmt.Errorf("create runtime directory: %w", err)
		}
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			return fmt.Errorf("write %s: %w", envPath, err)
		}

		log.FromCtx(ctx).Info().Str("path", envPath).Msg("config written")
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:          "set-key KEY",
	Short:        "Store the API key of the configured provider",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		runtimePath := config.GetRuntimePath()
		if err := initEnv(ctx, runtimePath); err != nil {
			return err
		}
		providerCfg := config.NewProviderConfig(ctx)

		if err := mergeEnvFile(runtimePath, map[string]string{providerCfg.APIKeyEnv(): args[0]}); err != nil {
			return err
		}

		log.FromCtx(ctx).Info().
			Str("provider", providerCfg.GetProvider()).
			Str("key", providerCfg.APIKeyEnv()).
			Msg("api key saved")
		return nil
	},
}

var configWizardCmd = &cobra.Command{
	Use:          "wizard",
	Short:        "Choose provider, model and transports interactively",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		values, err := wizard.Run(fetchModels)
		if err != nil {
			if errors.Is(err, wizard.ErrCancelled) {
				fmt.Fprintln(os.Stderr, "nothing saved")
				return nil
			}
			return err
		}

		runtimePath := config.GetRuntimePath()
		if err := mergeEnvFile(runtimePath, values); err != nil {
			return err
		}

		log.FromCtx(ctx).Info().
			Str("path", filepath.Join(runtimePath, ".env")).
			Str("provider", values["LLM_PROVIDER"]).
			Str("model", values["LLM_MODEL"]).
			Msg("config written")
		return nil
	},
}

// fetchModels lists models with the settings chosen in the wizard so far.
func fetchModels(ctx context.Context, vars map[string]string) ([]core.Model, error) {
	cfg, err := config.ParseProviderConfig(vars)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return provider.Models(ctx)
}

// mergeEnvFile updates keys in the runtime .env, keeping the others.
func mergeEnvFile(runtimePath string, updates map[string]string) error {
	envPath := filepath.Join(runtimePath, ".env")
	values, err := godotenv.Read(envPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", envPath, err)
		}
		values = map[string]string{}
	}
	for k, v := range updates {
		values[k] = v
	}

	if err := os.MkdirAll(runtimePath, 0700); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}
	if err := godotenv.Write(values, envPath); err != nil {
		return fmt.Errorf("write %s: %w", envPath, err)
	}
	return os.Chmod(envPath, 0600)
}

func init() {
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing .env")
	configCmd.AddCommand(configInitCmd, configSetKeyCmd, configWizardCmd)
	rootCmd.AddCommand(configCmd)
}
