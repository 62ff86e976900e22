// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"log/slog"
	"os"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/VozzyUp/vozzysmartoficial/config"
	"github.com/VozzyUp/vozzysmartoficial/updater"
)

const (
	configFileKey       = "config-file"
	rootDirKey          = "root-dir"
	credentialsFileKey  = "credentials-file"
	listenAddrKey       = "listen-addr"
	apiKeyKey           = "api-key"
	deployRepositoryKey = "deploy-repository"
	deployBranchKey     = "deploy-branch"
	deployHookKey       = "vercel-deploy-hook"
	webhookKey          = "webhook-url"
	logLevelKey         = "log-level"
	logFormatKey        = "log-format"
)

func New(fs afero.Fs) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "vozsmart-sync",
		Short: "vozsmart-sync keeps a VozSmart dashboard deployment in step with its template repository",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// config must be loaded here; cobra parses flags only once
			// Execute() runs.
			return initializeConfig()
		},
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	rootCmd.PersistentFlags().String(configFileKey, "", "path to configuration file")
	rootCmd.PersistentFlags().String(rootDirKey, workDir, "application root the template lives under")
	rootCmd.PersistentFlags().String(credentialsFileKey, "", "path to credentials file")
	rootCmd.PersistentFlags().String(listenAddrKey, ":8090", "address the update API listens on")
	rootCmd.PersistentFlags().String(apiKeyKey, "", "api key the update API requires from callers")
	rootCmd.PersistentFlags().String(deployRepositoryKey, "", "owner/name of the deployment's repository; enables remote mode")
	rootCmd.PersistentFlags().String(deployBranchKey, "main", "branch updates are committed to in remote mode")
	rootCmd.PersistentFlags().String(deployHookKey, "", "vercel deploy hook url")
	rootCmd.PersistentFlags().String(webhookKey, "", "redeploy webhook url, used when no deploy hook is set")
	rootCmd.PersistentFlags().String(logLevelKey, "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(logFormatKey, "console", "log format (console, json)")

	keys := []string{
		configFileKey, rootDirKey, credentialsFileKey, listenAddrKey,
		apiKeyKey, deployRepositoryKey, deployBranchKey, deployHookKey,
		webhookKey, logLevelKey, logFormatKey,
	}
	var errs []error
	for _, key := range keys {
		errs = append(errs, viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	rootCmd.AddCommand(
		check(fs),
		apply(fs),
		serve(fs),
	)

	return rootCmd, nil
}

// initializes config from file, if available.
func initializeConfig() error {
	if viper.IsSet(configFileKey) {
		cfgFile := os.ExpandEnv(viper.GetString(configFileKey))
		viper.SetConfigFile(cfgFile)

		return viper.ReadInConfig()
	}

	return nil
}

// Template repositories may be private; the zero value for credentials is
// safe to use for public ones.
func initCredentials() (config.Credentials, error) {
	result := config.Credentials{}

	if viper.IsSet(credentialsFileKey) {
		bytes, err := os.ReadFile(viper.GetString(credentialsFileKey))
		if err != nil {
			return result, err
		}
		if err := yaml.Unmarshal(bytes, &result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func initUpdater(fs afero.Fs) (*updater.Updater, error) {
	credentials, err := initCredentials()
	if err != nil {
		return nil, err
	}

	return updater.New(updater.Config{
		RootDir: viper.GetString(rootDirKey),
		Auth: githttp.BasicAuth{
			Username: credentials.Username,
			Password: credentials.Password,
		},
		GitHubToken:         credentials.GitHubToken,
		DeployRepository:    viper.GetString(deployRepositoryKey),
		DeployBranch:        viper.GetString(deployBranchKey),
		VercelDeployHookURL: viper.GetString(deployHookKey),
		WebhookURL:          viper.GetString(webhookKey),
		Fs:                  fs,
		Log:                 initLogger(),
	})
}

func initLogger() *slog.Logger {
	return config.NewLogger(viper.GetString(logLevelKey), viper.GetString(logFormatKey))
}
