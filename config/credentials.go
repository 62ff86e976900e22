// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package config

// Credentials holds the secrets the synchronizer may need: a GitHub token
// for remote-mode commits and git basic auth for private template
// repositories. The zero value is safe for public templates in filesystem
// mode.
type Credentials struct {
	GitHubToken string `yaml:"githubToken"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}
