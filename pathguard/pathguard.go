// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package pathguard

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrUnsafePath = errors.New("unsafe path")

// builtinPatterns can never be weakened by deployment configuration. An
// automated update must not be able to touch secrets, its own state record,
// build and framework configuration, lockfiles, migrations, VCS internals or
// any of the scratch/backup/log locations the updater itself manages.
var builtinPatterns = []string{
	".env",
	".env.*",
	"vozsmart.config.json",
	"next.config.js",
	"next.config.mjs",
	"tailwind.config.js",
	"tailwind.config.ts",
	"postcss.config.js",
	"tsconfig.json",
	"package.json",
	"package-lock.json",
	"pnpm-lock.yaml",
	"yarn.lock",
	"vercel.json",
	"supabase/migrations/**",
	".git/**",
	".vozsmart-backups/**",
	".vercel/**",
	".next/**",
	"node_modules/**",
	"tmp/**",
	"*.log",
	"logs/**",
}

// Normalize validates an untrusted repository-relative path and returns its
// canonical form: forward slashes only, no leading separator, no redundant
// segments. It is conservative rather than path-algebra-aware: any path
// containing a ".." segment is rejected outright, even one that would
// resolve inside the root.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}

	p := strings.ReplaceAll(raw, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, raw)
	}
	// Windows drive prefix also counts as absolute.
	if len(p) > 1 && p[1] == ':' {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, raw)
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: parent traversal in %q", ErrUnsafePath, raw)
		}
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: NUL byte in path", ErrUnsafePath)
	}

	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == "" || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("%w: %q escapes the root", ErrUnsafePath, raw)
	}

	return cleaned, nil
}

// IsProtected reports whether a normalized path must never be written by an
// automated update. The built-in set is checked first and is final; the
// configured patterns are layered on top.
func IsProtected(normalized string, configured []string) bool {
	for _, pattern := range builtinPatterns {
		if matches(pattern, normalized) {
			return true
		}
	}
	for _, pattern := range configured {
		if matches(pattern, normalized) {
			return true
		}
	}
	return false
}

// matches performs an anchored full-path glob match: * spans within a
// segment, ** spans across segments, ? matches a single character.
func matches(pattern, p string) bool {
	ok, err := doublestar.Match(pattern, p)
	if err != nil {
		// A malformed pattern never grants access; treat it as non-matching
		// for configured patterns and rely on the rest of the list.
		return false
	}
	return ok
}

// Validation is the outcome of screening a manifest's file list.
type Validation struct {
	Valid   bool
	Blocked []string
}

// ValidateFileList classifies every candidate path against the protection
// policy. Blocked entries carry the original, pre-normalization strings in
// input order so callers can report exactly what the manifest asked for.
// A path that fails normalization is blocked (fail closed).
func ValidateFileList(files []string, configured []string) Validation {
	result := Validation{Valid: true}

	for _, raw := range files {
		normalized, err := Normalize(raw)
		if err != nil {
			result.Blocked = append(result.Blocked, raw)
			continue
		}
		if IsProtected(normalized, configured) {
			result.Blocked = append(result.Blocked, raw)
		}
	}

	result.Valid = len(result.Blocked) == 0
	return result
}
