// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. An environment variable, when set, wins over
// the file.
//
// Supported key files: anthropic-api-key, openai-api-key, logfire-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/inference"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Key files and the environment variables that override them.
const (
	AnthropicKeyFile = "anthropic-api-key"
	OpenAIKeyFile    = "openai-api-key"
	LogfireTokenFile = "logfire-token"

	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
	OpenAIKeyEnv    = "OPENAI_API_KEY"
	LogfireTokenEnv = "LOGFIRE_TOKEN"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning but do not abort.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the value of env if set, otherwise secrets[file].
func Lookup(secrets map[string]string, file, env string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return secrets[file]
}

// APIKeys collects the inference provider keys from secrets and the environment.
func APIKeys(secrets map[string]string) inference.Keys {
	return inference.Keys{
		Anthropic: Lookup(secrets, AnthropicKeyFile, AnthropicKeyEnv),
		OpenAI:    Lookup(secrets, OpenAIKeyFile, OpenAIKeyEnv),
	}
}
