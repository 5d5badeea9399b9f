package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret (Gemini api key, Redis password) comes from.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration.
	Value string
	// Env names an environment variable holding the secret.
	Env string
	// File points to a file containing the secret value.
	File string
}

// Load resolves the secret with precedence File, Env, Value. The result is trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

// Optional is Load for secrets that may be legitimately absent: an unconfigured
// source yields an empty string and no error.
func Optional(src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(src.Value) == "" &&
		(strings.TrimSpace(src.Env) == "" || strings.TrimSpace(os.Getenv(src.Env)) == "") {
		return "", nil
	}
	return Load(src)
}
