package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a source carries neither a value nor a file.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes where a secret such as an API key comes from.
type Source struct {
	// Name gives context in error messages, e.g. "gemini api key".
	Name string
	// Value is an inline secret from configuration or the environment.
	Value string
	// File points to a file holding the secret. It wins over Value.
	File string
}

// Configured reports whether the source names any place to read a secret from.
func (s Source) Configured() bool {
	return strings.TrimSpace(s.File) != "" || strings.TrimSpace(s.Value) != ""
}

// Load resolves the secret. The result is trimmed. ErrNotConfigured is
// wrapped when the source is empty; a named file that is missing or blank is
// a hard error.
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

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}

	return secret, nil
}
