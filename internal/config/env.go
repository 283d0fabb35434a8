package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

var envFileNames = []string{".env", ".env.local"}

// LoadEnvFiles loads the first .env/.env.local found in dir.
// Existing process environment variables are not overwritten.
// It returns the loaded file path, or "" when none exists.
func LoadEnvFiles(dir string) (string, error) {
	for _, name := range envFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load env file").
				WithContext("path", path).
				Build()
		}
		return path, nil
	}
	return "", nil
}
