package config

import (
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv seeds process environment variables from a .env file in
// dir, the same best-effort `_ = godotenv.Load()` idiom the example
// pack's CLI entry points run before anything else — a missing .env is
// not an error, it just means credentials come from the OS environment
// directly.
func LoadDotEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
}
