package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads variables from a .env file into the process
// environment. The first call wins; later calls are no-ops. Existing
// variables are left untouched unless INDEKSAI_DOTENV_OVERLOAD=1.
//
// INDEKSAI_ENV_FILE selects the file (default ./.env) and
// INDEKSAI_NO_DOTENV=1 disables loading entirely.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv(EnvPrefix+"_NO_DOTENV") == "1" {
		return
	}

	path := ".env"
	if envFile := os.Getenv(EnvPrefix + "_ENV_FILE"); envFile != "" {
		path = envFile
	}
	if !fileExists(path) {
		return
	}

	if os.Getenv(EnvPrefix+"_DOTENV_OVERLOAD") == "1" {
		_ = godotenv.Overload(path)
		return
	}
	_ = godotenv.Load(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
