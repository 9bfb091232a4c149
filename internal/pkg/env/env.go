package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds the values read from the .env file at startup.
var Env map[string]string

// GetEnv resolves key from the loaded .env file first, then from the
// process environment (Docker and CI set variables there), then falls back
// to def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetBool resolves key as a boolean flag. Unset or unparseable values
// resolve to def.
func GetBool(key string, def bool) bool {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// SetupEnvFile loads the nearest .env file. The search covers the working
// directory and the repo root as seen from the binaries under cmd/.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	panic("no .env file found in the working directory or repo root")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
