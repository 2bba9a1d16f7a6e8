package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvService reads secrets from the process environment after loading .env
// and .env.<APP_ENV>. .env never overrides variables that are already set;
// .env.<APP_ENV> does.
type EnvService struct {
	appEnv string
	loaded []string
}

func NewEnvService(dir string) (*EnvService, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	s := &EnvService{appEnv: appEnv}

	base := joinDir(dir, ".env")
	if err := godotenv.Load(base); err == nil {
		s.loaded = append(s.loaded, base)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", base, err)
	}

	scoped := joinDir(dir, ".env."+appEnv)
	if err := godotenv.Overload(scoped); err == nil {
		s.loaded = append(s.loaded, scoped)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", scoped, err)
	}

	return s, nil
}

func (e *EnvService) AppEnv() string { return e.appEnv }

// Loaded lists the env files that were found and applied.
func (e *EnvService) Loaded() []string { return e.loaded }

func (e *EnvService) Get(key string) string {
	return os.Getenv(key)
}

func (e *EnvService) Require(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", key)
	}
	return val, nil
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e *EnvService) GetDuration(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func joinDir(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + string(os.PathSeparator) + name
}
