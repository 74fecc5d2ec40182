package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// findDotEnv returns the first .env file in dir or one of its parents, or ""
// when there is none.
func findDotEnv(dir string) string {
	for {
		path := filepath.Join(dir, ".env")
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadDotEnv exports the variables of the nearest .env at or above dir into
// the process environment. Variables already set are left alone. Keys are
// upper-cased since viper folds them to lower case. It returns the file
// used, "" when none was found.
func loadDotEnv(dir string) (string, error) {
	path := findDotEnv(dir)
	if path == "" {
		return "", nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return path, fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return path, fmt.Errorf("set %s from %s: %w", name, path, err)
		}
	}
	return path, nil
}
