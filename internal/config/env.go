package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the given files (default .env).
// Variables already present in the process environment are not overwritten.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		log.Printf("[CONFIG] %s not loaded: %v", strings.Join(paths, ","), err)
		return
	}
	log.Printf("[CONFIG] loaded %s", strings.Join(paths, ","))
}
