package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Credentials usually live in a .env next to the proxy; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
