package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/corepkg/extractor/internal/cli"
)

func main() {
	// A local .env can carry COREPKG_REDIS_URL, COREPKG_MONGO_URI and
	// friends; missing files are fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
