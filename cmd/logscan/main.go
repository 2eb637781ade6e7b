// Command logscan analyzes activity-log files offline and generates sample
// logs for the worker.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// optional; the worker's .env also carries the DETECTION_* settings
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
