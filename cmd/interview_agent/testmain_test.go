package main

import (
	"testing"

	"github.com/joho/godotenv"
	"go.uber.org/goleak"
)

// TestMain loads .env if available and checks for leaked goroutines.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	goleak.VerifyTestMain(m)
}
