package main

import (
	"testing"

	_ "github.com/cologne-noir/decant/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	main()
}
