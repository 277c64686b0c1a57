package main

import (
	"log/slog"
	"os"

	"homesync/internal/app"
)

// @title        HomeSync API
// @version      1.0
// @description  Account registration, email verification and login.
// @BasePath     /
func main() {
	if err := app.Run(); err != nil {
		slog.Error("homesync stopped", "err", err)
		os.Exit(1)
	}
}
