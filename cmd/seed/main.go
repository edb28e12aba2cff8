// Command seed inserts sample content into the database so a fresh
// deployment has something to browse.
package main

import (
	"log"
	"log/slog"
	"os"

	"bookreader/internal/app"
	"bookreader/internal/config"
	"bookreader/internal/util"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.InitLogger(cfg.LogLevel)

	core, err := app.New(app.Config{
		DatabaseURL:       cfg.DatabaseURL,
		JWTSecret:         cfg.JWTSecret,
		RegistrationToken: cfg.RegistrationToken,
		UploadDir:         cfg.UploadDir,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	book, err := core.SeedSampleData()
	if err != nil {
		log.Fatalf("failed to seed sample data: %v", err)
	}
	slog.Info("sample book added", "id", book.ID, "title", book.Title)
}
