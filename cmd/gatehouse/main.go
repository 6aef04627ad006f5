package main

import (
	"log"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/app"

	// Event time zones are validated with time.LoadLocation; the runtime
	// image ships without a zoneinfo database.
	_ "time/tzdata"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
