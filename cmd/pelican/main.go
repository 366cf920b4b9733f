package main

import (
	"log"

	"github.com/MrSnakeDoc/pelican/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ pelican failed: %v", err)
	}
}
