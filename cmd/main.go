package main

import (
	"log"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cart service: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Cart service stopped with error: %v", err)
	}
}
