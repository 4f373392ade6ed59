package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/smarttransit/bus-ticketing/internal/utils"
)

func main() {
	var adminPassword string
	flag.StringVar(&adminPassword, "admin-password", "", "admin password to hash for ADMIN_PASSWORD_HASH (optional)")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the bus ticketing backend")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)

	if adminPassword != "" {
		hash, err := utils.HashPassword(adminPassword)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		// Single quotes keep the $ segments of the bcrypt hash intact in shells
		fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
	} else {
		fmt.Println()
		fmt.Println("Pass -admin-password to also generate ADMIN_PASSWORD_HASH.")
	}

	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
