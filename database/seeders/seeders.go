package seeders

import (
	"log"

	"schoolsync_go/config"
	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedPortalIntegration()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers creates the default admin account on first boot.
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	hashed, err := utils.HashPassword("admin123")
	if err != nil {
		log.Printf("Error hashing default admin password: %v", err)
		return
	}

	admin := models.User{
		Username: "admin",
		Password: hashed,
		Role:     "admin",
		Status:   "active",
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		log.Printf("Error seeding admin user: %v", err)
		return
	}

	log.Println("Users seeded successfully")
}

// SeedPortalIntegration creates the portal integration row from the
// environment when credentials were provided and no row exists yet.
func SeedPortalIntegration() {
	if config.AppConfig.PortalLogin == "" || config.AppConfig.PortalPassword == "" {
		log.Println("Portal credentials not configured, skipping integration seed")
		return
	}

	var count int64
	database.DB.Model(&models.Integration{}).Where("service = ?", "portal").Count(&count)
	if count > 0 {
		log.Println("Portal integration already seeded, skipping...")
		return
	}

	integ := models.Integration{
		Service:     "portal",
		Login:       config.AppConfig.PortalLogin,
		PasswordEnc: config.AppConfig.PortalPassword,
	}
	if err := database.DB.Create(&integ).Error; err != nil {
		log.Printf("Error seeding portal integration: %v", err)
		return
	}

	log.Println("Portal integration seeded successfully")
}
