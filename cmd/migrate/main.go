package main

import (
	"log"

	"misbah-schools/app/config"
	"misbah-schools/app/database"
)

// Applies the tracking schema without starting the server, for fresh
// deployments and CI databases.
func main() {
	config.InitDB()
	defer config.GetDB().Close()

	if err := database.RunMigrations(config.GetDB()); err != nil {
		log.Fatal("Migration failed:", err)
	}
	log.Println("Migrations applied successfully")
}
