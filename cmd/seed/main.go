// Command main runs the database seeder for Conduit.
package main

import (
	"context"
	"flag"
	"log"

	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 50, "Number of users to create")
	numArticles := flag.Int("articles", 200, "Number of articles to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	fast := flag.Bool("fast", false, "Use the minimum bcrypt cost for seeded passwords")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	if *fixture != "" {
		log.Printf("Applying fixture: %s (ignoring -users and -articles)\n", *fixture)
	} else {
		log.Printf("Target: %d users, %d articles, clean=%v\n", *numUsers, *numArticles, *shouldClean)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("❌ Schema apply failed: %v", err)
	}

	opts := seed.Options{
		NumUsers:    *numUsers,
		NumArticles: *numArticles,
		ShouldClean: *shouldClean,
		RandomSeed:  *randomSeed,
		FastHash:    *fast,
	}

	var summary *seed.Summary
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("❌ Fixture load failed: %v", err)
		}
		summary, err = fx.Apply(ctx, db, opts)
		if err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
	} else {
		summary, err = seed.Seed(ctx, db, opts)
		if err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	log.Printf("✨ All done! Created %s.", summary)
	if *fixture == "" {
		log.Printf("📧 All generated users have the password: %s", seed.DefaultPassword)
	}
}
