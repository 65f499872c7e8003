package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/psds-microservice/raffle-service/internal/config"
	"github.com/psds-microservice/raffle-service/internal/database"
	"github.com/psds-microservice/raffle-service/internal/model"
	"github.com/psds-microservice/raffle-service/internal/service"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo raffle if the raffles table is empty",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	conn, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	var count int64
	if err := conn.Model(&model.Raffle{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count raffles: %w", err)
	}
	if count > 0 {
		log.Printf("seed: %d raffles already exist, nothing to do", count)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	raffle, err := service.NewRaffleService(conn).Create(ctx, service.CreateRaffleInput{
		Name:         "Demo Raffle",
		Description:  "Seeded raffle for local development",
		TicketPrice:  50,
		TotalTickets: 100,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, 30),
	})
	if err != nil {
		return fmt.Errorf("create raffle: %w", err)
	}
	log.Printf("seed: created raffle %s (slug %s, %d tickets at %.2f)",
		raffle.ID, raffle.Slug, raffle.TotalTickets, raffle.TicketPrice)
	return nil
}
