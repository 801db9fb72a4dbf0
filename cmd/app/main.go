package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"

	"pestcrm/internal/ai"
	"pestcrm/internal/app"
	"pestcrm/internal/core"
	"pestcrm/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 4 {
		log.Fatal("Usage: app <calendar|schedules|summarize> <year> <month>")
	}

	year, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("invalid year %q", os.Args[2])
	}
	month, err := strconv.Atoi(os.Args[3])
	if err != nil || month < 1 || month > 12 {
		log.Fatalf("invalid month %q", os.Args[3])
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	calendar := app.NewCalendarService(core.NewVisitService(pool), core.NewPricingService(pool), nil)
	req := app.CalendarRequest{Year: year, Month: month}

	result, err := calendar.Refresh(ctx, req)
	if err != nil {
		log.Fatalf("calendar pass failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch os.Args[1] {
	case "calendar":
		enc.Encode(result)

	case "schedules":
		enc.Encode(result.Schedules)

	case "summarize":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			log.Fatal("OPENAI_API_KEY is not set")
		}
		digest, err := ai.NewSummarizer(apiKey).Summarize(ctx, result)
		if err != nil {
			log.Fatalf("Summary failed: %v", err)
		}
		enc.Encode(digest)

	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}
