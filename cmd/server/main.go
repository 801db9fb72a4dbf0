package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "pestcrm/internal/adapters/web"
	"pestcrm/internal/ai"
	"pestcrm/internal/app"
	"pestcrm/internal/core"
	"pestcrm/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	visitService := core.NewVisitService(pool)
	pricingService := core.NewPricingService(pool)
	calendar := app.NewCalendarService(visitService, pricingService, nil)

	var summarize webAdapter.SummarizeFunc
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set, summary endpoint disabled")
	} else {
		summarizer := ai.NewSummarizer(apiKey)
		summarize = func(ctx context.Context, result *app.CalendarResult) (any, error) {
			return summarizer.Summarize(ctx, result)
		}
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(calendar, summarize, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
