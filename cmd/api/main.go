package main

import (
	"net/http"

	"tutorflow/internal/api"
	"tutorflow/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()

	h := api.NewServer(cfg, log)
	log.Infow("tutorflow api listening", "addr", cfg.APIAddr, "llm_providers", cfg.LLMProviders, "search_providers", cfg.SearchProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
