package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miracckms/Couse-Selector-Advance/internal/fakeapi"
	"github.com/miracckms/Couse-Selector-Advance/internal/logger"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	accessTTL := flag.Duration("access-ttl", time.Minute, "Lifetime of issued access tokens")
	username := flag.String("user", "demo", "Username of the seeded account")
	password := flag.String("password", "demo123", "Password of the seeded account")
	flag.Parse()

	log, err := logger.New(logger.Options{Env: os.Getenv("ENV"), Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		log = logger.NewDevelopment(os.Stderr)
		log.Warn().Err(err).Msg("Falling back to default log level")
	}
	if !logger.IsDevelopment(os.Getenv("ENV")) {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := fakeapi.New(fakeapi.Options{
		AccessTTL: *accessTTL,
		Secret:    []byte(os.Getenv("FAKEAPI_SECRET")),
		Logger:    &log,
	})
	srv.AddUser(*username, *password, *username+"@example.edu")

	log.Info().
		Str("addr", *addr).
		Str("user", *username).
		Dur("access_ttl", *accessTTL).
		Msg("🚀 Starting fake course-selector backend")

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Fatal().Err(httpServer.ListenAndServe()).Msg("Server failed to start")
}
