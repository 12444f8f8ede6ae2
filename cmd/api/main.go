package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/AAlperA/PriceTrack/internal/metrics"
	"github.com/AAlperA/PriceTrack/internal/modules/auth"
	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
	"github.com/AAlperA/PriceTrack/internal/modules/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("(?) No .env file found, using system environment")
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	log.Println("(✓) Connected to PostgreSQL database")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("(✗) JWT_SECRET is required")
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	user.NewHandler(userService).RegisterRoutes(router)

	authService := auth.NewService(userRepo, jwtSecret)
	auth.NewHandler(authService).RegisterRoutes(router)

	catalogRepo := catalog.NewPostgresRepository(db)
	catalog.NewHandler(catalogRepo).RegisterRoutes(router, auth.RequireAuth(jwtSecret))

	router.Handle("/metrics", metrics.Handler())

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("PriceTrack API server starting on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
