package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"JamLoop/cache"
	"JamLoop/config"
	"JamLoop/core/auth"
	"JamLoop/core/mixdown"
	"JamLoop/core/room"
	"JamLoop/db"
	"JamLoop/logger"
	"JamLoop/model"
	"JamLoop/repository"
	"JamLoop/storage"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
)

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxMB,
		MaxBackups: 5,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.Connect(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	if err := db.AutoMigrate(&model.User{}, &model.Room{}, &model.Loop{}, &model.Mixdown{}); err != nil {
		logger.Fatal("Failed to migrate database schema", logger.ErrorField(err))
	}

	userRepo := repository.NewGormUserRepository(db.DB)
	roomRepo := repository.NewGormRoomRepository(db.DB)
	loopRepo := repository.NewGormLoopRepository(db.DB)
	mixdownRepo := repository.NewGormMixdownRepository(db.DB)

	blobs := storage.NewBlobStore(cfg)
	loopCache := cache.NewLoopCache()

	hub := room.NewHub()
	go hub.Run()
	defer hub.Stop()

	engine := mixdown.NewEngine(blobs, mixdown.NewSniffDecoder(cfg.FFmpegPath))

	apiHandler := NewAPIHandler(cfg, userRepo, roomRepo, loopRepo, mixdownRepo,
		blobs, loopCache, hub, engine)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Authentication
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Rooms
	router.HandleFunc("/api/rooms", apiHandler.AuthMiddleware(apiHandler.CreateRoomHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms", apiHandler.AuthMiddleware(apiHandler.ListRoomsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/join", apiHandler.AuthMiddleware(apiHandler.JoinRoomHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{roomId}", apiHandler.AuthMiddleware(apiHandler.GetRoomHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{roomId}", apiHandler.AuthMiddleware(apiHandler.UpdateRoomHandler)).Methods(http.MethodPatch)

	// Loops
	router.HandleFunc("/api/loops", apiHandler.AuthMiddleware(apiHandler.UploadLoopHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/loops", apiHandler.AuthMiddleware(apiHandler.ListLoopsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/loops/{loopId}", apiHandler.AuthMiddleware(apiHandler.UpdateLoopHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/loops/{loopId}", apiHandler.AuthMiddleware(apiHandler.DeleteLoopHandler)).Methods(http.MethodDelete)

	// Mixdowns
	router.HandleFunc("/api/rooms/{roomId}/mixdown", apiHandler.AuthMiddleware(apiHandler.RenderMixdownHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/mixdowns", apiHandler.AuthMiddleware(apiHandler.ListMixdownsHandler)).Methods(http.MethodGet)

	// Room event feed
	router.HandleFunc("/ws/rooms/{roomId}", apiHandler.RoomEventsHandler).Methods(http.MethodGet)

	// Serve stored blobs straight out of MinIO.
	router.PathPrefix("/blobs/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/blobs/")
		client := storage.GetMinioClient()
		if client == nil {
			http.Error(w, "Storage not available", http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		object, err := client.GetObject(ctx, cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", blobContentType(objectPath))
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// Object keys are UUIDs, so contents never change under a key.
		w.Header().Set("Cache-Control", "public, max-age=31536000")

		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("Error serving blob", logger.String("key", objectPath), logger.ErrorField(err))
		}
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

func blobContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(key, ".webm"):
		return "audio/webm"
	case strings.HasSuffix(key, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(key, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(key, ".m4a"):
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
