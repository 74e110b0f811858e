package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"siteops-backend/internal/config"
	"siteops-backend/internal/database"
	"siteops-backend/internal/handlers"
	"siteops-backend/internal/middleware"
	"siteops-backend/internal/safety"
	"siteops-backend/internal/services"
	"siteops-backend/internal/store"
	"siteops-backend/internal/websocket"
	"siteops-backend/pkg/utils"
)

const banner = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func fatal(title string, err error, hints ...string) {
	log.Println(banner)
	log.Printf("❌ FATAL ERROR: %s", title)
	log.Printf("   Error: %v", err)
	for _, h := range hints {
		log.Printf("   %s", h)
	}
	log.Println(banner)
	log.Fatal(err)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SITEOPS BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	config.LoadDotEnv()
	cfg, err := config.FromEnv()
	if err != nil {
		fatal("Invalid configuration", err)
	}
	if cfg.JWTSecret == "" {
		log.Println("⚠️  APP_JWT_SECRET not set, authenticated routes will return 500")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Users and FCM tokens always live in SQL, whatever the store backend
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		fatal("Database connection failed", err,
			"This is usually caused by:",
			"1. Wrong DATABASE_URL format",
			"2. PostgreSQL service is down",
			"3. Invalid credentials")
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		fatal("Database migrations failed", err)
	}
	log.Println("✅ Database migrations completed")

	log.Println("🌱 Seeding users...")
	if err := database.SeedUsers(db); err != nil {
		fatal("User seeding failed", err)
	}
	log.Println("✅ Users seeded successfully")

	st, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		fatal("Entity store unavailable", err)
	}
	defer closeStore()
	if err := st.InitializeDefaults(ctx); err != nil {
		fatal("Seeding site collections failed", err)
	}
	log.Printf("✅ Entity store ready (%s backend)", cfg.StoreBackend)

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	sinks := []safety.CueSink{wsHub}
	monitorOpts := []safety.Option{safety.WithFeedListener(wsHub.PublishAlerts)}

	if fcmService := initFCM(cfg, db); fcmService != nil {
		sinks = append(sinks, fcmService)
	}

	if cfg.KafkaBrokers != "" {
		publisher := services.NewAlertEventPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		monitorOpts = append(monitorOpts, safety.WithEventSink(publisher))
		log.Printf("✅ Alert events publishing to Kafka (%s)", cfg.KafkaBrokers)
	}

	monitorOpts = append(monitorOpts, safety.WithCueSinks(sinks...))
	monitor := safety.NewMonitor(cfg.Safety, st, monitorOpts...)
	monitor.Start(ctx)
	defer monitor.Stop()
	log.Printf("✅ Safety monitor running every %v", cfg.Safety.Interval)

	if cfg.MQTTBroker != "" {
		ingest := services.NewTelemetryIngest(st, publishPosition(ctx, st, wsHub))
		clientID := "siteops-backend-" + uuid.New().String()[:8]
		if err := ingest.Connect(cfg.MQTTBroker, clientID, cfg.MQTTTopic); err != nil {
			log.Printf("⚠️  MQTT telemetry disabled: %v", err)
		} else {
			defer ingest.Close()
			log.Printf("✅ Telemetry ingest subscribed on %s", cfg.MQTTBroker)
		}
	}

	cache := services.NewTranscriptCache(100, 24*time.Hour)
	go cache.RunCleanup(ctx, time.Hour)
	transcriber := services.NewTranscriptionService(
		services.FFmpegExtractor{Path: cfg.FFmpegPath},
		services.NewSpeechClient(cfg.STTAPIKey, cfg.STTBaseURL),
		cfg.TempDir,
		cache,
	)
	if deps := transcriber.CheckDependencies(); !deps.Ready {
		log.Printf("⚠️  Transcription not ready: %v", deps.Issues)
	}

	var completer services.Completer
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			log.Printf("⚠️  Chat disabled: %v", err)
		} else {
			completer = gemini
			log.Println("✅ Gemini chat client initialized")
		}
	} else {
		log.Println("⚠️  GEMINI_API_KEY not set, chat disabled")
	}
	chat := services.NewChatService(completer)

	tasks := services.NewTaskService(st)
	prioritizer := services.NewTaskPrioritizer()

	r := newRouter(routerDeps{
		ctx:         ctx,
		cfg:         cfg,
		db:          db,
		store:       st,
		hub:         wsHub,
		monitor:     monitor,
		tasks:       tasks,
		prioritizer: prioritizer,
		transcriber: transcriber,
		chat:        chat,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed to start", err, "Port: "+cfg.Port)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Shutdown error: %v", err)
	}
	log.Println("👋 Server stopped")
}

// openStore picks the collection backend named by STORE_BACKEND
func openStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store.New(store.NewRedisBackend(client, cfg.RedisPrefix)), func() { client.Close() }, nil
	case config.StoreMemory:
		log.Println("⚠️  Memory store selected, site data is lost on restart")
		return store.New(store.NewMemoryBackend()), func() {}, nil
	default:
		return store.New(store.NewSQLBackend(db)), func() {}, nil
	}
}

// initFCM returns nil when push notifications are not configured
func initFCM(cfg *config.Config, db *sqlx.DB) *services.FCMService {
	tokens := func(ctx context.Context) ([]string, error) {
		return database.TokensForRoles(ctx, db, "supervisor", "admin")
	}

	if cfg.FirebaseCredentialsBase64 != "" {
		svc, err := services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64, tokens)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return svc
	}

	file := cfg.FirebaseCredentialsFile
	if file == "" {
		file = "./firebase-service-account.json"
	}
	if _, err := os.Stat(file); err != nil {
		log.Printf("⚠️  No Firebase credentials at %s (push notifications disabled)", file)
		return nil
	}
	svc, err := services.NewFCMService(file, tokens)
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
		return nil
	}
	log.Println("✅ Firebase Cloud Messaging initialized from file")
	return svc
}

// publishPosition forwards telemetry moves to websocket clients
func publishPosition(ctx context.Context, st *store.Store, hub *websocket.Hub) func(services.PositionUpdate) {
	return func(update services.PositionUpdate) {
		switch update.Kind {
		case "operators":
			if op, err := st.Operator(ctx, update.ID); err == nil {
				hub.PublishOperatorLocation(*op)
			}
		case "machines":
			if m, err := st.Machine(ctx, update.ID); err == nil {
				hub.PublishMachineLocation(*m)
			}
		}
	}
}

type routerDeps struct {
	ctx         context.Context
	cfg         *config.Config
	db          *sqlx.DB
	store       *store.Store
	hub         *websocket.Hub
	monitor     *safety.Monitor
	tasks       *services.TaskService
	prioritizer *services.TaskPrioritizer
	transcriber *services.TranscriptionService
	chat        *services.ChatService
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(d.hub, d.store))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(d.transcriber))
		r.Post("/auth/login", handlers.Login(d.db))
		r.Get("/video-info/{filename}", handlers.VideoInfo(d.cfg.PublicDir))

		// Diagnostic logging endpoint (no auth required for easier debugging)
		r.Post("/logs/diagnostic", handlers.ReceiveDiagnosticLog())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.AuthStatus())
			r.Post("/me/fcm-token", handlers.RegisterFCMToken(d.db))
			r.Delete("/me/fcm-token", handlers.DeleteFCMToken(d.db))

			r.Get("/operators", handlers.ListOperators(d.store))
			r.Get("/operators/{id}", handlers.GetOperator(d.store))
			r.Patch("/operators/{id}/location", handlers.UpdateOperatorLocation(d.store, d.hub))
			r.Get("/operators/{id}/nearby-tasks", handlers.NearbyTasks(d.store, d.prioritizer))
			r.Get("/operators/{id}/task-route", handlers.TaskRoute(d.store, d.prioritizer))

			r.Get("/machines", handlers.ListMachines(d.store))
			r.Get("/machines/{id}", handlers.GetMachine(d.store))
			r.Patch("/machines/{id}/location", handlers.UpdateMachineLocation(d.store, d.hub))

			r.Get("/locations", handlers.ListLocations(d.store))
			r.Get("/locations/distance", handlers.LocationDistance(d.store))
			r.Get("/incidents", handlers.ListIncidents(d.store))

			r.Get("/tasks", handlers.ListTasks(d.tasks))
			r.Post("/tasks", handlers.CreateTask(d.tasks))
			r.Get("/tasks/{id}", handlers.GetTask(d.tasks))
			r.Patch("/tasks/{id}", handlers.UpdateTask(d.tasks))
			r.Post("/tasks/{id}/status", handlers.ChangeTaskStatus(d.tasks))
			r.Post("/tasks/{id}/progress", handlers.UpdateTaskProgress(d.tasks))
			r.Get("/analytics/tasks", handlers.GetTaskAnalytics(d.tasks))

			r.Get("/safety/config", handlers.SafetyConfig(d.monitor))
			r.Get("/safety/status", handlers.SafetyStatus(d.monitor))
			r.Post("/safety/check", handlers.CheckNow(d.monitor))
			r.Get("/safety/alerts", handlers.ListAlerts(d.monitor))
			r.Delete("/safety/alerts/{id}", handlers.DismissAlert(d.monitor))
			r.Post("/safety/alerts/{id}/emergency", handlers.EmergencyStop(d.monitor))
			r.Post("/safety/alerts/{id}/move-to-safety", handlers.MoveToSafety(d.monitor))

			r.Post("/transcribe-video", handlers.TranscribeVideo(d.transcriber, d.cfg.PublicDir))
			r.Post("/chat", handlers.Chat(d.chat))

			// Supervisor endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("supervisor", "admin"))

				r.Post("/operators", handlers.CreateOperator(d.store))
				r.Patch("/machines/{id}/status", handlers.UpdateMachineStatus(d.store))
				r.Delete("/tasks/{id}", handlers.DeleteTask(d.tasks))
				r.Post("/tasks/{id}/reassign", handlers.ReassignTask(d.tasks))
				r.Post("/safety/monitoring/start", handlers.StartMonitoring(d.ctx, d.monitor))
				r.Post("/safety/monitoring/stop", handlers.StopMonitoring(d.monitor))
				r.Delete("/safety/alerts", handlers.ClearAlerts(d.monitor))
			})

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))

				r.Post("/users", handlers.CreateUser(d.db))
				r.Post("/admin/reset-data", handlers.ResetData(d.store, d.monitor))
			})
		})
	})

	return r
}
