package main

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dataDir         = ".lfgserver"
	dbName          = "lfg.db"
	defaultJWTKey   = "e2e9b8cde02cf305bd521ff4ec987d1bb5a8627743f93db1efe15a228b4daaaa"
	defaultPassword = "letmein"
	userContextKey  = contextKey("user")
)

type contextKey string

type options struct {
	Listen     string   `long:"listen" env:"LFG_LISTEN" default:":8080" description:"address to serve the API on"`
	DataDir    string   `long:"datadir" env:"LFG_DATADIR" description:"directory holding the database (default ~/.lfgserver)"`
	JWTKey     string   `long:"jwtkey" env:"LFG_JWT_KEY" default:"e2e9b8cde02cf305bd521ff4ec987d1bb5a8627743f93db1efe15a228b4daaaa" description:"hex encoded HMAC key for session tokens"`
	Origins    []string `long:"origin" env:"LFG_ORIGINS" env-delim:"," default:"http://localhost:3000" description:"allowed CORS origin (repeatable)"`
	LoginRate  string   `long:"loginrate" env:"LFG_LOGIN_RATE" default:"10-H" description:"failed login allowance per ip and username"`
	Dev        bool     `long:"dev" env:"LFG_DEV" description:"development mode (insecure cookies)"`
	LogLevel   string   `long:"loglevel" env:"LFG_LOG_LEVEL" default:"info" description:"logrus level"`
	JSONLogger bool     `long:"jsonlog" env:"LFG_JSON_LOG" description:"emit logs as JSON"`
}

type Server struct {
	db               *gorm.DB
	r                chi.Router
	log              *logrus.Logger
	hub              *Hub
	loginRateLimiter *limiter.Limiter
	jwtKey           []byte
	devMode          bool
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger := newLogger(opts)

	db, err := initDatabase(opts.DataDir)
	if err != nil {
		logger.WithError(err).Fatal("Database initialization errored")
	}

	s, err := NewServer(db, logger, opts)
	if err != nil {
		logger.WithError(err).Fatal("Server initialization errored")
	}

	srv := &http.Server{
		Addr:        opts.Listen,
		Handler:     s.r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.WithField("addr", opts.Listen).Info("Serving API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server errored")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.WithField("signal", sig.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	s.hub.Close()
}

func newLogger(opts options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if opts.JSONLogger {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// NewServer wires the router, login limiter and bracket hub around an
// already migrated database.
func NewServer(db *gorm.DB, logger *logrus.Logger, opts options) (*Server, error) {
	keyHex := opts.JWTKey
	if keyHex == "" {
		keyHex = defaultJWTKey
	}
	jwtKey, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, errors.New("error parsing jwt key")
	}

	loginRate := opts.LoginRate
	if loginRate == "" {
		loginRate = "10-H"
	}
	rate, err := limiter.NewRateFromFormatted(loginRate)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(logMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		db:               db,
		r:                r,
		log:              logger,
		hub:              NewHub(logger),
		loginRateLimiter: limiter.New(memory.NewStore(), rate),
		jwtKey:           jwtKey,
		devMode:          opts.Dev,
	}

	r.Post("/login", s.POSTLoginHandler)
	r.Post("/logout", s.POSTLogoutHandler)
	r.Post("/auth/me", s.authMiddleware(s.POSTAuthMe))
	r.Post("/changepw", s.authMiddleware(s.POSTChangePasswordHandler))

	r.Get("/players", s.GETPlayers)
	r.Post("/players", s.authMiddleware(s.POSTPlayer))
	r.Put("/players/{id}", s.authMiddleware(s.PUTPlayer))

	r.Get("/courses", s.GETCourses)
	r.Get("/courses/{id}", s.GETCourse)
	r.Post("/courses", s.authMiddleware(s.POSTCourse))
	r.Post("/courses/import", s.authMiddleware(s.POSTImportCourse))

	r.Get("/groups", s.GETGroups)
	r.Post("/groups", s.authMiddleware(s.POSTGroup))
	r.Post("/groups/{id}/schedule", s.authMiddleware(s.POSTGroupSchedule))
	r.Put("/groups/{id}/tiebreak", s.authMiddleware(s.PUTGroupTieBreak))
	r.Get("/groups/{id}/standings", s.GETGroupStandings)
	r.Put("/groups/{id}/champion", s.authMiddleware(s.PUTGroupChampion))
	r.Delete("/groups/{id}/champion", s.authMiddleware(s.DELETEGroupChampion))
	r.Get("/standings", s.GETStandings)

	r.Post("/matches", s.authMiddleware(s.POSTMatch))
	r.Get("/matches/{id}", s.GETMatch)
	r.Put("/matches/{id}/scores", s.authMiddleware(s.PUTMatchScores))
	r.Post("/matches/{id}/complete", s.authMiddleware(s.POSTCompleteMatch))

	r.Get("/bracket", s.GETBracket)
	r.Post("/bracket", s.authMiddleware(s.POSTBracket))
	r.Put("/bracket/{round}/{slot}/winner", s.authMiddleware(s.PUTBracketWinner))
	r.Delete("/bracket/{round}/{slot}/winner", s.authMiddleware(s.DELETEBracketWinner))
	r.Get("/ws/bracket", s.GETBracketSocket)

	return s, nil
}

// Check to see if the database exists. If not create it and initialize
// it with a default admin password to be changed later.
func initDatabase(dir string) (*gorm.DB, error) {
	if dir == "" {
		// Get the OS specific home directory via the Go standard lib.
		var homeDir string
		usr, err := user.Current()
		if err == nil {
			homeDir = usr.HomeDir
		}

		// Fall back to standard HOME environment variable that works
		// for most POSIX OSes if the directory from the Go standard
		// lib failed.
		if err != nil || homeDir == "" {
			homeDir = os.Getenv("HOME")
		}
		dir = path.Join(homeDir, dataDir)
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path.Join(dir, dbName)), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := applyMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// applyMigrations migrates the schema and seeds the admin account on a
// fresh database.
func applyMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&DBCredentials{},
		&Player{},
		&Course{},
		&Group{},
		&GroupMember{},
		&Match{},
		&BracketMatch{},
	)
	if err != nil {
		return err
	}

	var creds DBCredentials
	result := db.First(&creds)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&DBCredentials{Username: "admin", PasswordHash: string(hash)}).Error
}

// Validate the JWT token. It can either been in a cookie or a header.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string

		// First try Authorization header
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		} else {
			// Fallback to auth_token cookie
			cookie, err := r.Cookie("auth_token")
			if err != nil {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}
			tokenStr = cookie.Value
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return s.jwtKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Token is valid, proceed
		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// logMiddleware logs method, path, status and duration of each request.
func logMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP request")
		})
	}
}
