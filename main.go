// Command mummymaze starts the Mummy Maze play and solver server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, level and session directories, the optional Redis
// solution cache, solver bounds, debug logging and ngrok tunneling. Every
// flag falls back to an environment variable, and a .env file is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/mummymaze/api"
	"github.com/wricardo/mcp-training/mummymaze/game/cache"
	"github.com/wricardo/mcp-training/mummymaze/game/engine"
	"github.com/wricardo/mcp-training/mummymaze/game/level"
	"github.com/wricardo/mcp-training/mummymaze/game/service"
	"github.com/wricardo/mcp-training/mummymaze/game/session"
	"github.com/wricardo/mcp-training/mummymaze/game/solver"
	"github.com/wricardo/mcp-training/mummymaze/transport/mcp"
	"github.com/wricardo/mcp-training/mummymaze/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mummy Maze Server"
)

// Session housekeeping intervals
const (
	sessionMaxAge       = 24 * time.Hour
	cleanupInterval     = time.Hour
	filesystemSyncEvery = 5 * time.Second
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port          = flag.Int("port", 8080, "HTTP server port")
	host          = flag.String("host", "localhost", "HTTP server host")
	levelsDir     = flag.String("levels-dir", "levels", "Directory containing level files")
	sessionsDir   = flag.String("sessions-dir", "sessions", "Directory for persisted sessions")
	redisAddr     = flag.String("redis", "", "Redis address or redis:// URL for the shared solution cache")
	redisTTL      = flag.Duration("redis-ttl", 0, "Expiry of cached solutions, 0 keeps them")
	maxExpansions = flag.Int("max-expansions", solver.DefaultMaxExpansions, "Solver node budget")
	maxDepth      = flag.Int("max-depth", engine.DefaultMaxDepth, "Solver depth bound in turns")
	solveTimeout  = flag.Duration("solve-timeout", service.DefaultSolveTimeout, "Wall-clock bound per solve")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	version       = flag.Bool("version", false, "Show version information")
	ngrokEnabled  = flag.Bool("ngrok", false, "Enable ngrok tunnel (NGROK_ENABLED)")
	ngrokAuth     = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain   = flag.String("ngrok-domain", "", "Custom ngrok domain (NGROK_DOMAIN)")
)

// envFallbacks maps flag names to the environment variables consulted when
// the flag is not given on the command line
var envFallbacks = map[string]string{
	"port":           "PORT",
	"host":           "HOST",
	"levels-dir":     "LEVELS_DIR",
	"sessions-dir":   "SESSIONS_DIR",
	"redis":          "REDIS_ADDR",
	"redis-ttl":      "REDIS_TTL",
	"max-expansions": "SOLVER_MAX_EXPANSIONS",
	"max-depth":      "SOLVER_MAX_DEPTH",
	"solve-timeout":  "SOLVER_TIMEOUT",
	"debug":          "DEBUG",
}

// applyEnvFallbacks sets every flag not given explicitly from its
// environment variable, validating the value with the flag's own parser
func applyEnvFallbacks(fs *flag.FlagSet) error {
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for name, key := range envFallbacks {
		if explicit[name] {
			continue
		}
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("%s=%q: %w", key, v, err)
		}
	}
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  PORT HOST LEVELS_DIR SESSIONS_DIR REDIS_ADDR REDIS_TTL SOLVER_MAX_EXPANSIONS\n")
		fmt.Fprintf(os.Stderr, "  SOLVER_MAX_DEPTH SOLVER_TIMEOUT DEBUG NGROK_ENABLED NGROK_AUTHTOKEN NGROK_DOMAIN\n")
		fmt.Fprintf(os.Stderr, "  are read when the matching flag is not given; a .env file is loaded first.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                            # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -redis localhost:6379      # Share solutions through Redis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                  # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	flag.Parse()
	if err := applyEnvFallbacks(flag.CommandLine); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	setupLogging(*debug)
	if envErr == nil {
		log.Debug("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.Warnf("Error loading .env file: %v", envErr)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.WithFields(log.Fields{"version": Version, "mode": mode}).Infof("Starting %s", AppName)

	svc, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(svc.game)

	case "server", "http":
		if err := runHTTPServer(svc.game); err != nil {
			log.Errorf("Server error: %v", err)
		}

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

func setupLogging(debug bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	// stdout belongs to the MCP stdio protocol
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// services bundles what main owns and must release on shutdown
type services struct {
	game     service.GameService
	sessions *session.Manager
	redis    *cache.RedisCache
	stop     context.CancelFunc
}

func (s *services) close() {
	s.stop()
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Warnf("Failed to save sessions on shutdown: %v", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warnf("Failed to close redis: %v", err)
		}
	}
}

// initializeServices wires level/session managers, the solution cache and
// the game service, and starts the background session housekeeping.
func initializeServices() (*services, error) {
	levelManager, err := level.NewManager(*levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(*sessionsDir, levelManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warnf("Failed to load persisted sessions: %v", err)
	}

	opts := []service.Option{
		service.WithSolverOptions(solver.Options{MaxExpansions: *maxExpansions, MaxDepth: *maxDepth}),
		service.WithSolveTimeout(*solveTimeout),
	}

	redisCache, err := connectRedis(*redisAddr, *redisTTL)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using the in-memory solution cache")
	}
	if redisCache != nil {
		opts = append(opts, service.WithSolutionCache(redisCache))
	}

	gameService := service.NewGameService(sessionManager, levelManager, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go sessionCleanupRoutine(ctx, sessionManager)
	go filesystemSyncRoutine(ctx, sessionManager, persistence)

	return &services{game: gameService, sessions: sessionManager, redis: redisCache, stop: cancel}, nil
}

// connectRedis returns nil without error when addr is empty
func connectRedis(addr string, ttl time.Duration) (*cache.RedisCache, error) {
	if addr == "" {
		return nil, nil
	}
	client, err := cache.NewRedisClient(addr)
	if err != nil {
		return nil, err
	}
	rc := cache.NewRedisCache(client, ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.WithFields(log.Fields{"addr": addr, "ttl": ttl}).Info("Using Redis solution cache")
	return rc, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.WithField("removed", removed).Info("Cleaned up expired sessions")
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory whose files were deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(filesystemSyncEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := 0
		for _, s := range manager.List() {
			if persistence.Exists(s.ID) {
				continue
			}
			if err := manager.DeleteFromMemory(s.ID); err == nil {
				pruned++
				log.WithField("session", s.ID).Debug("Pruned session from memory (file deleted)")
			}
		}
		if pruned > 0 {
			log.WithField("pruned", pruned).Info("Filesystem sync removed orphaned sessions")
		}
	}
}

// newRouter mounts the REST API and the /mcp JSON-RPC endpoint
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(gameService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// solves are bounded by the solve timeout, not the write timeout
		WriteTimeout: *solveTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(log.Fields{
			"rest": fmt.Sprintf("http://%s/api", addr),
			"ws":   fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":  fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if ngrokShouldRun() {
		g.Go(func() error {
			runNgrok(ctx, mainRouter)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP server shutdown error: %v", err)
		}
		return nil
	})

	err := g.Wait()
	log.Info("Server stopped")
	return err
}

func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	v := os.Getenv("NGROK_ENABLED")
	return v == "true" || v == "1"
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
// Failures are logged and never stop the local server.
func runNgrok(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info("Starting ngrok tunnel...")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(log.Fields{
		"rest": ngrokURL + "/api",
		"ws":   ngrokURL + "/ws?session=<session_id>",
		"mcp":  ngrokURL + "/mcp",
	}).Infof("Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(gameService service.GameService) {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	if !apiAvailable(externalURL) {
		log.Info("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	} else {
		log.WithField("url", externalURL).Info("External API server found, using it for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Errorf("MCP stdio server error: %v", err)
	}
}

// apiAvailable reports whether a Mummy Maze API answers its health probe at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
