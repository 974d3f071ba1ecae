// Command sokoban serves the Sokoban puzzle game.
//
// It supports three modes:
//  1. "server" (default) – HTTP server exposing the REST API, WebSocket push and an /mcp endpoint
//  2. "mcp" – MCP stdio server; reuses a running API server or starts an internal one
//  3. "play" – plays in the terminal, one command per line
//
// Flags control host/port, level and session storage, logging, and optional
// ngrok tunneling for easy external access during development. Every flag can
// also be set from the environment or a .env file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/sokoban-game/api"
	"github.com/wricardo/sokoban-game/game/engine"
	"github.com/wricardo/sokoban-game/game/levels"
	"github.com/wricardo/sokoban-game/game/service"
	"github.com/wricardo/sokoban-game/game/session"
	"github.com/wricardo/sokoban-game/transport/mcp"
	"github.com/wricardo/sokoban-game/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Sokoban Game Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

// options holds the resolved command line configuration
type options struct {
	Host        string
	Port        int
	LevelsDir   string
	SessionsDir string
	RedisURL    string
	Level       string
	Debug       bool
	LogJSON     bool
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("error loading .env file")
		}
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("sokoban failed")
	}
}

// newCommand builds the CLI. The root action runs the HTTP server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "sokoban",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "levels-dir", Usage: "Directory of extra *.json levels (built-in levels only when empty)", Sources: cli.EnvVars("LEVELS_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for session files", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "redis-url", Usage: "Store sessions in Redis instead of files (redis://host:6379/0)", Sources: cli.EnvVars("REDIS_URL")},
			&cli.StringFlag{Name: "level", Usage: "Initial level id for new sessions in play mode", Sources: cli.EnvVars("SOKOBAN_LEVEL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "log-json", Usage: "Log as JSON", Sources: cli.EnvVars("LOG_JSON")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					setupLogging(opts, os.Stderr)
					gameService, _, err := initializeServices(opts, true)
					if err != nil {
						return err
					}
					return runStdioMCP(opts, gameService)
				},
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					setupLogging(opts, os.Stderr)
					gameService, _, err := initializeServices(opts, false)
					if err != nil {
						return err
					}
					return runPlay(ctx, gameService, opts.Level, os.Stdin, os.Stdout)
				},
			},
		},
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts, os.Stderr)

	log.WithFields(log.Fields{"version": Version, "addr": opts.addr()}).Infof("starting %s", AppName)

	gameService, manager, err := initializeServices(opts, true)
	if err != nil {
		return err
	}
	return runHTTPServer(ctx, opts, gameService, manager)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:        cmd.String("host"),
		Port:        int(cmd.Int("port")),
		LevelsDir:   cmd.String("levels-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		RedisURL:    cmd.String("redis-url"),
		Level:       cmd.String("level"),
		Debug:       cmd.Bool("debug"),
		LogJSON:     cmd.Bool("log-json"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// setupLogging configures the logrus standard logger
func setupLogging(opts options, out io.Writer) {
	log.SetOutput(out)
	if opts.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// initializeServices wires the level catalog, session storage and the game
// service. With persist false sessions live in memory only.
func initializeServices(opts options, persist bool) (service.GameService, *session.Manager, error) {
	catalog, err := levels.NewCatalog(opts.LevelsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load levels: %w", err)
	}

	var persistence session.SessionPersistence
	if persist {
		persistence, err = newPersistence(opts, catalog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
	}

	var manager *session.Manager
	if persistence != nil {
		manager = session.NewManagerWithPersistence(catalog, persistence)
		if err := manager.LoadPersistedSessions(); err != nil {
			log.WithError(err).Warn("failed to load persisted sessions")
		}
	} else {
		manager = session.NewManager(catalog)
	}

	return service.NewGameService(manager, catalog), manager, nil
}

func newPersistence(opts options, catalog engine.Catalog) (session.SessionPersistence, error) {
	switch {
	case opts.RedisURL != "":
		log.Info("storing sessions in redis")
		return session.NewRedisPersistence(opts.RedisURL, catalog, &session.RedisOptions{TTL: sessionMaxAge})
	case opts.SessionsDir != "":
		log.WithField("dir", opts.SessionsDir).Info("storing sessions on disk")
		return session.NewFilePersistence(opts.SessionsDir, catalog)
	default:
		return nil, nil
	}
}

// newMCPHandler serves one JSON-RPC message per POST request
func newMCPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server and the /mcp endpoint
func newRouter(apiServer *api.Server, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient))
	return mainRouter
}

// runHTTPServer starts the HTTP server and, when enabled, an ngrok tunnel.
// It blocks until SIGINT/SIGTERM or ctx is done, then shuts down and saves
// every session.
func runHTTPServer(ctx context.Context, opts options, gameService service.GameService, manager *session.Manager) error {
	hub := websocket.NewHub()
	apiServer := api.NewServer(gameService, hub)
	go hub.Run()

	addr := opts.addr()
	mainRouter := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, mainRouter)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, manager)
	}()
	go func() {
		defer wg.Done()
		persistenceSyncRoutine(ctx, manager)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serverErr:
		log.WithError(runErr).Error("HTTP server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	hub.Stop()

	if err := manager.SaveAllSessions(); err != nil {
		log.WithError(err).Warn("failed to save sessions")
	}
	if err := manager.Close(); err != nil {
		log.WithError(err).Warn("failed to close session storage")
	}
	log.Info("server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.NgrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.WithField("domain", opts.NgrokDomain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Infof("ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically evicts sessions that have not been
// accessed within sessionMaxAge
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// persistenceSyncRoutine drops sessions from memory whose persisted record
// disappeared (file deleted, Redis key expired). Sessions whose last save
// failed are kept; the next game command saves them again.
func persistenceSyncRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphanedSessions(manager); pruned > 0 {
				log.WithField("pruned", pruned).Info("pruned sessions missing from storage")
			}
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager) int {
	persistence := manager.Persistence()
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if manager.PendingSave(sess.ID) || persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.WithField("session", sess.ID).Debug("pruned session from memory")
		}
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured address, or starts an internal one on a
// random loopback port.
func runStdioMCP(opts options, gameService service.GameService) error {
	externalURL := "http://" + opts.addr()
	log.Infof("checking for external API server at %s", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		log.Info("external API server found, using it for MCP")
	} else {
		if resp != nil {
			resp.Body.Close()
		}
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		baseURL = "http://" + listener.Addr().String()
		log.Infof("starting internal HTTP server on %s for MCP stdio", listener.Addr())

		hub := websocket.NewHub()
		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go hub.Run()
		defer hub.Stop()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	}

	log.Info("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

const playHelp = `Commands: w/a/s/d or up/down/left/right to move, r reset, n next level, p previous level, h help, q quit`

// playKeys maps the keyboard layout used in play mode to directions
var playKeys = map[string]string{
	"w": "up",
	"a": "left",
	"s": "down",
	"d": "right",
}

// runPlay runs an interactive game reading one command per line from in
func runPlay(ctx context.Context, gameService service.GameService, initialLevel string, in io.Reader, out io.Writer) error {
	info, err := gameService.CreateSession(ctx, initialLevel)
	if err != nil {
		return err
	}
	sessionID := info.ID

	fmt.Fprintf(out, "%s v%s\n%s\n\n", AppName, Version, playHelp)
	renderState(out, info.GameState)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		var state *engine.GameState

		switch input {
		case "":
			continue
		case "q", "quit", "exit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "h", "help", "?":
			fmt.Fprintln(out, playHelp)
			continue
		case "r", "reset":
			state, err = gameService.Reset(ctx, sessionID)
		case "n", "next":
			state, err = gameService.NextLevel(ctx, sessionID)
		case "p", "prev", "previous":
			state, err = gameService.PreviousLevel(ctx, sessionID)
		default:
			direction := input
			if mapped, ok := playKeys[input]; ok {
				direction = mapped
			}
			var result *service.MoveResult
			result, err = gameService.Move(ctx, sessionID, direction, false)
			if err == nil {
				state = result.GameState
			}
		}

		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		renderState(out, state)
	}
}

// renderState prints the grid and a status line
func renderState(out io.Writer, state *engine.GameState) {
	if state == nil {
		return
	}
	fmt.Fprintf(out, "Level %d: %s\n", state.LevelID, state.LevelName)
	for _, row := range state.Grid {
		fmt.Fprintln(out, row)
	}
	fmt.Fprintf(out, "Moves: %d  Pushes: %d  Boxes on goals: %d/%d\n", state.Moves, state.Pushes, state.BoxesOnGoal, state.Goals)
	if state.Complete {
		if state.HasNext {
			fmt.Fprintln(out, "*** Level complete! Press n for the next level. ***")
		} else {
			fmt.Fprintln(out, "*** Level complete! That was the last level. ***")
		}
	} else if state.Message != "" {
		fmt.Fprintln(out, state.Message)
	}
}
