package deps

import (
	"time"

	"github.com/MrSnakeDoc/pelican/internal/library"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/monitor"
	"github.com/MrSnakeDoc/pelican/internal/playlist"
	"github.com/MrSnakeDoc/pelican/internal/registry"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	AllowedHosts    []string            // Host headers allowed to access the API
	AllowedCIDRS    []string            // client networks allowed to access the API
	TrustProxy      bool                // true if running behind a trusted reverse proxy
	RateLimit       int                 // API requests per minute per client IP (0 = unlimited)
	Registry        *registry.Registry  // configured services
	Monitor         *monitor.Monitor    // status history and last results
	Playlist        *playlist.Engine    // music navigation state
	Library         *library.Scanner    // music directory scanner
	Store           *redisstore.Store   // nil when Redis is disabled
	CheckTrigger    func() bool         // request an immediate check, false when one is already pending
	PersistServices func() error        // write the registry back to services.yaml
}
