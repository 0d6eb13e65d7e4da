package constants

import "time"

const (
	DatabaseTimeout    = 5 * time.Second
	RateLimitTimeout   = 500 * time.Millisecond
	ObjectStoreTimeout = 30 * time.Second
	LogSinkTimeout     = 3 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout   = 5 * time.Second
	ReadHeaderTimeout = 5 * time.Second
)

const (
	MaxUploadBytes     = 50 << 20
	MaxMultipartMemory = 8 << 20
)

// AllowedMediaTypes is the upload allow-list.
var AllowedMediaTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
	"video/quicktime",
}

const (
	AuditQueueSize     = 256
	RecentFightsLimit  = 5
	RankingsLimit      = 50
	MaxRankingsLimit   = 200
	SessionCookieName  = "session"
	LoginPath          = "/login"
	MinFighterAge      = 16
	MaxFighterAge      = 50
	MaxPasswordBytes   = 72
	MaxPointsPerFight  = 100
	DefaultListLimit   = 20
	MaxRoundsPerFight  = 15
	MinTournamentSlots = 4
	MaxTournamentSlots = 64
)
