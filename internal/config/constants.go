package config

// Application constants
const (
	AppName = "sheetcheck"

	// EnvPrefix namespaces every environment override, e.g. SHEETCHECK_SERVER_PORT
	EnvPrefix = "SHEETCHECK"

	DefaultPort           = 8080
	DefaultMaxUploadBytes = 32 << 20
	DefaultRateLimit      = 10 // requests per second
	DefaultBurstSize      = 20

	DefaultLogFile    = "logs/sheetcheck.log"
	DefaultUploadDir  = "data/uploads"
	DefaultDevMailDir = "outbox"
)

// configLocations are searched in order when no config path is given
var configLocations = []string{
	"config.yaml",
	"configs/config.yaml",
	"../configs/config.yaml",
}
