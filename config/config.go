package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	APIBaseURL  string
	HTTPTimeout time.Duration

	AdminBotToken string
	AdminChatIDs  []int64

	TokenFile  string
	CacheStale time.Duration
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "adminbot"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))

	cfg.APIBaseURL = cast.ToString(getOrReturnDefault("API_BASE_URL", "https://api.neighborly.live/api"))
	cfg.HTTPTimeout = time.Duration(cast.ToInt(getOrReturnDefault("HTTP_TIMEOUT_SECONDS", 30))) * time.Second

	cfg.AdminBotToken = cast.ToString(getOrReturnDefault("ADMIN_BOT_TOKEN", ""))
	cfg.AdminChatIDs = parseChatIDs(cast.ToString(getOrReturnDefault("ADMIN_CHAT_IDS", "")))

	cfg.TokenFile = cast.ToString(getOrReturnDefault("TOKEN_FILE", ".credentials.json"))
	cfg.CacheStale = time.Duration(cast.ToInt(getOrReturnDefault("CACHE_STALE_SECONDS", 60))) * time.Second

	return cfg
}

func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id := cast.ToInt64(part); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
