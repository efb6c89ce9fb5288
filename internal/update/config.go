package update

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/coachd/internal/chat"
)

type RuntimeConfig struct {
	DBPath               string
	StateFile            string
	LogFile              string
	LogLevel             string
	Provider             string
	ReplyLatency         time.Duration
	ReplyTimeout         time.Duration
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OllamaModel          string
	SchedulerBuffer      int
	DesktopNotifications bool
	SeedDemo             bool
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:               "coachd.db",
		StateFile:            ".coachd_state.json",
		LogFile:              "coachd.log",
		LogLevel:             "info",
		Provider:             "canned",
		ReplyLatency:         1500 * time.Millisecond,
		ReplyTimeout:         30 * time.Second,
		SchedulerBuffer:      64,
		DesktopNotifications: false,
		SeedDemo:             false,
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("COACHD_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("COACHD_STATE_FILE"); ok {
		cfg.StateFile = v
	}
	if v, ok := getEnvString("COACHD_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("COACHD_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvString("COACHD_PROVIDER"); ok {
		cfg.Provider = strings.ToLower(v)
	}
	if v, ok := getEnvInt("COACHD_REPLY_LATENCY_MS"); ok && v >= 0 {
		cfg.ReplyLatency = time.Duration(v) * time.Millisecond
	}
	if v, ok := getEnvInt("COACHD_REPLY_TIMEOUT_SECONDS"); ok && v > 0 {
		cfg.ReplyTimeout = time.Duration(v) * time.Second
	}
	if v, ok := getEnvString("COACHD_OPENAI_API_KEY"); ok {
		cfg.OpenAIAPIKey = v
	}
	if v, ok := getEnvString("COACHD_OPENAI_BASE_URL"); ok {
		cfg.OpenAIBaseURL = v
	}
	if v, ok := getEnvString("COACHD_OPENAI_MODEL"); ok {
		cfg.OpenAIModel = v
	}
	if v, ok := getEnvString("COACHD_OLLAMA_MODEL"); ok {
		cfg.OllamaModel = v
	}
	if v, ok := getEnvInt("COACHD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("COACHD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvBool("COACHD_SEED_DEMO"); ok {
		cfg.SeedDemo = v
	}
	return cfg
}

// ChatConfig applies the reply timing settings to the chat defaults.
func (c RuntimeConfig) ChatConfig() chat.Config {
	cfg := chat.DefaultConfig()
	cfg.ReplyLatency = c.ReplyLatency
	if c.ReplyTimeout > 0 {
		cfg.ReplyTimeout = c.ReplyTimeout
	}
	if c.SchedulerBuffer > 0 {
		cfg.SchedulerBuffer = c.SchedulerBuffer
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
