package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		WSURL       string
		APIBase     string
		MetricsPort string
	}
	Debate struct {
		APIKey       string
		Topic        string
		Platforms    []string
		MaxRounds    int
		TurnTimeoutS int
	}
	Reconnect struct {
		Attempts   int
		IntervalMS int
	}
	Debug bool
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.ws_url", "ws://localhost:8000/ws/debate")
	v.SetDefault("server.api_base", "http://localhost:8000")
	v.SetDefault("server.metrics_port", 9090)

	v.SetDefault("debate.topic", "")
	v.SetDefault("debate.platforms", "bilibili,zhihu")
	v.SetDefault("debate.max_rounds", 3)
	v.SetDefault("debate.turn_timeout_s", 0)

	v.SetDefault("reconnect.attempts", 10)
	v.SetDefault("reconnect.interval_ms", 3000)

	v.SetDefault("debug", false)

	// Map envs
	v.BindEnv("server.ws_url", "ARENA_WS_URL")
	v.BindEnv("server.api_base", "ARENA_API_BASE")
	v.BindEnv("server.metrics_port", "ARENA_METRICS_PORT")

	v.BindEnv("debate.api_key", "ARENA_API_KEY")
	v.BindEnv("debate.topic", "ARENA_TOPIC")
	v.BindEnv("debate.platforms", "ARENA_PLATFORMS")
	v.BindEnv("debate.max_rounds", "ARENA_MAX_ROUNDS")
	v.BindEnv("debate.turn_timeout_s", "ARENA_TURN_TIMEOUT_S")

	v.BindEnv("reconnect.attempts", "ARENA_RECONNECT_ATTEMPTS")
	v.BindEnv("reconnect.interval_ms", "ARENA_RECONNECT_INTERVAL_MS")

	v.BindEnv("debug", "ARENA_DEBUG")

	var c Config
	c.Server.WSURL = v.GetString("server.ws_url")
	c.Server.APIBase = v.GetString("server.api_base")
	c.Server.MetricsPort = v.GetString("server.metrics_port")

	c.Debate.APIKey = v.GetString("debate.api_key")
	c.Debate.Topic = v.GetString("debate.topic")
	c.Debate.Platforms = splitList(v.GetString("debate.platforms"))
	c.Debate.MaxRounds = v.GetInt("debate.max_rounds")
	c.Debate.TurnTimeoutS = v.GetInt("debate.turn_timeout_s")

	c.Reconnect.Attempts = v.GetInt("reconnect.attempts")
	c.Reconnect.IntervalMS = v.GetInt("reconnect.interval_ms")

	c.Debug = v.GetBool("debug")

	log.Printf("config loaded: ws_url=%s api_base=%s", c.Server.WSURL, c.Server.APIBase)
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
