package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"platformwar/arena/internal/arena"
	"platformwar/arena/internal/config"
	"platformwar/arena/internal/gamesock"
	"platformwar/arena/internal/health"
	"platformwar/arena/internal/protocol"
	"platformwar/arena/internal/session"
	"platformwar/arena/internal/types"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	store := session.New()
	if cfg.Debate.Topic != "" {
		_ = store.SetTopic(cfg.Debate.Topic)
	}
	if len(cfg.Debate.Platforms) > 0 {
		if err := store.SetPlatforms(toPlatforms(cfg.Debate.Platforms)); err != nil {
			log.Fatalf("invalid ARENA_PLATFORMS: %v", err)
		}
	}
	store.SetMaxRounds(cfg.Debate.MaxRounds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := arena.New(ctx, cfg.Server.WSURL, store, arena.Options{
		APIKey:            cfg.Debate.APIKey,
		ReconnectAttempts: cfg.Reconnect.Attempts,
		ReconnectInterval: time.Duration(cfg.Reconnect.IntervalMS) * time.Millisecond,
		TurnTimeout:       time.Duration(cfg.Debate.TurnTimeoutS) * time.Second,
		OnEvent:           printEvent(store),
		OnState: func(s gamesock.ReadyState) {
			log.Printf("connection: %s", s)
		},
	})
	client.Connect()
	defer client.Close()

	// Metrics listener
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + cfg.Server.MetricsPort
		log.Printf("metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received")
		cancel()
		os.Exit(0)
	}()

	fmt.Println("commands: start | stop | reset | status | health | topic <text> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
		case "start":
			snap := store.Snapshot()
			if len(snap.Platforms) < 2 {
				fmt.Println("pick at least 2 platforms before starting")
				continue
			}
			if err := client.Start(ctx); err != nil {
				fmt.Printf("start failed: %v\n", err)
			}
		case "stop":
			if err := client.Stop(ctx); err != nil {
				fmt.Printf("stop failed: %v\n", err)
			}
		case "reset":
			client.Reset()
			fmt.Println("session reset")
		case "topic":
			if err := store.SetTopic(rest); err != nil {
				fmt.Printf("set topic: %v\n", err)
			}
		case "status":
			printStatus(store, client)
		case "health":
			hctx, hcancel := context.WithTimeout(ctx, 10*time.Second)
			fmt.Print(health.CheckAll(hctx, cfg))
			hcancel()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func toPlatforms(names []string) []types.Platform {
	out := make([]types.Platform, 0, len(names))
	for _, n := range names {
		out = append(out, types.Platform(n))
	}
	return out
}

func printStatus(store *session.Store, client *arena.Client) {
	snap := store.Snapshot()
	fmt.Printf("state=%s round=%d/%d speaker=%s entries=%d connected=%v\n",
		snap.GameState, snap.CurrentRound, snap.MaxRounds,
		orDash(string(snap.ActiveSpeaker)), len(snap.Transcript), client.Connected())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printEvent renders the streamed transcript to stdout as it arrives.
func printEvent(store *session.Store) func(protocol.ServerEvent) {
	return func(ev protocol.ServerEvent) {
		switch ev.Type {
		case protocol.EventTurnStart:
			name := ev.Name
			if name == "" {
				name = "Unknown"
			}
			round := ev.Round
			if round == 0 {
				round = 1
			}
			fmt.Printf("\n[round %d] %s (%s): ", round, name, ev.Platform)
		case protocol.EventFragment:
			fmt.Print(ev.Content)
		case protocol.EventTurnEnd:
			fmt.Println()
		case protocol.EventInfo:
			fmt.Printf("-- %s\n", ev.Content)
			if ev.Content == protocol.CompletionSentinel {
				printSummary(store)
			}
		case protocol.EventSessionComplete:
			fmt.Println("-- debate complete")
			printSummary(store)
		case protocol.EventError:
			fmt.Printf("!! server error: %s\n", ev.Content)
		}
	}
}

func printSummary(store *session.Store) {
	snap := store.Snapshot()
	fmt.Printf("debate finished: %d turns over %d rounds\n", len(snap.Transcript), snap.CurrentRound)
}
