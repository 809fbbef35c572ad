package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/avelar/tunedesk/agent/classifier"
	contractx "github.com/avelar/tunedesk/agent/contract"
	"github.com/avelar/tunedesk/agent/llm"
	promptx "github.com/avelar/tunedesk/agent/prompt"
	statex "github.com/avelar/tunedesk/agent/state"
	"github.com/avelar/tunedesk/agent/storeagent"
	"github.com/avelar/tunedesk/agent/turn"
	gatewayx "github.com/avelar/tunedesk/gateway"
	configx "github.com/avelar/tunedesk/pkg/config"
	_ "github.com/avelar/tunedesk/pkg/logger/autoload"
	"github.com/avelar/tunedesk/toolserver"
	"github.com/avelar/tunedesk/toolserver/invoice"
	"github.com/avelar/tunedesk/toolserver/media"
)

type AppConfig struct {
	ThreadID     string `envconfig:"THREAD_ID"`
	StateBackend string `envconfig:"STATE_BACKEND" default:"memory"`
	LedgerDSN    string `envconfig:"LEDGER_DSN"`
	GatewayURL   string `envconfig:"GATEWAY_URL"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	prompts := promptx.LoadPromptSet()

	llmCfg := configx.MustNew[llm.Config]("LLM")
	completions, err := llm.NewClient(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize completion client")
	}

	store := buildStore(appCfg.StateBackend)
	gateway := buildGateway(appCfg, completions, prompts)

	agent, err := storeagent.New(completions, gateway, prompts.StoreAgent)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize store agent")
	}

	controller, err := turn.NewController(store, classifier.New(completions, prompts.IntentClassifier), agent)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize turn controller")
	}

	threadID := strings.TrimSpace(appCfg.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}
	log.Info().Str("thread_id", threadID).Msg("tunedesk ready")

	runREPL(controller, threadID)
}

func buildStore(backend string) statex.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore()
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize upstash thread store")
		}
		return store
	default:
		log.Fatal().Str("backend", backend).Msg("unsupported state backend")
		return nil
	}
}

func buildGateway(cfg *AppConfig, completions contractx.CompletionService, prompts promptx.PromptSet) contractx.ToolGateway {
	if strings.TrimSpace(cfg.GatewayURL) != "" {
		gwCfg := configx.MustNew[gatewayx.Config]("GATEWAY")
		client, err := gatewayx.NewClient(*gwCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize remote tool gateway")
		}
		return client
	}

	dsn := strings.TrimSpace(cfg.LedgerDSN)
	if dsn == "" {
		log.Fatal().Msg("LEDGER_DSN is required when no GATEWAY_URL is configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	invoices, err := invoice.NewService(db)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize invoice service")
	}
	medias, err := media.NewService(db, completions, prompts.MediaQNA)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize media service")
	}

	gw, err := toolserver.NewGateway(invoices, medias)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize tool gateway")
	}
	return gw
}

func runREPL(controller *turn.Controller, threadID string) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("Type a message and press enter. Ctrl-D or 'exit' to quit.")
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		result, err := controller.HandleTurn(context.Background(), threadID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}

		fmt.Printf("agent> %s\n", result.Followup)
		if result.Intent == contractx.IntentUnknown {
			log.Info().Str("thread_id", threadID).Msg("hand-off requested: next message should come from a human operator")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("read input")
	}
}
