package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chatwright/chatwright/agent/capability"
	"github.com/chatwright/chatwright/agent/classifier"
	contractx "github.com/chatwright/chatwright/agent/contract"
	"github.com/chatwright/chatwright/agent/coordinator"
	llmx "github.com/chatwright/chatwright/agent/llm"
	"github.com/chatwright/chatwright/agent/orchestrator"
	"github.com/chatwright/chatwright/agent/planner"
	statex "github.com/chatwright/chatwright/agent/state"
	"github.com/chatwright/chatwright/catalog"
	configx "github.com/chatwright/chatwright/pkg/config"
	logx "github.com/chatwright/chatwright/pkg/logger"
)

type AppConfig struct {
	Domain string `envconfig:"DOMAIN" default:"ecommerce"`
	Window int    `envconfig:"WINDOW" default:"5"`

	CatalogDSN string `envconfig:"CATALOG_DSN"`
	RedisURL   string `envconfig:"REDIS_URL"`
	RedisToken string `envconfig:"REDIS_TOKEN"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("CHATWRIGHT")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	ctx := context.Background()
	domain := contractx.Domain(strings.ToLower(strings.TrimSpace(appCfg.Domain)))

	classifierModel, err := chatModelFor(ctx, *llmCfg, llmx.RoleClassifier)
	if err != nil {
		log.Fatal().Err(err).Msg("build classifier model")
	}
	plannerModel, err := chatModelFor(ctx, *llmCfg, llmx.RolePlanner)
	if err != nil {
		log.Fatal().Err(err).Msg("build planner model")
	}
	responderModel, err := chatModelFor(ctx, *llmCfg, llmx.RoleResponder)
	if err != nil {
		log.Fatal().Err(err).Msg("build responder model")
	}

	repo, cleanup, err := buildRepository(*appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build catalog repository")
	}
	defer cleanup()

	var storeOpts []statex.StoreOption
	if strings.TrimSpace(appCfg.RedisURL) != "" {
		persister, err := statex.NewRedisPersister(statex.RedisPersisterConfig{
			URL:   appCfg.RedisURL,
			Token: appCfg.RedisToken,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("build redis persister")
		}
		storeOpts = append(storeOpts, statex.WithPersister(persister))
	}
	store := statex.NewStore(storeOpts...)

	intentClassifier, err := classifier.New(ctx, classifierModel)
	if err != nil {
		log.Fatal().Err(err).Msg("build classifier")
	}
	actionPlanner, err := planner.New(ctx, plannerModel)
	if err != nil {
		log.Fatal().Err(err).Msg("build planner")
	}
	registry, err := capability.NewRegistry(ctx, capability.Deps{
		Repo:      repo,
		ChatModel: responderModel,
	}, domain)
	if err != nil {
		log.Fatal().Err(err).Msg("build capability registry")
	}

	service, err := orchestrator.New(
		store,
		intentClassifier,
		actionPlanner,
		coordinator.New(registry),
		orchestrator.Config{Window: appCfg.Window},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	runREPL(ctx, service, domain)
}

func chatModelFor(ctx context.Context, cfg llmx.Config, role llmx.Role) (einomodel.ToolCallingChatModel, error) {
	roleCfg := cfg.OpenRouterFor(role)
	return roleCfg.New(ctx)
}

func buildRepository(cfg AppConfig) (catalog.Repository, func(), error) {
	if dsn := strings.TrimSpace(cfg.CatalogDSN); dsn != "" {
		repo, err := catalog.Open(catalog.Config{DSN: dsn})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Warn().Err(err).Msg("close catalog")
			}
		}, nil
	}
	log.Info().Msg("no catalog dsn configured, using in-memory sample catalog")
	return catalog.NewMemoryRepository(sampleProducts()...), func() {}, nil
}

func runREPL(ctx context.Context, service *orchestrator.Orchestrator, domain contractx.Domain) {
	sessionID := uuid.NewString()
	fmt.Printf("chatwright (%s) session %s\n", domain, sessionID)
	fmt.Println(`type a message, or "/history", "/clear", "/exit"`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit":
			return
		case "/clear":
			if err := service.Clear(ctx, sessionID); err != nil {
				fmt.Println("clear failed:", err)
			} else {
				fmt.Println("session cleared")
			}
			continue
		case "/history":
			for _, msg := range service.History(sessionID) {
				fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
			}
			continue
		}

		resp, err := service.ProcessTurn(ctx, sessionID, domain, line)
		if err != nil {
			log.Warn().Err(err).Msg("turn ended with error")
		}
		if resp.Message != "" {
			fmt.Printf("[%s] %s\n", resp.Format, resp.Message)
		}
		if len(resp.QuickReplies) > 0 {
			fmt.Println("  suggestions:", strings.Join(resp.QuickReplies, " | "))
		}
	}
}

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "p-1001", Domain: "ecommerce", Name: "Aurora 14 Laptop", Description: "14-inch ultrabook with 16GB RAM", Category: "laptops", Brand: "Aurora", Price: 1199, Rating: 4.6, InStock: true},
		{ID: "p-1002", Domain: "ecommerce", Name: "Aurora 16 Pro", Description: "16-inch creator laptop with discrete GPU", Category: "laptops", Brand: "Aurora", Price: 1899, Rating: 4.8, InStock: true},
		{ID: "p-1003", Domain: "ecommerce", Name: "Breeze Buds", Description: "Wireless earbuds with noise cancelling", Category: "audio", Brand: "Breeze", Price: 149, Rating: 4.3, InStock: true},
		{ID: "p-1004", Domain: "ecommerce", Name: "Nimbus Watch", Description: "Fitness watch with two-week battery", Category: "wearables", Brand: "Nimbus", Price: 249, Rating: 4.1, InStock: true},
		{ID: "p-1005", Domain: "ecommerce", Name: "Vertex Monitor 27", Description: "27-inch 4K monitor", Category: "monitors", Brand: "Vertex", Price: 429, Rating: 4.4, InStock: false},
	}
}
