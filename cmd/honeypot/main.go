package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lurelab/decoy/pkg/config"
	"github.com/lurelab/decoy/pkg/detect"
	"github.com/lurelab/decoy/pkg/engage"
	"github.com/lurelab/decoy/pkg/intel"
	"github.com/lurelab/decoy/pkg/llm"
	"github.com/lurelab/decoy/pkg/orchestrator"
	"github.com/lurelab/decoy/pkg/patterns"
	"github.com/lurelab/decoy/pkg/report"
	"github.com/lurelab/decoy/pkg/semantic"
	"github.com/lurelab/decoy/pkg/session"
	"github.com/lurelab/decoy/pkg/strategy"
)

const Version = "0.1.0"

// Pipeline holds every wired component. LLM-backed pieces are optional and
// degrade to deterministic fallbacks when unavailable.
type Pipeline struct {
	store        session.Store
	orchestrator *orchestrator.Orchestrator
	engine       detect.Classifier
	extractor    *intel.Extractor
	config       *config.Config
}

func NewPipeline(cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	if cfg.PatternConfigDir != "" {
		if err := patterns.LoadKeywordOverrides(cfg.PatternConfigDir); err != nil {
			log.Printf("○ Keyword overrides not loaded: %v", err)
		} else {
			log.Printf("✓ Keyword overrides loaded from %s", cfg.PatternConfigDir)
		}
	}
	patterns.SetConversationEndKeywords(cfg.EndKeywords)

	// Shared chat client for classification, end detection and replies.
	chatClient := llm.NewClient(llm.ClientConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  time.Duration(cfg.LLMTimeoutMs) * time.Millisecond,
	})
	if chatClient != nil {
		log.Printf("✓ LLM enabled (provider: %s, model: %s)", cfg.LLMProvider, cfg.LLMModel)
	} else {
		log.Println("○ LLM disabled (no provider configured) - rule scoring and canned replies")
	}

	rules := detect.NewRuleClassifier(cfg.DecisionThreshold)
	var primary detect.Classifier
	if c := detect.NewLLMClassifier(chatClient, cfg.DecisionThreshold); c != nil {
		primary = c
	}
	engine := detect.NewEngine(primary, rules)

	var endDetector strategy.EndDetector
	if cfg.UseLLMEndDetection {
		if d := strategy.NewLLMEndDetector(chatClient); d != nil {
			endDetector = d
		}
	}
	planner := strategy.NewPlanner(cfg.MaxMessagesPerSession, cfg.MinMessagesForReport, endDetector)

	var replier engage.Replier = engage.CannedReplier{}
	if r := engage.NewLLMReplier(chatClient); r != nil {
		replier = r
	}

	dispatcher := report.NewDispatcher(cfg.ReportURL, cfg.MinMessagesForReport,
		time.Duration(cfg.ReportTimeoutMs)*time.Millisecond)

	var store session.Store
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisAddr, cfg.SessionTTL)
		if err != nil {
			log.Printf("○ Redis store unavailable (%v), falling back to in-memory", err)
			store = session.NewInMemoryStore(session.WithMaxAge(cfg.SessionTTL))
		} else {
			store = redisStore
			log.Printf("✓ Redis session store enabled (%s)", cfg.RedisAddr)
		}
	} else {
		store = session.NewInMemoryStore(session.WithMaxAge(cfg.SessionTTL))
	}

	var semDetector *semantic.Detector
	if cfg.EnableSemantics {
		ollamaURL := cfg.LLMBaseURL
		if ollamaURL == "" {
			ollamaURL = "http://localhost:11434"
		}
		sd, err := semantic.NewDetector(ollamaURL)
		if err != nil {
			log.Printf("○ Semantic matching disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := sd.LoadExemplars(ctx); err != nil {
				log.Printf("○ Semantic matching disabled (exemplar load failed: %v)", err)
			} else {
				semDetector = sd
				log.Println("✓ Semantic matching enabled (chromem-go + Ollama embeddings)")
			}
			cancel()
		}
	}

	extractor := intel.NewExtractor()

	return &Pipeline{
		store: store,
		orchestrator: orchestrator.New(
			store, engine, extractor, planner, replier, dispatcher, semDetector),
		engine:    engine,
		extractor: extractor,
		config:    cfg,
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "3000"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: honeypot scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("Decoy v%s\n", Version)
		fmt.Println("Scam Engagement Honeypot")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Decoy v%s - Scam Engagement Honeypot\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  honeypot serve [port]   Start HTTP server (default: 3000)")
	fmt.Println("  honeypot scan <text>    Classify a message and extract artifacts")
	fmt.Println("  honeypot version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  honeypot serve 8080")
	fmt.Println("  honeypot scan \"Your account will be blocked, verify immediately\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  DECOY_API_KEY            API key required on inbound requests")
	fmt.Println("  DECOY_REPORT_URL         Collector endpoint for intelligence reports")
	fmt.Println("  DECOY_LLM_PROVIDER       Provider: groq, openrouter, ollama (default: auto)")
	fmt.Println("  DECOY_REDIS_ADDR         Redis address for the session store")
}

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()
	pipeline := NewPipeline(cfg)
	defer pipeline.store.Close()

	app := fiber.New(fiber.Config{
		AppName: "Decoy",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/honeypot/message", func(c fiber.Ctx) error {
		if cfg.APIKey != "" && c.Get("X-API-Key") != cfg.APIKey {
			return c.Status(401).JSON(fiber.Map{"status": "error", "error": "invalid API key"})
		}

		var req orchestrator.Request
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"status": "error", "error": "invalid request body"})
		}

		resp := pipeline.orchestrator.HandleMessage(c.Context(), &req)
		if resp.Status == "error" {
			return c.Status(400).JSON(resp)
		}
		return c.JSON(resp)
	})

	app.Get("/honeypot/session/:id", func(c fiber.Ctx) error {
		if cfg.APIKey != "" && c.Get("X-API-Key") != cfg.APIKey {
			return c.Status(401).JSON(fiber.Map{"status": "error", "error": "invalid API key"})
		}

		sess, err := pipeline.store.Get(c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"status": "error", "error": err.Error()})
		}
		if sess == nil {
			return c.Status(404).JSON(fiber.Map{"status": "error", "error": "session not found"})
		}
		return c.JSON(sess)
	})

	log.Printf("Decoy HTTP server starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health                 - Health check")
	log.Printf("  POST /honeypot/message       - Process inbound scammer message")
	log.Printf("  GET  /honeypot/session/:id   - Session state for analysts")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

// runCLIScan classifies one message offline and prints the verdict plus
// extracted artifacts as JSON.
func runCLIScan(text string) {
	cfg := config.NewDefaultConfig()
	pipeline := NewPipeline(cfg)
	defer pipeline.store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	verdict, _ := pipeline.engine.Classify(ctx, text, nil)
	extracted := pipeline.extractor.Extract(text, nil)

	out, err := json.MarshalIndent(map[string]any{
		"verdict":   verdict,
		"artifacts": extracted,
	}, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
