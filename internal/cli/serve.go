package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attache-hq/attache/internal/agent"
	"github.com/attache-hq/attache/internal/ask"
	"github.com/attache-hq/attache/internal/capability/google"
	"github.com/attache-hq/attache/internal/capability/imapmail"
	"github.com/attache-hq/attache/internal/capability/media"
	"github.com/attache-hq/attache/internal/config"
	"github.com/attache-hq/attache/internal/gateway"
	"github.com/attache-hq/attache/internal/llm"
	"github.com/attache-hq/attache/internal/store"
	"github.com/attache-hq/attache/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if cfg.OpenAI.APIKey == "" {
				return fmt.Errorf("openai.apiKey is required (or set OPENAI_API_KEY)")
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = paths.DatabasePath()
			}
			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			log.Info().Str("path", dbPath).Msg("database opened")

			provider := llm.NewOpenAI(llm.OpenAIConfig{
				APIKey:         cfg.OpenAI.APIKey,
				BaseURL:        cfg.OpenAI.BaseURL,
				Model:          cfg.OpenAI.Model,
				EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			}, log)

			threads := store.NewThreadStore(db, provider)
			tokens := store.NewTokenStore(db)
			chats := store.NewChatStore(db)

			creds := google.NewCredentials(tokens, cfg.Google.ClientID, cfg.Google.ClientSecret)
			calendar := google.NewCalendar(creds)
			gmail := google.NewGmail(creds)

			var inbox tools.Inbox = gmail
			if cfg.Mail.Backend == "imap" && cfg.Mail.IMAP != nil {
				inbox = imapmail.NewInbox(imapmail.Config{
					Server:   cfg.Mail.IMAP.Server,
					Port:     cfg.Mail.IMAP.Port,
					Username: cfg.Mail.IMAP.Username,
					Password: cfg.Mail.IMAP.Password,
					UseTLS:   cfg.Mail.IMAP.UseTLS,
				}, log)
				log.Info().Str("server", cfg.Mail.IMAP.Server).Msg("using IMAP mail backend for reading")
			}

			catalog := agent.NewCatalog()
			catalog.MustRegister(tools.All(calendar, gmail, inbox)...)

			executor := agent.NewExecutor(catalog,
				time.Duration(cfg.Agent.ToolTimeoutSeconds)*time.Second, log)

			loop := agent.NewLoop(provider, threads, executor, catalog,
				agent.BuildSystemPrompt(agent.PromptConfig{}),
				agent.LoopConfig{
					MaxToolRounds: cfg.Agent.MaxToolRounds,
					TurnTimeout:   time.Duration(cfg.Agent.TurnTimeoutSeconds) * time.Second,
					PollInterval:  time.Duration(cfg.Agent.PollIntervalMs) * time.Millisecond,
				}, log)

			searcher := ask.NewSearcher(provider, chats)
			router := ask.NewRouter(provider, searcher, chats, cfg.Ask.TopK, log)

			mediaSvc := media.NewService(provider.Client(), cfg.OpenAI.Model, log)

			server := gateway.New(cfg.Server, loop, router, log, gateway.WithMedia(mediaSvc))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Int("tools", catalog.Len()).Msg("assistant ready")
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")
	return cmd
}
