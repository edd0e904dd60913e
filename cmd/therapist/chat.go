package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/logger"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/memory"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/schedule"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/session"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/telemetry"
)

func newChatCommand() *cobra.Command {
	var (
		configPath  string
		clientID    string
		model       string
		memoryModel string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive therapy session",
		Long:  "Start a session for a client, exchange messages, and save extracted memories on exit.",
		Example: strings.Join([]string{
			"  therapist chat",
			"  therapist chat --client-id client_ab12cd34",
			"  therapist chat --model gpt-5 --memory-model gpt-5-mini",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetDebug(debug)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Therapist.Model = model
			}
			if memoryModel != "" {
				cfg.Memory.Model = memoryModel
			}
			if err := schedule.Validate(cfg.Checkin.Schedule); err != nil {
				return err
			}

			return runChat(cmd.Context(), cfg, clientID)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.therapist/config.json)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client ID to continue with")
	cmd.Flags().StringVar(&model, "model", "", "Model for therapist responses")
	cmd.Flags().StringVar(&memoryModel, "memory-model", "", "Model for memory extraction/retrieval")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func runChat(ctx context.Context, cfg *config.Config, clientID string) error {
	provider, err := providers.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	st := store.NewStore(cfg.StoreRoot())

	var metrics memory.MetricsRecorder
	if cfg.Telemetry.Enabled {
		recorder, err := telemetry.NewRecorder(cfg.TelemetryPath())
		if err != nil {
			logger.WarnCF("cli", "Telemetry disabled for this run", map[string]interface{}{"error": err.Error()})
		} else {
			defer recorder.Close()
			metrics = recorder
		}
	}

	manager := memory.NewManager(st, provider, cfg.Memory, metrics)

	printHeader()

	if clientID == "" {
		clientID, err = pickClient(st)
		if err != nil {
			return err
		}
	} else {
		fmt.Printf("\nUsing client ID: %s\n", clientID)
	}

	therapist := session.NewTherapist(clientID, st, provider, manager, cfg.Therapist, metrics)

	fmt.Printf("   Therapist model: %s\n", cfg.Therapist.Model)
	fmt.Printf("   Memory model:    %s\n", cfg.Memory.Model)

	runSession(ctx, therapist, st, clientID)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("Thank you for using therapist. Take care of yourself.")
	fmt.Println(strings.Repeat("=", 70))
	return nil
}

func printHeader() {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("AI THERAPIST - Memory-Aware Therapy Sessions")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("\nThis is a safe space to share your thoughts and feelings.")
	fmt.Println("Type 'exit' or 'quit' to end the session.")
}

// pickClient lists existing clients and prompts for an id; an empty answer
// mints a new client id.
func pickClient(st *store.Store) (string, error) {
	existing := st.ListClients()
	if len(existing) > 0 {
		fmt.Println("\nExisting clients:")
		for i, id := range existing {
			profile := st.LoadProfile(id)
			name := profile.BasicInfo["name"]
			if name == "" {
				name = "Unknown"
			}
			fmt.Printf("  %d. %s (%s) - %d session(s)\n", i+1, id, name, len(st.ListSessions(id)))
		}
	}

	fmt.Println("\nEnter client ID (or press Enter to create new):")
	rl, err := readline.New("Client ID: ")
	if err != nil {
		return "", fmt.Errorf("initialize input: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read client id: %w", err)
	}

	clientID := strings.TrimSpace(line)
	if clientID == "" {
		clientID = "client_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		fmt.Printf("\nCreated new client: %s\n", clientID)
		return clientID, nil
	}

	profile := st.LoadProfile(clientID)
	switch {
	case len(profile.KeyFacts) > 0 && profile.BasicInfo["name"] != "":
		fmt.Printf("\nWelcome back, %s!\n", profile.BasicInfo["name"])
	case len(profile.KeyFacts) > 0:
		fmt.Printf("\nContinuing with client: %s\n", clientID)
	default:
		fmt.Printf("\nStarting new client: %s\n", clientID)
	}
	return clientID, nil
}

func runSession(ctx context.Context, therapist *session.Therapist, st *store.Store, clientID string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("SESSION STARTED")
	fmt.Println(strings.Repeat("=", 70))

	greeting := therapist.StartSession(ctx)
	fmt.Printf("\nTherapist: %s\n\n", greeting)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".therapist_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nEnding session...")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if isExitCommand(input) {
			fmt.Println("\nEnding session...")
			break
		}

		response, err := therapist.SendMessage(ctx, input)
		if err != nil {
			fmt.Printf("\nError: %v\nPlease try again or type 'exit' to end the session.\n\n", err)
			continue
		}
		fmt.Printf("\nTherapist: %s\n\n", response)
	}

	finishSession(ctx, therapist, st, clientID)
}

func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "end":
		return true
	}
	return false
}

func finishSession(ctx context.Context, therapist *session.Therapist, st *store.Store, clientID string) {
	summary, err := therapist.EndSession(ctx)
	if err != nil {
		fmt.Printf("\nError saving session: %v\n", err)
		fmt.Println("Your conversation may not have been saved.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("SESSION ENDED")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Println("\nSession Summary:")
	fmt.Printf("   - Session ID: %s\n", summary.SessionID)
	fmt.Printf("   - Messages exchanged: %d\n", summary.MessageCount)
	fmt.Printf("   - New facts learned: %d\n", summary.FactsLearned)
	fmt.Printf("   - Themes identified: %d\n", summary.ThemesIdentified)
	if summary.Summary != "" {
		fmt.Printf("\n   Summary: %s\n", summary.Summary)
	}

	fmt.Printf("\nSession saved to: %s\n", filepath.Join(st.Root(), clientID))

	profile := st.LoadProfile(clientID)
	themes := st.LoadThemes(clientID)
	sessions := st.ListSessions(clientID)

	fmt.Println("\nOverall Progress:")
	fmt.Printf("   - Total sessions: %d\n", len(sessions))
	fmt.Printf("   - Total facts: %d\n", len(profile.KeyFacts))
	fmt.Printf("   - Total themes: %d\n", len(themes.RecurringThemes))
}
