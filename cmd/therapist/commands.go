package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/schedule"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/telemetry"
)

func newClientsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List known clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st := store.NewStore(cfg.StoreRoot())

			clients := st.ListClients()
			if len(clients) == 0 {
				fmt.Println("No clients yet. Run 'therapist chat' to start one.")
				return nil
			}

			for _, id := range clients {
				profile := st.LoadProfile(id)
				name := profile.BasicInfo["name"]
				if name == "" {
					name = "Unknown"
				}
				sessions := st.ListSessions(id)
				fmt.Printf("%-24s %-20s %d session(s)\n", id, name, len(sessions))
			}

			if next, ok, err := schedule.NextCheckin(cfg.Checkin.Schedule, time.Now()); err == nil && ok {
				fmt.Printf("\nNext scheduled check-in: %s\n", next.Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.therapist/config.json)")
	return cmd
}

func newSessionsCommand() *cobra.Command {
	var (
		configPath string
		clientID   string
	)

	cmd := &cobra.Command{
		Use:     "sessions",
		Short:   "List saved sessions for a client",
		Example: "  therapist sessions --client-id client_ab12cd34",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(clientID) == "" {
				return fmt.Errorf("--client-id is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st := store.NewStore(cfg.StoreRoot())

			sessionIDs := st.ListSessions(clientID)
			if len(sessionIDs) == 0 {
				fmt.Printf("No sessions recorded for %s.\n", clientID)
				return nil
			}

			for _, id := range sessionIDs {
				sess, ok := st.LoadSession(clientID, id)
				if !ok {
					fmt.Printf("%s  (unreadable)\n", id)
					continue
				}
				summary := sess.Summary
				if summary == "" {
					summary = "No summary"
				}
				fmt.Printf("%s  %s  %s\n", id, sess.Date.Format("2006-01-02"), summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.therapist/config.json)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client whose sessions to list")
	return cmd
}

func newOnboardCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "onboard",
		Short:   "Create the default config file",
		Example: "  therapist onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}
			if _, err := os.Stat(configPath); err == nil {
				fmt.Printf("Config already exists at %s\n", configPath)
				return nil
			}
			if err := config.SaveConfig(configPath, config.DefaultConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("Created %s\n", configPath)
			fmt.Println("Set OPENAI_API_KEY (env or provider.api_key) before starting a chat.")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.therapist/config.json)")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, credential and data status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			fmt.Printf("Store root:       %s\n", cfg.StoreRoot())
			fmt.Printf("Therapist model:  %s\n", cfg.Therapist.Model)
			fmt.Printf("Memory model:     %s\n", cfg.Memory.Model)

			if _, err := providers.NewFromConfig(cfg); err != nil {
				fmt.Printf("Credentials:      not configured (%v)\n", err)
			} else {
				fmt.Println("Credentials:      configured")
			}

			st := store.NewStore(cfg.StoreRoot())
			clients := st.ListClients()
			totalSessions := 0
			for _, id := range clients {
				totalSessions += len(st.ListSessions(id))
			}
			fmt.Printf("Clients:          %d\n", len(clients))
			fmt.Printf("Sessions:         %d\n", totalSessions)

			if err := schedule.Validate(cfg.Checkin.Schedule); err != nil {
				fmt.Printf("Check-in:         %v\n", err)
			} else if next, ok, err := schedule.NextCheckin(cfg.Checkin.Schedule, time.Now()); err == nil && ok {
				fmt.Printf("Check-in:         next at %s\n", next.Format(time.RFC1123))
			} else {
				fmt.Println("Check-in:         not scheduled")
			}

			if cfg.Telemetry.Enabled {
				if recorder, err := telemetry.NewRecorder(cfg.TelemetryPath()); err == nil {
					defer recorder.Close()
					saved, _ := recorder.Count(context.Background(), "session.saved")
					fmt.Printf("Telemetry:        %s (%d sessions recorded)\n", cfg.TelemetryPath(), saved)
				}
			} else {
				fmt.Println("Telemetry:        disabled")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ~/.therapist/config.json)")
	return cmd
}
