package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/persona/internal/api"
	"github.com/kalambet/persona/internal/chat"
	"github.com/kalambet/persona/internal/composer"
	"github.com/kalambet/persona/internal/config"
	"github.com/kalambet/persona/internal/provider"
)

// --- prompt / welcome ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the composed system prompt and welcome message",
	Long: `Print the system prompt the assistant is given and the welcome message,
without contacting any LLM provider. Useful for reviewing a profile.

Examples:
  persona prompt
  persona prompt --profile ./me.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadProfile(profilePath(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		rule := strings.Repeat("=", 80)
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, "GENERATED SYSTEM PROMPT")
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, a.prompt)
		fmt.Fprintln(out)
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, "WELCOME MESSAGE")
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, a.welcome)
		fmt.Fprintln(out)
		printStatus("Prompt length", "%d characters (~%d tokens)", len(a.prompt), composer.EstimateTokens(a.prompt))
		return nil
	},
}

var welcomeCmd = &cobra.Command{
	Use:   "welcome",
	Short: "Print the welcome message",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadProfile(profilePath(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.welcome)
		return nil
	},
}

// profilePath prefers --profile, then PROFILE_PATH and the config file.
func profilePath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("profile"); p != "" {
		return p
	}
	return config.Current().Profile.Path
}

func init() {
	for _, c := range []*cobra.Command{promptCmd, welcomeCmd} {
		c.Flags().String("profile", "", "path to the profile document (JSON or YAML)")
	}
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to a running server",
	Long: `Send one message to a running persona server and print the reply.

Examples:
  persona chat "What languages do you know?"
  persona chat --history history.json "And which do you prefer?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := api.ChatRequest{Message: strings.Join(args, " ")}

		if path, _ := cmd.Flags().GetString("history"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			var history []provider.Message
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("parsing history %s: %w", path, err)
			}
			req.ConversationHistory = history
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}

		var ex chat.Exchange
		if err := decodeJSON(resp, &ex); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ex.Response)
		printStatus("Answered at", "%s", ex.Timestamp)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/health")
		if err != nil {
			printStatus("Server", "stopped")
			return nil
		}

		var health map[string]string
		if err := decodeJSON(resp, &health); err != nil {
			printStatus("Server", "error (%v)", err)
			return nil
		}
		printStatus("Server", "%s", health["status"])
		printStatus("Provider", "%s", health["provider"])
		printStatus("Model", "%s", health["model"])
		return nil
	},
}

func init() {
	chatCmd.Flags().String("history", "", "JSON file holding prior {role, content} turns")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Current()

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		if err := cfg.Validate(); err != nil {
			printWarning("%v", err)
		}
		printStatus("Config file", "%s", config.FilePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file. Valid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "persona version %s\n", version)
	},
}
