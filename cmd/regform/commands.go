package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/careers"
	"github.com/regform/regform/internal/config"
	"github.com/regform/regform/internal/validate"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		showStatus(cmd.Context(), os.Stdout, client, cfg)
		return nil
	},
}

func showStatus(ctx context.Context, w io.Writer, client *apiClient, cfg config.Config) {
	resp, err := client.get(ctx, "/health")
	switch {
	case err != nil:
		printStatus(w, "Server", "stopped")
	case resp.StatusCode == 200:
		resp.Body.Close()
		printStatus(w, "Server", "running on port %d", cfg.Server.Port)
	default:
		resp.Body.Close()
		printStatus(w, "Server", "error (HTTP %d)", resp.StatusCode)
	}

	registry := cfg.Registry.Endpoint
	if registry == "" {
		registry = colorize(colorYellow, "not configured")
	}
	printStatus(w, "Registry", "%s", registry)
	if cfg.Careers.Org != "" {
		printStatus(w, "Careers", "%s (%s)", cfg.Careers.Org, cfg.Careers.BoardsHost)
	} else {
		printStatus(w, "Careers", "disabled")
	}
	printStatus(w, "Admin API", "%s", enabledLabel(cfg.Server.AdminToken != ""))
	printStatus(w, "Data dir", "%s", cfg.Storage.DataDir)
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// --- attempts ---

type attemptRow struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error"`
	CreatedAt string `json:"created_at"`
}

var attemptsCmd = &cobra.Command{
	Use:   "attempts <session-id>",
	Short: "List registry calls made for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if client.token == "" {
			return fmt.Errorf("admin token is required; set REGFORM_ADMIN_TOKEN")
		}
		return listAttempts(cmd.Context(), os.Stdout, client, args[0], limit)
	},
}

func init() {
	attemptsCmd.Flags().Int("limit", 20, "maximum number of attempts to list")
}

func listAttempts(ctx context.Context, w io.Writer, client *apiClient, sessionID string, limit int) error {
	path := fmt.Sprintf("/admin/sessions/%s/attempts?limit=%d", url.PathEscape(sessionID), limit)
	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	var rows []attemptRow
	if err := decodeJSON(resp, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No attempts found.")
		return nil
	}
	for _, a := range rows {
		outcome := a.Outcome
		switch outcome {
		case "accepted":
			outcome = colorize(colorGreen, outcome)
		case "failed":
			outcome = colorize(colorRed, outcome)
		}
		fmt.Fprintf(w, "%s  %s  %-10s  %s", colorize(colorCyan, a.ID[:min(8, len(a.ID))]), a.CreatedAt, a.Kind, outcome)
		if a.Error != "" {
			fmt.Fprintf(w, "  %s", a.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// --- careers ---

var careersCmd = &cobra.Command{
	Use:   "careers",
	Short: "Fetch the job board and print the grouped listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		org, _ := cmd.Flags().GetString("org")
		if org == "" {
			org = cfg.Careers.Org
		}
		if org == "" {
			return fmt.Errorf("no job board organization; pass --org or set careers.org")
		}
		priority := careers.DefaultPriority
		if cfg.Careers.PriorityFile != "" {
			if priority, err = careers.LoadPriority(cfg.Careers.PriorityFile); err != nil {
				return err
			}
		}

		jobs, err := careers.NewClient(cfg.Careers.BoardsHost, org, 15*time.Second).Jobs(cmd.Context())
		if err != nil {
			return err
		}
		printListing(os.Stdout, careers.Build(jobs, priority))
		return nil
	},
}

func init() {
	careersCmd.Flags().String("org", "", "job board organization (default: careers.org)")
}

func printListing(w io.Writer, l careers.Listing) {
	if l.Empty() {
		fmt.Fprintln(w, "No open positions.")
		return
	}
	for _, s := range l.Sections {
		fmt.Fprintln(w, colorize(colorBold, s.Department))
		for _, o := range s.Openings {
			fmt.Fprintf(w, "  %s (%s)\n", o.Title, strings.Join(o.Locations, " / "))
			for _, link := range o.Links() {
				fmt.Fprintf(w, "    %s\n", link)
			}
		}
	}
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate <field> <value>",
	Short: "Check a value against a field's validation rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		required, _ := cmd.Flags().GetBool("required")
		msg, err := checkValue(args[0], args[1], required, time.Now)
		if err != nil {
			return err
		}
		if msg != "" {
			return fmt.Errorf("%s: %s", args[0], msg)
		}
		printSuccess("%s is valid", args[0])
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("required", false, "treat an empty value as missing")
}

func checkValue(field, value string, required bool, now func() time.Time) (string, error) {
	v := validate.New(answers.NewMemory(nil), validate.DefaultRules(), validate.WithClock(now))
	if _, ok := v.Rule(field); !ok {
		return "", fmt.Errorf("no validation rule for field %q", field)
	}
	return v.Validate(field, value, required)
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
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
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

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
