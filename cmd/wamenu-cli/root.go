package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var (
		addr  string
		token string
	)
	cmd := &cobra.Command{
		Use:          "wamenu-cli",
		Short:        "Manage a running wamenu bot through its admin API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", envOr("WAMENU_ADDR", "http://localhost:3000"), "Bot base URL (env WAMENU_ADDR)")
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("ADMIN_TOKEN"), "Admin bearer token (env ADMIN_TOKEN)")

	api := func() *apiClient { return newAPIClient(addr, token) }

	cmd.AddCommand(newStatusCmd(api))
	cmd.AddCommand(newConfigCmd(api))
	cmd.AddCommand(newStatsCmd(api))
	cmd.AddCommand(newSendDemoCmd(api))
	return cmd
}

func newStatusCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := api().get(cmd.Context(), "/api/status")
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), raw, false)
		},
	}
}

func newStatsCmd(api func() *apiClient) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := api().get(cmd.Context(), "/api/analytics")
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), raw, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	return cmd
}

func newSendDemoCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "send-demo <to>",
		Short: "Send the default list to a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := api().sendDemo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), raw, false)
		},
	}
}

// writeOutput pretty-prints a JSON document, or converts it to YAML.
func writeOutput(w io.Writer, raw []byte, asYAML bool) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
