package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lojasmm/wamenu/internal/menu"
)

func newConfigCmd(api func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and replace the menu configuration",
	}
	cmd.AddCommand(newConfigShowCmd(api))
	cmd.AddCommand(newConfigExportCmd(api))
	cmd.AddCommand(newConfigImportCmd(api))
	cmd.AddCommand(newConfigResetCmd(api))
	return cmd
}

func newConfigShowCmd(api func() *apiClient) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:       "show [section]",
		Short:     "Print the whole configuration or one section",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: menu.Sections,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/config"
			if len(args) == 1 {
				if !menu.IsSection(args[0]) {
					return fmt.Errorf("unknown section %q (want one of %s)", args[0], strings.Join(menu.Sections, ", "))
				}
				path = "/api/" + args[0]
			}
			raw, err := api().get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), raw, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	return cmd
}

func newConfigExportCmd(api func() *apiClient) *cobra.Command {
	var (
		asYAML bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole configuration to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := api().get(cmd.Context(), "/api/config")
			if err != nil {
				return err
			}
			if out == "" {
				return writeOutput(cmd.OutOrStdout(), raw, asYAML)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeOutput(f, raw, asYAML || isYAMLPath(out)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write YAML instead of JSON")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (YAML when it ends in .yaml or .yml)")
	return cmd
}

func newConfigImportCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the whole configuration from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			body, err := configFileToJSON(args[0], data)
			if err != nil {
				return err
			}
			raw, err := api().post(cmd.Context(), "/api/config", body)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), raw, false)
		},
	}
}

func newConfigResetCmd(api func() *apiClient) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards the current configuration and stats; pass --yes to confirm")
			}
			if _, err := api().post(cmd.Context(), "/api/reset", nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "configuration reset to defaults")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

// configFileToJSON converts an import file to the JSON the admin API takes
// and checks it decodes into a menu tree before anything is sent.
func configFileToJSON(path string, data []byte) ([]byte, error) {
	body := data
	if isYAMLPath(path) {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		var err error
		if body, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("converting %s to JSON: %w", path, err)
		}
	}

	var tree menu.Tree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("%s is not a menu configuration: %w", path, err)
	}
	tree.Normalize()
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return body, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
