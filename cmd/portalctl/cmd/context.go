package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"go.pilab.hu/portal/cmd/portalctl/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage portalctl configuration and contexts",
	Aliases: []string{"cfg"},
}

var getContextsCmd = &cobra.Command{
	Use:     "get-contexts",
	Short:   "Display the configured contexts",
	Aliases: []string{"get"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newPrinter()
		if len(config.GlobalConfig.Contexts) == 0 {
			out.Info("No contexts defined.")
			return nil
		}

		names := make([]string, 0, len(config.GlobalConfig.Contexts))
		for name := range config.GlobalConfig.Contexts {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			c := config.GlobalConfig.Contexts[name]
			current := ""
			if name == config.GlobalConfig.CurrentContext {
				current = "*"
			}
			user := c.Email
			if !c.LoggedIn() {
				user = "-"
			}
			rows = append(rows, []string{current, name, c.APIBaseURL, user})
		}
		// Cookies stay out of the YAML view.
		view := make(map[string]map[string]string, len(names))
		for _, name := range names {
			c := config.GlobalConfig.Contexts[name]
			view[name] = map[string]string{"api_base_url": c.APIBaseURL, "email": c.Email}
		}
		return out.Result(view, []string{"Current", "Name", "API", "User"}, rows)
	},
}

var useContextCmd = &cobra.Command{
	Use:     "use-context CONTEXT_NAME",
	Short:   "Sets the current context",
	Aliases: []string{"use"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		if _, exists := config.GlobalConfig.Contexts[name]; !exists {
			return fmt.Errorf("context '%s' not found", name)
		}
		config.GlobalConfig.CurrentContext = name
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		newPrinter().Success("Switched to context %q.", name)
		return nil
	},
}

var setContextCmd = &cobra.Command{
	Use:     "set-context CONTEXT_NAME",
	Short:   "Creates or updates a context",
	Aliases: []string{"set"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, _ := cmd.Flags().GetString("api")
		if api == "" {
			return errors.New("--api flag is required")
		}
		u, err := url.Parse(api)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("--api must be an absolute URL, got %q", api)
		}

		c := config.SetContext(args[0], api)
		if use, _ := cmd.Flags().GetBool("use"); use {
			config.GlobalConfig.CurrentContext = c.Name
		}
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		newPrinter().Success("Context %q created/modified.", c.Name)
		return nil
	},
}

var currentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Displays the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.GlobalConfig.CurrentContext == "" {
			newPrinter().Info("No current context is set.")
			return nil
		}
		fmt.Println(config.GlobalConfig.CurrentContext)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(getContextsCmd)
	configCmd.AddCommand(useContextCmd)
	configCmd.AddCommand(setContextCmd)
	configCmd.AddCommand(currentContextCmd)

	setContextCmd.Flags().String("api", "", "base URL of the portal API, e.g. http://localhost:8080/api")
	setContextCmd.Flags().Bool("use", false, "make this the current context")
}
