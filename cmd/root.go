// Command wiretap runs a logging proxy between a coding-agent CLI and
// its upstream API.
//
// Usage:
//
//	Claude Code: wiretap --mode claude
//	Codex CLI:   wiretap --mode codex
//
// Then point the CLI at the proxy:
//
//	ANTHROPIC_BASE_URL=http://localhost:8000 claude
//	OPENAI_BASE_URL=http://localhost:8000 codex
package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wiretap-labs/wiretap/internal/config"
	"github.com/wiretap-labs/wiretap/internal/proxy"
)

var (
	modeFlag    string
	hostFlag    string
	portFlag    int
	logFileFlag string
	configFlag  string
	debugFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "wiretap",
	Short:         "Logging proxy for coding agent CLIs",
	Long:          "wiretap forwards coding-agent API requests to the upstream provider\nwhile recording every exchange to an in-memory history and a JSONL audit log.",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVar(&modeFlag, "mode", "claude", "client to proxy for ("+joinModes()+")")
	rootCmd.Flags().StringVar(&hostFlag, "host", config.DefaultHost, "listen address")
	rootCmd.Flags().IntVar(&portFlag, "port", config.DefaultPort, "listen port")
	rootCmd.Flags().StringVar(&logFileFlag, "log-file", "", "audit log path (default "+config.DefaultAuditLogPath+")")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "optional YAML config file")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "enable debug logging (includes stream chunks)")
}

func joinModes() string {
	out := ""
	for i, name := range config.ModeNames() {
		if i > 0 {
			out += "|"
		}
		out += name
	}
	return out
}

func run(cmd *cobra.Command) error {
	cfg := config.Default(modeFlag)

	if configFlag != "" {
		if err := cfg.LoadFile(configFlag); err != nil {
			return err
		}
	}

	// Flags override the file when set explicitly.
	if cmd.Flags().Changed("mode") || cfg.Mode == "" {
		cfg.Mode = modeFlag
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = hostFlag
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}
	if logFileFlag != "" {
		cfg.AuditLogPath = logFileFlag
	}
	if debugFlag {
		cfg.Debug = true
	}

	if err := cfg.Finalize(); err != nil {
		return err
	}

	setupLogging(cfg.Debug)

	profile := cfg.Profile()
	if cfg.Credential == "" {
		log.Warn().Str("env", profile.CredentialEnv).Msg("credential not set; upstream will reject authenticated requests")
	}

	p, err := proxy.New(cfg)
	if err != nil {
		return fmt.Errorf("start proxy: %w", err)
	}

	log.Info().
		Str("mode", profile.Mode).
		Str("upstream", profile.UpstreamBaseURL).
		Msgf("Starting %s Proxy Server", profile.DisplayName)
	log.Info().Msgf("Configure with: %s=http://%s", profile.ClientEnv, cfg.ListenAddr())
	log.Info().Msgf("Dashboard: http://%s/dashboard", cfg.ListenAddr())
	log.Info().Str("path", cfg.AuditLogPath).Msg("Logging exchanges to file")

	return p.Start()
}
