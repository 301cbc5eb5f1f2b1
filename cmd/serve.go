package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server for scenario authoring",
	Long: `Start a Model Context Protocol (MCP) server that lets an assistant inspect
accessible trees, resolve step phrases against the catalog and read the
terminal settings while a feature file is being written.

Supported transports:
  stdio             Standard I/O (default)
  streamable-http   Streamable HTTP transport

Examples:
  terminal-bdd serve
  terminal-bdd serve --transport streamable-http --port 8080
  terminal-bdd serve --cache-ttl 0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("cache-ttl", 500, "Tree cache TTL in milliseconds (0 to disable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	cacheTTLMs, _ := cmd.Flags().GetInt("cache-ttl")

	cfg := MCPConfig{
		Transport: transport,
		Port:      port,
		CacheTTL:  time.Duration(cacheTTLMs) * time.Millisecond,
	}

	provider, closeProvider, err := openProvider()
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer closeProvider()

	return newMCPServer(cfg, provider, newStore()).serve(cfg)
}
