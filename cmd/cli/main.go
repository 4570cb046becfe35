package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"codearena/internal/cli/command"
	"codearena/internal/cli/config"
	httpclient "codearena/internal/cli/http"
	"codearena/internal/cli/repl"
	"codearena/internal/cli/state"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	gatewayURL := flag.String("gateway", "", "Override gateway base URL")
	checkURL := flag.String("check", "", "Override check service base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 30s)")
	token := flag.String("token", "", "Override access token")
	apiKey := flag.String("apikey", "", "Override internal api key")
	statePath := flag.String("state", "", "Override token state path")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return
	}
	if *gatewayURL != "" {
		cfg.GatewayURL = *gatewayURL
	}
	if *checkURL != "" {
		cfg.CheckURL = *checkURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.TokenStatePath = *statePath
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	tokenState, err := state.Load(cfg.TokenStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load token state failed: %v\n", err)
		return
	}
	if *token != "" {
		tokenState.AccessToken = *token
	}
	if *apiKey != "" {
		tokenState.InternalAPIKey = *apiKey
	}

	headers := func() map[string]string {
		return map[string]string{
			"x-access-token":     tokenState.AccessToken,
			"x-internal-api-key": tokenState.InternalAPIKey,
		}
	}
	gateway := httpclient.New(cfg.GatewayURL, cfg.Timeout, headers)
	check := httpclient.New(cfg.CheckURL, cfg.Timeout, headers)

	session, err := repl.New(gateway, check, command.Registry(), &tokenState, cfg.TokenStatePath, cfg.PrettyJSON != nil && *cfg.PrettyJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init repl failed: %v\n", err)
		return
	}
	session.Run(context.Background())
}
