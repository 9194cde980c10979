package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/marcelsud/webhook-analyzer/config"
	"github.com/marcelsud/webhook-analyzer/internal/http/chi"
	"github.com/marcelsud/webhook-analyzer/internal/setup"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/rs/zerolog"
)

/* cli - operates on stored events with the same configuration as the API
 * Usage:
 *   go run cmd/cli/main.go list [limit]
 *   go run cmd/cli/main.go get <id>
 *   go run cmd/cli/main.go reanalyze <id> [forward]
 *   go run cmd/cli/main.go forward <id> [target_url]
 */

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cli list|get|reanalyze|forward [args]")
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := context.Background()

	routeLoader := routes.NewLoader()
	if cfg.RoutesFile != "" {
		if err := routeLoader.Load(cfg.RoutesFile); err != nil {
			return err
		}
	}
	store, err := setup.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)
	s, err := setup.NewService(cfg, store, routeLoader, nil, logger)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		limit := 0
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid limit %q", args[1])
			}
		}
		events, err := s.List(ctx, limit)
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Source, e.Importance, e.ForwardStatus)
		}
		return nil
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: cli get <id>")
		}
		event, err := s.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, chi.EventView(event))
	case "reanalyze":
		if len(args) < 2 {
			return fmt.Errorf("usage: cli reanalyze <id> [forward]")
		}
		outcome, err := s.Reanalyze(ctx, args[1], len(args) > 2 && args[2] == "forward")
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, chi.ActionView(outcome))
	case "forward":
		if len(args) < 2 {
			return fmt.Errorf("usage: cli forward <id> [target_url]")
		}
		target := ""
		if len(args) > 2 {
			target = args[2]
		}
		outcome, err := s.Forward(ctx, args[1], target)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, chi.ActionView(outcome))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// printJSON writes the same views the HTTP API answers with
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
