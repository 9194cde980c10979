package main

import (
	"fmt"
	"io"
	"os"

	"github.com/marcelsud/webhook-analyzer/config"
	"github.com/marcelsud/webhook-analyzer/webhook/signature"
)

/* sign - prints the signature header for a payload
 * Usage:
 *   go run cmd/sign/main.go payload.json   (secret from WEBHOOK_SECRET)
 *   cat payload.json | go run cmd/sign/main.go
 *   go run cmd/sign/main.go -generate      (prints a new random secret)
 */

const secretBytes = 32

func main() {
	if len(os.Args) > 1 && os.Args[1] == "-generate" {
		secret, err := signature.GenerateSecret(secretBytes)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(secret)
		return
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.WebhookSecret == "" {
		fmt.Fprintln(os.Stderr, "WEBHOOK_SECRET is not set")
		os.Exit(1)
	}

	body, err := readPayload(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", signature.Header, signature.Sign(body, cfg.WebhookSecret))
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}
