package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-analyzer/routes"
)

/* validate-routes - Standalone CLI tool to validate routes.yaml
 * Usage: go run cmd/validate-routes/main.go [routes.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	routesFile := "routes.yaml"
	if len(os.Args) > 1 {
		routesFile = os.Args[1]
	}

	fmt.Printf("Validating routes file: %s\n", routesFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := routes.NewLoader()
	if err := loader.Load(routesFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loadedRoutes := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d route(s):\n", len(loadedRoutes))

	for i, route := range loadedRoutes {
		target := route.TargetURL
		if target == "" {
			target = "(default FORWARD_URL)"
		}
		fmt.Printf("\n%d. Source: %s\n", i+1, route.Source)
		fmt.Printf("   Target URL:        %s\n", target)
		fmt.Printf("   Forward Threshold: %s\n", route.EffectiveThreshold())
		fmt.Printf("   Require Signature: %t\n", route.RequireSignature)
		fmt.Printf("   Own Secret:        %t\n", route.Secret != "")
	}

	fmt.Printf("\n✓ All routes are valid!\n")
	os.Exit(0)
}
