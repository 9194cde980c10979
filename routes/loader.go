package routes

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/marcelsud/webhook-analyzer/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader manages per-source configuration from routes.yaml
 * Provides in-memory lookup for fast access; it is read-only after Load
 */

// Config represents the structure of routes.yaml
type Config struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig represents a single route in the YAML file
type RouteConfig struct {
	Source           string `yaml:"source"`
	TargetURL        string `yaml:"target_url"`
	ForwardThreshold string `yaml:"forward_threshold"` // low, medium or high; default high
	RequireSignature bool   `yaml:"require_signature"`
	Secret           string `yaml:"secret"`
}

// Loader holds the loaded routes
type Loader struct {
	routes map[string]*Route
}

// NewLoader creates a new route loader
func NewLoader() *Loader {
	return &Loader{
		routes: make(map[string]*Route),
	}
}

// Load reads and parses the routes.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading routes file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing routes YAML: %w", err)
	}

	routes := make(map[string]*Route, len(config.Routes))
	for _, rc := range config.Routes {
		route := &Route{
			Source:           rc.Source,
			TargetURL:        rc.TargetURL,
			RequireSignature: rc.RequireSignature,
			Secret:           rc.Secret,
		}
		if rc.ForwardThreshold != "" {
			route.Threshold = webhook.NewImportance(rc.ForwardThreshold)
			if route.Threshold == webhook.UnknownImportance {
				return fmt.Errorf("validating route: unknown forward_threshold %q for source %s", rc.ForwardThreshold, rc.Source)
			}
		}

		if err := route.Validate(); err != nil {
			return fmt.Errorf("validating route: %w", err)
		}
		if _, dup := routes[route.Source]; dup {
			return fmt.Errorf("validating route: duplicate source %s", route.Source)
		}
		routes[route.Source] = route
	}

	l.routes = routes
	return nil
}

// Get retrieves a route by its source
func (l *Loader) Get(source string) (*Route, error) {
	route, exists := l.routes[source]
	if !exists {
		return nil, fmt.Errorf("route not found: %s", source)
	}
	return route, nil
}

// List returns all loaded routes ordered by source
func (l *Loader) List() []*Route {
	routes := make([]*Route, 0, len(l.routes))
	for _, route := range l.routes {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		return strings.Compare(routes[i].Source, routes[j].Source) < 0
	})
	return routes
}

// Exists checks if a source has a route
func (l *Loader) Exists(source string) bool {
	_, exists := l.routes[source]
	return exists
}

// Sources returns the configured source names
func (l *Loader) Sources() []string {
	sources := make([]string, 0, len(l.routes))
	for _, route := range l.List() {
		sources = append(sources, route.Source)
	}
	return sources
}

// Targets returns the distinct target URLs configured across routes
func (l *Loader) Targets() []string {
	var targets []string
	for _, route := range l.List() {
		if route.TargetURL != "" && !slices.Contains(targets, route.TargetURL) {
			targets = append(targets, route.TargetURL)
		}
	}
	return targets
}

// Policy implements webhook.PolicyLookup
func (l *Loader) Policy(source string) (webhook.SourcePolicy, bool) {
	route, exists := l.routes[source]
	if !exists {
		return webhook.SourcePolicy{}, false
	}
	return route.Policy(), true
}
