package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattjoyce/sigcheck/internal/config"
	"github.com/mattjoyce/sigcheck/internal/delivery"
	"github.com/mattjoyce/sigcheck/internal/storage"
)

func runConfigNoun(args []string) int {
	if len(args) == 0 || isHelpToken(args[0]) {
		fmt.Print(`Usage: sigcheck config <action> [flags]

Actions:
  check    Validate configuration and report problems
`)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

// runConfigCheck exits 0 when the config is usable, 1 when it fails to load,
// and 2 when it loads but some endpoint has no secret.
func runConfigCheck(args []string) int {
	fs := flagSet("config check")
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, source, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid (%s): %v\n", source, err)
		return 1
	}

	warnings := config.Warnings(cfg)
	for _, w := range warnings {
		fmt.Printf("WARNING: %s\n", w)
	}
	fmt.Printf("Configuration loaded from %s\n", source)
	fmt.Printf("  listen:    %s\n", cfg.Webhooks.Listen)
	fmt.Printf("  state:     %s\n", cfg.State.Path)
	fmt.Printf("  endpoints: %d\n", len(cfg.Webhooks.Endpoints))
	if cfg.Metrics.Enabled {
		fmt.Printf("  metrics:   %s\n", cfg.Metrics.Path)
	}
	if len(warnings) > 0 {
		return 2
	}
	fmt.Println("OK")
	return 0
}

func runDeliveriesNoun(args []string) int {
	if len(args) == 0 || isHelpToken(args[0]) {
		fmt.Print(`Usage: sigcheck deliveries <action> [flags]

Actions:
  list    Show recently verified deliveries
  show    Show one delivery including its payload
`)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	switch args[0] {
	case "list":
		return runDeliveriesList(args[1:])
	case "show":
		return runDeliveriesShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown deliveries action: %s\n", args[0])
		return 1
	}
}

func openStore(ctx context.Context, configPath string) (*delivery.Store, func(), error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(cfg.State.Path); err != nil {
		return nil, nil, fmt.Errorf("state database %s: %w", cfg.State.Path, err)
	}
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return nil, nil, err
	}
	return delivery.New(db), func() { _ = db.Close() }, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func runDeliveriesList(args []string) int {
	fs := flagSet("deliveries list")
	configPath := fs.String("config", "", "Path to configuration file")
	limit := fs.Int("limit", 20, "Maximum number of deliveries to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	store, closeFn, err := openStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeFn()

	deliveries, err := store.List(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(deliveries) == 0 {
		fmt.Println("No deliveries recorded.")
		return 0
	}

	rows := make([][]string, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, []string{
			d.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			d.ID,
			d.Endpoint,
			deref(d.Topic),
			strconv.FormatInt(d.BodySize, 10),
			shortDigest(d.BodyDigest),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RECEIVED", "ID", "ENDPOINT", "TOPIC", "BYTES", "DIGEST").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Println(t)
	return 0
}

func runDeliveriesShow(args []string) int {
	fs := flagSet("deliveries show")
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: sigcheck deliveries show [--config path] <id>")
		return 1
	}

	ctx := context.Background()
	store, closeFn, err := openStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeFn()

	d, err := store.Get(ctx, fs.Arg(0))
	if errors.Is(err, delivery.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Delivery %s not found\n", fs.Arg(0))
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("ID:          %s\n", d.ID)
	fmt.Printf("Received:    %s\n", d.ReceivedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	fmt.Printf("Endpoint:    %s\n", d.Endpoint)
	fmt.Printf("Request:     %s %s\n", d.Method, d.Path)
	fmt.Printf("Topic:       %s\n", deref(d.Topic))
	fmt.Printf("Request ID:  %s\n", deref(d.RequestID))
	fmt.Printf("Body:        %d bytes, blake3 %s\n", d.BodySize, d.BodyDigest)
	if len(d.Payload) > 0 {
		fmt.Printf("\n%s\n", d.Payload)
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
