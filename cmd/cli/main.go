package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/app"
	"github.com/hamed0406/apistatus/internal/config"
	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/monitor"
	"github.com/hamed0406/apistatus/internal/probe"
)

const usage = `usage: cli [--json] <command>

commands:
  list          print the latest status of every target
  show <name>   print one target with its history
  probe <url>   check a URL once and print the classification (nothing is stored)
`

func main() {
	_ = godotenv.Load()
	asJSON := pflag.Bool("json", false, "print JSON instead of a table")
	pflag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.FromEnv()
	var err error
	switch args[0] {
	case "list":
		err = list(ctx, cfg, *asJSON)
	case "show":
		if len(args) < 2 {
			pflag.Usage()
			os.Exit(2)
		}
		err = show(ctx, cfg, strings.Join(args[1:], " "), *asJSON)
	case "probe":
		if len(args) != 2 {
			pflag.Usage()
			os.Exit(2)
		}
		err = probeOnce(ctx, cfg, args[1], *asJSON)
	default:
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore is swapped in tests.
var openStore = app.OpenStore

func list(ctx context.Context, cfg config.Config, asJSON bool) (err error) {
	store, closeStore, err := openStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore(ctx)) }()

	docs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(docs)
	}
	if len(docs) == 0 {
		fmt.Println("No statuses recorded yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tRESPONSE\tLAST CHECKED\tMESSAGE")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Status, millis(d.ResponseTimeMS), d.LastChecked, d.Message)
	}
	return w.Flush()
}

func show(ctx context.Context, cfg config.Config, name string, asJSON bool) (err error) {
	store, closeStore, err := openStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore(ctx)) }()

	doc, err := store.Get(ctx, name)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("no status recorded for %q", name)
	}
	if asJSON {
		return printJSON(doc)
	}
	fmt.Printf("%s: %s (%s) %s, checked %s\n", doc.Name, doc.Status, doc.Message, millis(doc.ResponseTimeMS), doc.LastChecked)
	for _, h := range doc.History {
		fmt.Printf("  %s  %-6s %s\n", h.Date, h.Status, millis(h.ResponseTimeMS))
	}
	return nil
}

func probeOnce(ctx context.Context, cfg config.Config, url string, asJSON bool) error {
	res := probe.NewHTTPChecker(cfg.CheckTimeout).Check(ctx, url)
	obs := monitor.Classifier{SlowAfter: cfg.SlowThreshold, Location: cfg.Location()}.Classify(res)
	if asJSON {
		return printJSON(map[string]any{
			"url":          url,
			"httpStatus":   res.StatusCode,
			"status":       obs.Status,
			"message":      obs.Message,
			"responseTime": obs.ResponseTimeMS,
			"lastChecked":  obs.LastChecked,
		})
	}
	fmt.Printf("%s: %s (%s) %s http=%d %s\n", url, obs.Status, obs.Message, millis(obs.ResponseTimeMS), res.StatusCode, res.Message)
	if obs.Status == domain.StatusDown {
		dns := probe.Diagnose(ctx, url)
		fmt.Printf("  dns: %s ips=%v cname=%s %s\n", dns.Class, dns.IPs, dns.CNAME, dns.ResolverError)
	}
	return nil
}

func millis(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return fmt.Sprintf("%d ms", *ms)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
