// Command debugdiscover prints the candidate documents found for one seed
// without fetching them. Settings come from the environment (DOCWATCH_*).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hyperifyio/docwatch/internal/app"
	"github.com/hyperifyio/docwatch/internal/discover"
	"github.com/hyperifyio/docwatch/internal/fetch"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: debugdiscover <seed-url>")
		os.Exit(2)
	}
	seed := os.Args[1]

	var cfg app.Config
	app.ApplyEnvToConfig(&cfg)
	ua := cfg.UserAgent
	if ua == "" {
		ua = "debugdiscover/1.0"
	}
	client := &fetch.Client{HTTPClient: &http.Client{Timeout: 20 * time.Second}, UserAgent: ua, MaxAttempts: 2}

	var d discover.Discoverer = &discover.HTMLDiscoverer{Getter: client, Extensions: cfg.Extensions}
	if cfg.DiscoveryFile != "" {
		d = &discover.FileDiscoverer{Path: cfg.DiscoveryFile, Extensions: cfg.Extensions, Fallback: d}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	cands, err := d.Discover(ctx, seed)
	fmt.Println("err:", err)
	for i, c := range cands {
		fmt.Printf("%d. [%s] %s\n", i+1, c.Kind, c.URL)
	}
}
