package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/scout"
	"github.com/sells-group/leadscout/internal/telegram"
)

var (
	scrapeKeywords    string
	scrapeLimit       int
	scrapeCategory    string
	scrapeUnsafe      bool
	scrapeConcurrency int
	scrapeDemo        bool
	scrapeSource      string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover and store channel leads for keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		keywords := splitKeywords(scrapeKeywords)
		if len(keywords) == 0 {
			return eris.New("at least one keyword is required (--keywords)")
		}

		switch scrapeSource {
		case "site":
		case "telegram":
			return runTelegramScrape(ctx, keywords)
		default:
			return eris.Errorf("unknown source %q (want site or telegram)", scrapeSource)
		}

		env, err := initScout(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if scrapeDemo {
			return runDemo(ctx, env)
		}

		var total atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(scrapeConcurrency)

		for _, kw := range keywords {
			g.Go(func() error {
				n, err := scrapeKeyword(gctx, env.Scout, kw)
				total.Add(int64(n))
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Done. %d leads collected.\n", total.Load())
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeKeywords, "keywords", "", "comma-separated keywords to scrape")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 10, "max leads per keyword")
	scrapeCmd.Flags().StringVar(&scrapeCategory, "category", "", "category tag stamped on collected leads (defaults to the keyword)")
	scrapeCmd.Flags().BoolVar(&scrapeUnsafe, "unsafe", false, "disable the content safety filter")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 1, "keywords scraped in parallel")
	scrapeCmd.Flags().BoolVar(&scrapeDemo, "demo", false, "store and print sample leads without network access")
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "site", "discovery source: site or telegram")
	rootCmd.AddCommand(scrapeCmd)
}

func splitKeywords(csv string) []string {
	var out []string
	for _, kw := range strings.Split(csv, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// scrapeKeyword runs one full discovery pass and prints progress as it goes.
func scrapeKeyword(ctx context.Context, sc *scout.Scout, keyword string) (int, error) {
	tag := scrapeCategory
	if tag == "" {
		tag = keyword
	}
	req := model.DiscoveryRequest{
		Keyword:     keyword,
		Limit:       scrapeLimit,
		CategoryTag: tag,
		SafeMode:    cfg.Scrape.SafeMode && !scrapeUnsafe,
		Mirror:      cfg.Site.Mirror,
	}

	status := make(chan string, 16)
	floodWait := make(chan int, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg, ok := <-status:
				if !ok {
					return
				}
				fmt.Println(msg)
			case secs := <-floodWait:
				fmt.Printf("Rate limited. Waiting %d seconds...\n", secs)
			}
		}
	}()

	leads, acc := sc.Run(ctx, req, discover.Events{Status: status, FloodWait: floodWait})
	count := 0
	for lead := range leads {
		count++
		fmt.Printf("  [%d] %s (@%s) - %d members\n", count, lead.Title, lead.Username, lead.MembersCount)
	}
	close(status)
	<-done

	requests, floods, found, unsafeHits, skipped := acc.Snapshot()
	zap.L().Info("keyword complete",
		zap.String("keyword", keyword),
		zap.Int("requests", requests),
		zap.Int("flood_waits", floods),
		zap.Int("found", found),
		zap.Int("unsafe", unsafeHits),
		zap.Int("skipped", skipped),
	)
	return count, ctx.Err()
}

// runTelegramScrape searches keywords through the native API. A single
// session handles all keywords, one at a time.
func runTelegramScrape(ctx context.Context, keywords []string) error {
	env, err := initTelegramSearcher(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	total := 0
	for _, kw := range keywords {
		n, err := scrapeTelegramKeyword(ctx, env.Searcher, kw)
		total += n
		if err != nil {
			return err
		}
	}
	fmt.Printf("Done. %d leads collected.\n", total)
	return nil
}

func scrapeTelegramKeyword(ctx context.Context, searcher *telegram.Searcher, keyword string) (int, error) {
	tag := scrapeCategory
	if tag == "" {
		tag = keyword
	}
	req := model.DiscoveryRequest{
		Keyword:     keyword,
		Limit:       scrapeLimit,
		CategoryTag: tag,
		SafeMode:    cfg.Scrape.SafeMode && !scrapeUnsafe,
	}

	status := make(chan string, 16)
	floodWait := make(chan int, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg, ok := <-status:
				if !ok {
					return
				}
				fmt.Println(msg)
			case secs := <-floodWait:
				fmt.Printf("Rate limited. Waiting %d seconds...\n", secs)
			}
		}
	}()

	acc := discover.NewAccumulator(cfg.Scrape.MaxRequests)
	leads := searcher.Run(ctx, req, discover.Events{Status: status, FloodWait: floodWait}, acc)
	count := 0
	for lead := range leads {
		count++
		fmt.Printf("  [%d] %s (@%s) - %d members\n", count, lead.Title, lead.Username, lead.MembersCount)
	}
	close(status)
	<-done

	requests, floods, found, unsafeHits, skipped := acc.Snapshot()
	zap.L().Info("keyword complete",
		zap.String("source", "telegram"),
		zap.String("keyword", keyword),
		zap.Int("requests", requests),
		zap.Int("flood_waits", floods),
		zap.Int("found", found),
		zap.Int("unsafe", unsafeHits),
		zap.Int("skipped", skipped),
	)
	return count, ctx.Err()
}

// runDemo seeds the store with fixture leads so the downstream commands can
// be exercised without touching the network.
func runDemo(ctx context.Context, env *scoutEnv) error {
	for _, lead := range demoLeads() {
		if err := env.Store.UpsertLead(ctx, &lead); err != nil {
			return eris.Wrap(err, "seed demo lead")
		}
		fmt.Printf("  %s (@%s) - %d members\n", lead.Title, lead.Username, lead.MembersCount)
	}
	fmt.Println("Demo data stored.")
	return nil
}

func demoLeads() []model.Lead {
	return []model.Lead{
		{
			ChannelID:    model.SyntheticChannelID("crypto_daily_demo"),
			Username:     "crypto_daily_demo",
			Title:        "Crypto Daily",
			CategoryTag:  "Crypto",
			MembersCount: 15200,
			BioText:      "Market recaps every morning. Ads: @cd_admin",
			AdminContact: "@cd_admin",
		},
		{
			ChannelID:    model.SyntheticChannelID("fx_insider_demo"),
			Username:     "fx_insider_demo",
			Title:        "FX Insider",
			CategoryTag:  "Trading",
			MembersCount: 8400,
			BioText:      "Institutional flow notes.",
		},
		{
			ChannelID:    model.SyntheticChannelID("startup_digest_demo"),
			Username:     "startup_digest_demo",
			Title:        "Startup Digest",
			CategoryTag:  "Business",
			MembersCount: 3100,
			BioText:      "Weekly founder interviews. Contact @sd_editor",
			AdminContact: "@sd_editor",
		},
	}
}
