package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_titlegen/internal/curate"
	"github.com/anatolykoptev/go_titlegen/internal/dataset"
	"github.com/anatolykoptev/go_titlegen/internal/engine"
	"github.com/anatolykoptev/go_titlegen/internal/finetune"
	"github.com/anatolykoptev/go_titlegen/internal/ledger"
	"github.com/anatolykoptev/go_titlegen/internal/pipeline"
	"github.com/anatolykoptev/go_titlegen/internal/titleserver"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func (a *app) dispatch(cmd string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return a.serve()
	case "fetch":
		return a.fetch(ctx, args)
	case "channel":
		return a.channelTitles(ctx, args)
	case "category":
		return a.category(args)
	case "curate":
		return a.curate(ctx, args)
	case "train":
		return a.train(ctx, args)
	case "title":
		return a.title(ctx, args)
	case "ledger":
		return a.ledgerReport(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage())
}

func (a *app) serve() error {
	port := env.Str("MCP_PORT", "8891")
	slog.Info("starting go_titlegen", slog.String("port", port))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_titlegen",
		Version: version,
	}, nil)

	ts := &titleserver.Server{
		Transcripts:    a.transcripts(),
		Cache:          a.cache,
		Ledger:         a.ledger,
		ChannelOptions: pipeline.Options{Workers: a.cfg.ChannelWorkers, ItemTimeout: a.cfg.ItemTimeout},
	}
	if a.titles != nil {
		ts.Titles = a.titles
		ts.Channel, _ = a.channel()
	}
	if a.judge != nil {
		ts.Judge = a.judge
	}
	ts.RegisterTools(server)

	return mcpserver.Run(server, mcpserver.Config{
		Name:         "go_titlegen",
		Version:      version,
		Port:         port,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	})
}

func (a *app) fetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	in := fs.String("in", filepath.Join(a.cfg.DataDir, "urls.txt"), "file with one video URL per line")
	out := fs.String("out", filepath.Join(a.cfg.DataDir, "training_data.json"), "output JSON")
	workers := fs.Int("workers", a.cfg.MaxWorkers, "concurrent workers")
	bar := fs.Bool("progress", true, "draw a progress bar on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	urls, err := pipeline.ReadLinesFile(*in)
	if err != nil {
		return err
	}
	slog.Info("fetching transcripts", slog.Int("urls", len(urls)), slog.Int("workers", *workers))

	run := ledger.NewRunID()
	records, stats := a.transcripts().Fetch(ctx, urls,
		a.poolOptions(*workers, "Fetching Transcripts", *bar),
		record[dataset.VideoRecord](ctx, a, run, "fetch")...)
	a.logRun(run, stats)

	if len(records) == 0 {
		fmt.Fprintln(stdout, "No videos with transcripts were found.")
		return nil
	}
	if err := dataset.SaveJSON(*out, records, dataset.TranscriptsIndent); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Successfully saved %d videos to %s\n", len(records), *out)
	return nil
}

func (a *app) channelTitles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("channel", flag.ContinueOnError)
	ref := fs.String("ref", "", "channel handle (@name), URL or UC... ID")
	out := fs.String("out", "", "output JSON (default DATA_DIR/<name>_titles.json)")
	workers := fs.Int("workers", a.cfg.ChannelWorkers, "concurrent workers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-ref is required")
	}
	ch, err := a.channel()
	if err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join(a.cfg.DataDir, channelSlug(*ref)+"_titles.json")
	}

	run := ledger.NewRunID()
	results, stats, err := ch.Run(ctx, *ref, a.poolOptions(*workers, "Generating Titles", true),
		record[dataset.ChannelTitle](ctx, a, run, "channel")...)
	if err != nil {
		return err
	}
	a.logRun(run, stats)

	if len(results) == 0 {
		fmt.Fprintln(stdout, "No videos processed successfully.")
		return nil
	}
	if err := dataset.SaveJSON(*out, results, dataset.ChannelIndent); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Results saved to: %s\n\n", *out)
	fmt.Fprint(stdout, dataset.FormatChannelSummary(results))
	return nil
}

// channelSlug turns "@name" or ".../@name/videos" into "name".
func channelSlug(ref string) string {
	ref = strings.TrimRight(ref, "/")
	ref = strings.TrimSuffix(ref, "/videos")
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.TrimPrefix(ref, "@")
	if ref == "" {
		return "channel"
	}
	return ref
}

func (a *app) category(args []string) error {
	fs := flag.NewFlagSet("category", flag.ContinueOnError)
	in := fs.String("in", filepath.Join(a.cfg.DataDir, "kaggle", "extracted", "US_youtube_trending_data.csv"), "trending videos CSV")
	cat := fs.Int("category", curate.DefaultCategory, "categoryId to keep")
	out := fs.String("out", "", "output CSV (default category_<id>_videos.csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		*out = fmt.Sprintf("category_%d_videos.csv", *cat)
	}

	src, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(*out)
	if err != nil {
		return err
	}

	stats, err := curate.FilterCategory(src, dst, *cat)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	slog.Info("category filtered",
		slog.Int("scanned", stats.Scanned),
		slog.Int("matched", stats.Matched),
		slog.Int("duplicates", stats.Duplicates))
	fmt.Fprintf(stdout, "Saved %d unique videos to %s\n", stats.Written, *out)
	return nil
}

func (a *app) curate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("curate", flag.ContinueOnError)
	in := fs.String("in", "category_28_videos.csv", "category CSV to judge")
	out := fs.String("out", "category_28_videos_filtered.csv", "kept rows")
	removed := fs.String("removed", "category_28_videos_removed.csv", "removed rows with reasons")
	workers := fs.Int("workers", a.cfg.MaxWorkers, "concurrent workers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.judge == nil {
		return errors.New("LLM_API_KEY (or GEMINI_API_KEY) is required")
	}

	src, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer src.Close()
	kept, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer kept.Close()
	rem, err := os.Create(*removed)
	if err != nil {
		return err
	}
	defer rem.Close()

	stats, err := a.judge.Curate(ctx, src, kept, rem, a.poolOptions(*workers, "Filtering Videos", true))
	if err != nil {
		// Partial outputs would pass for a finished run.
		_ = os.Remove(*out)
		_ = os.Remove(*removed)
		return err
	}
	fmt.Fprintf(stdout, "Kept %d of %d videos (%d removed, %d failed)\nSaved to %s, removed rows in %s\n",
		stats.Kept, stats.Total, stats.Removed, stats.Failed, *out, *removed)
	return nil
}

func (a *app) train(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	in := fs.String("in", filepath.Join(a.cfg.DataDir, "training_data.json"), "training_data.json")
	out := fs.String("out", finetune.DefaultJSONLName, "JSONL output")
	sample := fs.Int("sample", finetune.DefaultSampleSize, "max examples")
	seed := fs.Uint64("seed", 0, "sampling seed (0 = random)")
	model := fs.String("model", a.cfg.FinetuneBaseModel, "base model to fine-tune")
	suffix := fs.String("suffix", finetune.DefaultSuffix, "fine-tuned model suffix")
	prepareOnly := fs.Bool("prepare-only", false, "write the JSONL and stop")
	status := fs.String("status", "", "print the state of an existing job and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var client *finetune.Client
	if a.cfg.OpenAIAPIKey != "" {
		client = finetune.NewClient(a.cfg.OpenAIAPIBase, a.cfg.OpenAIAPIKey)
	}

	if *status != "" {
		if client == nil {
			return errors.New("OPENAI_API_KEY is required")
		}
		job, err := client.GetJob(ctx, *status)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Job %s: %s\n", job.ID, job.Status)
		if job.FineTunedModel != "" {
			fmt.Fprintf(stdout, "Model: %s\n", job.FineTunedModel)
		}
		return nil
	}

	opts := finetune.PrepareOptions{SampleSize: *sample}
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(*seed, *seed))
	}
	stats, err := finetune.PrepareFile(*in, *out, opts)
	if err != nil {
		return err
	}
	slog.Info("training data prepared",
		slog.Int("loaded", stats.Loaded),
		slog.Int("valid", stats.Valid),
		slog.Int("written", stats.Written),
		slog.String("path", *out))
	if *prepareOnly {
		return nil
	}
	if client == nil {
		return errors.New("OPENAI_API_KEY is required to submit the job")
	}

	job, err := client.Submit(ctx, *out, *model, *suffix)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Fine-tuning job started: %s\nCheck progress with: go_titlegen train -status %s\n", job.ID, job.ID)
	return nil
}

func (a *app) title(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("title", flag.ContinueOnError)
	url := fs.String("url", "", "take the transcript from this video")
	n := fs.Int("n", dataset.DefaultVariations, "number of variations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.titles == nil {
		return errors.New("OPENAI_API_KEY and TITLE_MODEL are required")
	}

	transcript := strings.Join(fs.Args(), " ")
	if *url != "" {
		o := a.transcripts().Process(ctx, *url)
		if o.Kind != pipeline.KindSuccess {
			return fmt.Errorf("no transcript for %s: %s", *url, o.Reason)
		}
		transcript = o.Value.FullTranscript
		fmt.Fprintf(stdout, "Current title: %s\n", o.Value.Title)
	}
	if strings.TrimSpace(transcript) == "" {
		return errors.New("pass a transcript as arguments or -url")
	}

	titles := a.titles.GenerateTitles(ctx, transcript, *n)
	if len(titles) == 0 {
		return errors.New("title model returned no titles")
	}
	fmt.Fprintf(stdout, "Generated %d titles:\n", len(titles))
	for i, t := range titles {
		fmt.Fprintf(stdout, "%d. %s\n", i+1, t)
	}
	return nil
}

func (a *app) ledgerReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	run := fs.String("run", "", "run id printed at the end of a fetch or channel run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.ledger == nil {
		return errors.New("run ledger is not available")
	}
	if *run == "" {
		return errors.New("-run is required")
	}

	st, err := a.ledger.Summary(ctx, *run)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Run %s: %d requested, %d succeeded, %d skipped, %d failed\n",
		*run, st.Requested, st.Succeeded, st.Skipped, st.Failed)

	problems, err := a.ledger.Problems(ctx, *run)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintf(stdout, "  [%s] %s: %s\n", p.Status, p.Identifier, p.Reason)
	}
	return nil
}
