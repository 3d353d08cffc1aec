package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/slices"

	"brainzzz/internal/backend"
	"brainzzz/internal/dashboard"
	"brainzzz/internal/model"
	"brainzzz/internal/ui"
	brainapi "brainzzz/pkg/brainzzz"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var uerr *usageErr
		if errors.As(err, &uerr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "population":
		return runPopulation(ctx, args[1:])
	case "stats":
		return runStats(ctx, args[1:])
	case "view":
		return runView(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	case "evolve":
		return runEvolve(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "control":
		return runControl(ctx, args[1:])
	case "tasks":
		return runTasks(ctx, args[1:])
	case "scan":
		return runScan(ctx, args[1:])
	case "archive":
		return runArchive(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// usageErr marks operator mistakes; main exits 2 for them instead of 1.
type usageErr struct {
	msg string
}

func (e *usageErr) Error() string {
	return e.msg + "\nusage: brainzzzctl <population|stats|view|export|watch|evolve|evaluate|control|tasks|scan|archive|serve> [flags]"
}

func usageError(msg string) error {
	return &usageErr{msg: msg}
}

// clientFlags are the connection flags shared by every command that talks
// to the simulation or the archive.
type clientFlags struct {
	configPath string
	backendURL string
	feedURL    string
	archive    string
	dbPath     string
	exportDir  string
}

func (f *clientFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", defaultConfigPath, "TOML config file path")
	fs.StringVar(&f.backendURL, "backend", "", "simulation REST base url")
	fs.StringVar(&f.feedURL, "feed", "", "simulation event socket url (ws:// or wss://)")
	fs.StringVar(&f.archive, "archive", "", "archive backend: memory|sqlite")
	fs.StringVar(&f.dbPath, "db-path", "", "sqlite archive path")
	fs.StringVar(&f.exportDir, "export-dir", "", "directory receiving export files")
}

// connect loads the config file and builds the client with flag values
// taking precedence over config values.
func (f *clientFlags) connect(fs *flag.FlagSet) (*brainapi.Client, appConfig, error) {
	cfg, err := loadConfig(f.configPath, flagWasSet(fs, "config"))
	if err != nil {
		return nil, appConfig{}, err
	}
	client, err := brainapi.New(brainapi.Options{
		BackendURL:   firstNonEmpty(f.backendURL, cfg.Backend.URL),
		FeedURL:      firstNonEmpty(f.feedURL, cfg.Backend.FeedURL),
		DashboardURL: cfg.Dashboard.URL,
		ArchiveKind:  firstNonEmpty(f.archive, cfg.Archive.Backend),
		ArchivePath:  firstNonEmpty(f.dbPath, cfg.Archive.Path),
		ExportDir:    firstNonEmpty(f.exportDir, cfg.Export.Dir),
	})
	if err != nil {
		return nil, appConfig{}, err
	}
	return client, cfg, nil
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	limit := fs.Int("limit", 0, "maximum brains to list (0 lists all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.Population(ctx, *limit)
	if err != nil {
		return err
	}

	ui.Banner(fmt.Sprintf("population, %d brains", len(summaries)))
	rows := make([][]string, 0, len(summaries))
	for _, b := range summaries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", b.ID),
			humanize.Comma(int64(b.Nodes)),
			humanize.Comma(int64(b.Connections)),
			humanize.CommafWithDigits(b.GP, 2),
			fmt.Sprintf("%.3f", b.Fitness),
			humanize.Commaf(b.Age),
		})
	}
	ui.Table([]string{"ID", "NODES", "CONNS", "GP", "FITNESS", "AGE"}, rows)
	return nil
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	agg, err := client.Stats(ctx)
	if err != nil {
		return err
	}

	ui.Banner("population stats")
	fmt.Printf("  generation   %s\n", humanize.Comma(int64(agg.Generation)))
	fmt.Printf("  size         %s\n", humanize.Comma(int64(agg.Size)))
	fmt.Printf("  avg fitness  %.3f %s\n", agg.AvgFitness, ui.Bar(agg.AvgFitness, agg.MaxFitness, 24))
	fmt.Printf("  max fitness  %.3f\n", agg.MaxFitness)
	fmt.Printf("  avg nodes    %s\n", humanize.CommafWithDigits(agg.AvgNodes, 1))
	fmt.Printf("  avg conns    %s\n", humanize.CommafWithDigits(agg.AvgConnections, 1))
	return nil
}

func runEvolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evolve", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	rate := fs.Float64("rate", 0.05, "mutation rate in [0, 1]")
	size := fs.Int("size", 50, "population size in [1, 1000]")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	ack, err := client.Evolve(ctx, model.EvolveRequest{MutationRate: *rate, PopulationSize: *size})
	if err != nil {
		return err
	}
	printAck("evolution step", ack)
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	ack, err := client.Evaluate(ctx)
	if err != nil {
		return err
	}
	printAck("evaluation", ack)
	return nil
}

func runControl(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("control requires an action: ping|pause|resume|snapshot|resize")
	}
	action := args[0]
	fs := flag.NewFlagSet("control "+action, flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	size := fs.Int("size", 0, "target population size for resize")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	client, _, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	switch action {
	case "ping":
		if err := client.Health(ctx); err != nil {
			return err
		}
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		ui.Banner("backend status")
		fmt.Printf("  %s backend %s\n", ui.StatusIcon(status.Status == "healthy"), status.Status)
		names := make([]string, 0, len(status.Connections))
		for name := range status.Connections {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Printf("  %s %s\n", ui.StatusIcon(status.Connections[name]), name)
		}
		return nil
	case "pause":
		ack, err := client.Pause(ctx)
		if err != nil {
			return err
		}
		printAck("pause", ack)
		return nil
	case "resume":
		ack, err := client.Resume(ctx)
		if err != nil {
			return err
		}
		printAck("resume", ack)
		return nil
	case "snapshot":
		ack, err := client.RequestSnapshot(ctx)
		if err != nil {
			return err
		}
		printAck("snapshot request", ack)
		return nil
	case "resize":
		if *size <= 0 {
			return usageError("control resize requires --size")
		}
		ack, err := client.ResizePopulation(ctx, *size)
		if err != nil {
			return err
		}
		printAck("resize", ack)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown control action: %s", action))
	}
}

func printAck(what string, ack backend.ControlAck) {
	icon := ui.StatusIcon(true)
	if ack.Status == "warning" {
		icon = ui.WarnIcon()
	}
	msg := ack.Message
	if msg == "" {
		msg = what + " accepted"
	}
	fmt.Printf("%s %s\n", icon, msg)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	listen := fs.String("listen", "", "dashboard listen address")
	width := fs.Int("width", 0, "server-side view width")
	height := fs.Int("height", 0, "server-side view height")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(cf.configPath, flagWasSet(fs, "config"))
	if err != nil {
		return err
	}

	srv, err := dashboard.New(dashboard.Config{
		Listen:     firstNonEmpty(*listen, cfg.Dashboard.Listen),
		BackendURL: firstNonEmpty(cf.backendURL, cfg.Backend.URL),
		FeedURL:    firstNonEmpty(cf.feedURL, cfg.Backend.FeedURL),
		ViewWidth:  firstPositive(*width, cfg.View.Width),
		ViewHeight: firstPositive(*height, cfg.View.Height),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Banner("dashboard")
	return srv.Run(ctx)
}
