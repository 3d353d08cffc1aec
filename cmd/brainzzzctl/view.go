package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/slices"

	"brainzzz/internal/model"
	"brainzzz/internal/nn"
	"brainzzz/internal/stats"
	"brainzzz/internal/ui"
	brainapi "brainzzz/pkg/brainzzz"
)

// viewFlags are the rendering flags shared by view and export.
type viewFlags struct {
	width        int
	height       int
	layout       string
	showWeights  bool
	showDisabled bool
	nodeScale    float64
}

func (f *viewFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.width, "width", 0, "surface width in pixels")
	fs.IntVar(&f.height, "height", 0, "surface height in pixels")
	fs.StringVar(&f.layout, "layout", "", "node layout: concentric|circle|grid|random")
	fs.BoolVar(&f.showWeights, "weights", false, "label edges with weight and plasticity")
	fs.BoolVar(&f.showDisabled, "disabled", false, "show disabled connections")
	fs.Float64Var(&f.nodeScale, "node-scale", 0, "node size multiplier")
}

// request merges flag values over the config file's view section.
func (f *viewFlags) request(fs *flag.FlagSet, cfg appConfig) brainapi.ViewRequest {
	showWeights := cfg.View.ShowWeights
	if flagWasSet(fs, "weights") {
		showWeights = f.showWeights
	}
	showDisabled := cfg.View.ShowDisabled
	if flagWasSet(fs, "disabled") {
		showDisabled = f.showDisabled
	}
	nodeScale := f.nodeScale
	if nodeScale == 0 {
		nodeScale = cfg.View.NodeScale
	}
	return brainapi.ViewRequest{
		Width:        firstPositive(f.width, cfg.View.Width),
		Height:       firstPositive(f.height, cfg.View.Height),
		Layout:       firstNonEmpty(f.layout, cfg.View.Layout),
		ShowWeights:  showWeights,
		ShowDisabled: showDisabled,
		NodeScale:    nodeScale,
	}
}

func runView(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	var cf clientFlags
	var vf viewFlags
	cf.register(fs)
	vf.register(fs)
	brain := fs.Int("brain", 0, "brain id")
	offline := fs.Bool("offline", false, "render from the archive without fetching")
	exportSpec := fs.String("export", "", "also export: comma-separated png,svg,json")
	outDir := fs.String("out", "", "export output directory")
	preview := fs.Bool("preview", false, "run a forward pass and chart node activations")
	inputsSpec := fs.String("inputs", "", "forward-pass inputs as id=value pairs, comma separated")
	plasticityRule := fs.String("plasticity", "", "after the preview, apply one plasticity step: hebbian|oja")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *brain <= 0 {
		return usageError("view requires --brain")
	}
	if *plasticityRule != "" && !*preview {
		return usageError("--plasticity requires --preview")
	}

	client, cfg, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := vf.request(fs, cfg)
	req.BrainID = *brain
	req.Offline = *offline

	summary, err := client.View(ctx, req)
	if err != nil {
		return err
	}

	ui.Banner(fmt.Sprintf("brain %d, %s layout", summary.BrainID, summary.Layout))
	printDerived(summary.Stats)
	for _, warning := range summary.Warnings {
		fmt.Printf("  %s %s\n", ui.WarnIcon(), warning)
	}

	if *preview {
		if err := printPreview(summary, *inputsSpec, *plasticityRule); err != nil {
			return err
		}
	}

	if *exportSpec != "" {
		files, err := client.Export(ctx, brainapi.ExportRequest{
			BrainID:      *brain,
			Formats:      splitFormats(*exportSpec),
			OutDir:       *outDir,
			Width:        req.Width,
			Height:       req.Height,
			Layout:       req.Layout,
			ShowWeights:  req.ShowWeights,
			ShowDisabled: req.ShowDisabled,
			NodeScale:    req.NodeScale,
			Offline:      *offline,
		})
		if err != nil {
			return err
		}
		fmt.Println()
		printExported(files)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var cf clientFlags
	var vf viewFlags
	cf.register(fs)
	vf.register(fs)
	brain := fs.Int("brain", 0, "brain id")
	all := fs.Bool("all", false, "export the whole population")
	formats := fs.String("formats", "png", "comma-separated png,svg,json")
	outDir := fs.String("out", "", "output directory")
	workers := fs.Int("workers", 0, "concurrent renders for --all")
	limit := fs.Int("limit", 0, "population cap for --all")
	offline := fs.Bool("offline", false, "render from the archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*all && *brain <= 0 {
		return usageError("export requires --brain or --all")
	}
	if *all && *offline {
		return usageError("--offline exports a single --brain")
	}

	client, cfg, err := cf.connect(fs)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := vf.request(fs, cfg)

	var files []brainapi.ExportedFile
	if *all {
		files, err = client.ExportAll(ctx, brainapi.ExportAllRequest{
			Formats:      splitFormats(*formats),
			OutDir:       *outDir,
			Limit:        *limit,
			Workers:      *workers,
			Width:        req.Width,
			Height:       req.Height,
			Layout:       req.Layout,
			ShowWeights:  req.ShowWeights,
			ShowDisabled: req.ShowDisabled,
			NodeScale:    req.NodeScale,
		})
	} else {
		files, err = client.Export(ctx, brainapi.ExportRequest{
			BrainID:      *brain,
			Formats:      splitFormats(*formats),
			OutDir:       *outDir,
			Width:        req.Width,
			Height:       req.Height,
			Layout:       req.Layout,
			ShowWeights:  req.ShowWeights,
			ShowDisabled: req.ShowDisabled,
			NodeScale:    req.NodeScale,
			Offline:      *offline,
		})
	}
	if err != nil {
		return err
	}

	ui.Banner(fmt.Sprintf("exported %d files", len(files)))
	printExported(files)
	return nil
}

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	workers := fs.Int("workers", 0, "concurrent fetches")
	limit := fs.Int("limit", 0, "population cap")
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

	reports, err := client.Scan(ctx, brainapi.ScanRequest{Limit: *limit, Workers: *workers})
	if err != nil {
		return err
	}

	ui.Banner(fmt.Sprintf("integrity scan, %d brains", len(reports)))
	findings := 0
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		status := ui.StatusIcon(true)
		note := ""
		switch {
		case r.Err != "":
			status = ui.StatusIcon(false)
			note = r.Err
			findings++
		case r.AllDisabled:
			status = ui.WarnIcon()
			note = "all connections disabled"
			findings++
		case len(r.Dangling) > 0:
			status = ui.WarnIcon()
			note = fmt.Sprintf("%d dangling connections", len(r.Dangling))
			findings++
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.BrainID),
			fmt.Sprintf("%d", r.Nodes),
			fmt.Sprintf("%d/%d", r.Enabled, r.Edges),
			status,
			note,
		})
	}
	ui.Table([]string{"ID", "NODES", "EDGES", "", "FINDING"}, rows)
	for _, r := range reports {
		for _, d := range r.Dangling {
			fmt.Printf("  %s brain %d: %s\n", ui.WarnIcon(), r.BrainID, d)
		}
	}
	if findings > 0 {
		fmt.Printf("\n%d brains with findings\n", findings)
	} else {
		fmt.Printf("\n%s population clean\n", ui.StatusIcon(true))
	}
	return nil
}

func printDerived(d stats.DerivedStats) {
	var types []string
	for _, t := range []string{model.NodeInput, model.NodeHidden, model.NodeMemory, model.NodeOutput} {
		if n := d.NodesByType[t]; n > 0 {
			types = append(types, fmt.Sprintf("%d %s", n, t))
		}
	}
	fmt.Printf("  nodes       %d (%s)\n", d.Nodes, strings.Join(types, ", "))
	fmt.Printf("  edges       %d enabled of %d, density %.3f\n", d.EnabledEdges, d.TotalEdges, d.Density)
	fmt.Printf("  weights     mean %+.3f, std %.3f, %d positive, %d negative, %d strong\n",
		d.WeightMean, d.WeightStd, d.PositiveEdges, d.NegativeEdges, d.StrongEdges)
	fmt.Printf("  plasticity  mean %.3f\n", d.PlasticityMean)
	fmt.Printf("  bias        [%.2f, %.2f], threshold [%.2f, %.2f]\n",
		d.BiasMin, d.BiasMax, d.ThresholdMin, d.ThresholdMax)
}

// previewSnapshot rebuilds a snapshot from the rendered elements. Hidden
// disabled edges are irrelevant to the pass and dangling edges are already
// filtered out.
func previewSnapshot(summary brainapi.ViewSummary) *model.BrainSnapshot {
	snap := &model.BrainSnapshot{ID: summary.BrainID}
	for _, n := range summary.Model.Nodes {
		snap.Nodes = append(snap.Nodes, model.Node{
			ID:         n.ID,
			Type:       n.Type,
			Activation: n.Activation,
			Bias:       n.Bias,
			Threshold:  n.Threshold,
		})
	}
	for _, e := range summary.Model.Edges {
		snap.Connections = append(snap.Connections, model.Connection{
			ID:         e.ID,
			From:       e.From,
			To:         e.To,
			Weight:     e.Weight,
			Plasticity: e.Plasticity,
			Enabled:    e.Enabled,
		})
	}
	return snap
}

func printPreview(summary brainapi.ViewSummary, inputsSpec, plasticityRule string) error {
	snap := previewSnapshot(summary)
	inputs, err := parseInputs(inputsSpec)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		inputs = make(map[int]float64)
		for _, n := range snap.Nodes {
			if n.Type == model.NodeInput {
				inputs[n.ID] = 1
			}
		}
	}

	values, substituted, err := nn.Forward(snap, inputs)
	if err != nil {
		return err
	}
	for _, name := range substituted {
		fmt.Printf("  %s unknown activation %q, substituted identity\n", ui.WarnIcon(), name)
	}

	byID := make(map[int]model.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}
	ids := make([]int, 0, len(values))
	maxAbs := 0.0
	for id, v := range values {
		ids = append(ids, id)
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}
	slices.Sort(ids)
	if maxAbs == 0 {
		maxAbs = 1
	}

	fmt.Println()
	for _, id := range ids {
		n := byID[id]
		fmt.Printf("  %4d %-7s %-9s %s %+.3f\n",
			id, n.Type, n.Activation, ui.Bar(math.Abs(values[id]), maxAbs, 16), values[id])
	}

	if plasticityRule != "" {
		changed, err := nn.ApplyPlasticity(snap, values, plasticityRule)
		if err != nil {
			return err
		}
		fmt.Printf("\n  %s step adapted %d of %d connections\n",
			nn.NormalizePlasticityRuleName(plasticityRule), changed, len(snap.Connections))
	}
	return nil
}

func parseInputs(spec string) (map[int]float64, error) {
	if spec == "" {
		return nil, nil
	}
	inputs := make(map[int]float64)
	for _, pair := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, usageError(fmt.Sprintf("bad input %q, want id=value", pair))
		}
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, usageError(fmt.Sprintf("bad input id %q", key))
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, usageError(fmt.Sprintf("bad input value %q", value))
		}
		inputs[id] = v
	}
	return inputs, nil
}

func splitFormats(spec string) []string {
	var formats []string
	for _, f := range strings.Split(spec, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, strings.ToLower(f))
		}
	}
	return formats
}

func printExported(files []brainapi.ExportedFile) {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Format, f.Path, humanize.Bytes(uint64(f.Bytes))})
	}
	ui.Table([]string{"FORMAT", "FILE", "SIZE"}, rows)
}
