// Package brainzzz is the embedding facade over the dashboard toolkit:
// REST access to the simulation, server-side graph views and exports, the
// event feed, and the local snapshot archive behind one client.
package brainzzz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"brainzzz/internal/archive"
	"brainzzz/internal/backend"
	"brainzzz/internal/dashboard"
	"brainzzz/internal/feed"
	"brainzzz/internal/graphview"
	"brainzzz/internal/model"
	"brainzzz/internal/render"
	"brainzzz/internal/stats"
)

const (
	defaultArchivePath = "brainzzz.db"
	defaultExportDir   = "exports"
	defaultViewWidth   = 960
	defaultViewHeight  = 640
	defaultWorkers     = 4
)

// ExportFormats lists the supported export formats in output order.
var ExportFormats = []string{"png", "svg", "json"}

type Options struct {
	// BackendURL is the simulation REST base. Empty uses the local default.
	BackendURL string
	// FeedURL is the event socket. Empty derives ws://.../ws from BackendURL.
	FeedURL string
	// DashboardURL points Tasks at a running dashboard server. Optional.
	DashboardURL string
	// ArchiveKind selects the snapshot archive backend: "memory" or "sqlite".
	ArchiveKind string
	// ArchivePath is the sqlite file path.
	ArchivePath string
	// ExportDir receives export files when a request names no directory.
	ExportDir string
	// HTTPClient overrides the transport for REST calls.
	HTTPClient *http.Client
}

// Client bundles the simulation connections and the local archive. Safe for
// concurrent use.
type Client struct {
	backend     *backend.Client
	feedURL     string
	dashURL     string
	exportDir   string
	archiveKind string
	archivePath string
	httpClient  *http.Client

	mu    sync.Mutex
	store archive.Store
	tasks *dashboard.TasksClient
}

// ViewRequest describes one rendered view of a brain.
type ViewRequest struct {
	BrainID int
	// Width and Height size the drawing surface. Zero picks the defaults.
	Width  int
	Height int
	// Layout names the node placement. Empty picks the default layout.
	Layout       string
	ShowWeights  bool
	ShowDisabled bool
	NodeScale    float64
	// Offline renders from the archive instead of fetching.
	Offline bool
}

// ViewSummary is the settled state of a rendered view.
type ViewSummary struct {
	BrainID  int
	Layout   string
	Stats    stats.DerivedStats
	Warnings []string
	Model    graphview.Model
}

// ExportRequest renders one brain and writes the requested formats.
type ExportRequest struct {
	BrainID int
	// Formats picks png, svg, json in any combination. Empty means png.
	Formats []string
	// OutDir receives the files. Empty uses the client's export directory.
	OutDir       string
	Width        int
	Height       int
	Layout       string
	ShowWeights  bool
	ShowDisabled bool
	NodeScale    float64
	Offline      bool
}

// ExportAllRequest exports every brain in the population.
type ExportAllRequest struct {
	Formats []string
	OutDir  string
	// Limit caps the population listing; zero leaves the server default.
	Limit int
	// Workers bounds concurrent renders.
	Workers      int
	Width        int
	Height       int
	Layout       string
	ShowWeights  bool
	ShowDisabled bool
	NodeScale    float64
}

// ExportedFile describes one written export.
type ExportedFile struct {
	Path   string
	Format string
	Bytes  int
}

// ScanRequest sweeps the population for data-integrity findings.
type ScanRequest struct {
	Limit   int
	Workers int
}

// ScanReport is the finding for one brain. Err is set when the fetch or
// validation failed; the structural fields are zero then.
type ScanReport struct {
	BrainID     int
	Err         string
	Nodes       int
	Edges       int
	Enabled     int
	AllDisabled bool
	Dangling    []string
}

// SubscribeRequest configures one feed subscription.
type SubscribeRequest struct {
	// OnEvent receives every decoded envelope, in arrival order. Required.
	OnEvent func(model.Envelope)
	// OnStateChange observes connection state transitions.
	OnStateChange func(feed.State)
	// ReconnectEvery and MaxAttempts tune the retry policy. Zero picks the
	// feed defaults.
	ReconnectEvery time.Duration
	MaxAttempts    int
}

func New(opts Options) (*Client, error) {
	bc, err := backend.New(backend.Options{BaseURL: opts.BackendURL, HTTPClient: opts.HTTPClient})
	if err != nil {
		return nil, err
	}
	feedURL := opts.FeedURL
	if feedURL == "" {
		feedURL = feed.DeriveURL(bc.BaseURL())
	}
	archivePath := opts.ArchivePath
	if archivePath == "" {
		archivePath = defaultArchivePath
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = defaultExportDir
	}
	return &Client{
		backend:     bc,
		feedURL:     feedURL,
		dashURL:     opts.DashboardURL,
		exportDir:   exportDir,
		archiveKind: opts.ArchiveKind,
		archivePath: archivePath,
		httpClient:  opts.HTTPClient,
	}, nil
}

// Close releases the archive. The client must not be used afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	store := c.store
	c.store = nil
	return archive.CloseIfSupported(store)
}

// BackendURL returns the configured simulation address.
func (c *Client) BackendURL() string {
	return c.backend.BaseURL()
}

// FeedURL returns the event socket address, or "" when none could be
// derived.
func (c *Client) FeedURL() string {
	return c.feedURL
}

// Health checks that the backend answers at all.
func (c *Client) Health(ctx context.Context) error {
	return c.backend.Health(ctx)
}

// Status fetches backend health and its downstream connection states.
func (c *Client) Status(ctx context.Context) (backend.SystemStatus, error) {
	return c.backend.Status(ctx)
}

// Population lists brain summaries. A positive limit caps the result.
func (c *Client) Population(ctx context.Context, limit int) ([]model.BrainSummary, error) {
	return c.backend.Population(ctx, limit)
}

// Stats fetches the population aggregate.
func (c *Client) Stats(ctx context.Context) (model.PopulationStats, error) {
	return c.backend.Stats(ctx)
}

// Snapshot fetches one validated brain and caches it in the archive for
// offline rendering.
func (c *Client) Snapshot(ctx context.Context, id int) (*model.BrainSnapshot, error) {
	snap, err := c.backend.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.SaveSnapshot(ctx, archive.NewSnapshotRecord(*snap, time.Now())); err != nil {
		return nil, fmt.Errorf("cache brain %d: %w", id, err)
	}
	return snap, nil
}

// Evolve triggers an evolution step.
func (c *Client) Evolve(ctx context.Context, req model.EvolveRequest) (backend.ControlAck, error) {
	return c.backend.Evolve(ctx, req)
}

// Evaluate triggers a population evaluation.
func (c *Client) Evaluate(ctx context.Context) (backend.ControlAck, error) {
	return c.backend.Evaluate(ctx)
}

// Pause suspends the simulation loop.
func (c *Client) Pause(ctx context.Context) (backend.ControlAck, error) {
	return c.backend.Pause(ctx)
}

// Resume continues a paused simulation.
func (c *Client) Resume(ctx context.Context) (backend.ControlAck, error) {
	return c.backend.Resume(ctx)
}

// ResizePopulation asks the backend to grow or shrink the population.
func (c *Client) ResizePopulation(ctx context.Context, size int) (backend.ControlAck, error) {
	return c.backend.ResizePopulation(ctx, model.EvolveRequest{PopulationSize: size})
}

// RequestSnapshot asks the backend to persist a population snapshot on its
// side.
func (c *Client) RequestSnapshot(ctx context.Context) (backend.ControlAck, error) {
	return c.backend.RequestSnapshot(ctx)
}

// View renders one brain and returns the settled drawable state.
func (c *Client) View(ctx context.Context, req ViewRequest) (ViewSummary, error) {
	view, err := c.mountView(ctx, req)
	if err != nil {
		return ViewSummary{}, err
	}
	defer view.Close()

	m, err := view.Model()
	if err != nil {
		return ViewSummary{}, err
	}
	return ViewSummary{
		BrainID:  m.Brain,
		Layout:   m.State.Layout,
		Stats:    m.Stats,
		Warnings: m.Warnings,
		Model:    m,
	}, nil
}

// Export renders one brain and writes each requested format to the output
// directory under the contract filename. Every written file is recorded in
// the export journal.
func (c *Client) Export(ctx context.Context, req ExportRequest) ([]ExportedFile, error) {
	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{"png"}
	}
	for _, format := range formats {
		if format != "png" && format != "svg" && format != "json" {
			return nil, fmt.Errorf("unsupported export format: %s", format)
		}
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportDir
	}

	view, err := c.mountView(ctx, ViewRequest{
		BrainID:      req.BrainID,
		Width:        req.Width,
		Height:       req.Height,
		Layout:       req.Layout,
		ShowWeights:  req.ShowWeights,
		ShowDisabled: req.ShowDisabled,
		NodeScale:    req.NodeScale,
		Offline:      req.Offline,
	})
	if err != nil {
		return nil, err
	}
	defer view.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ExportedFile, 0, len(formats))
	for _, format := range formats {
		var buf bytes.Buffer
		switch format {
		case "png":
			err = view.ExportPNG(&buf)
		case "svg":
			err = view.ExportSVG(&buf)
		case "json":
			err = view.ExportJSON(&buf)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		name := view.Filename(format)
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		record := archive.NewExportRecord(view.BrainID(), view.State().Layout, format, name, buf.Len(), time.Now())
		if err := store.AppendExport(ctx, record); err != nil {
			return nil, fmt.Errorf("journal %s: %w", name, err)
		}
		out = append(out, ExportedFile{Path: path, Format: format, Bytes: buf.Len()})
	}
	return out, nil
}

// ExportAll exports every brain in the population with bounded concurrency.
// The first failed brain aborts the batch; files already written stay on
// disk.
func (c *Client) ExportAll(ctx context.Context, req ExportAllRequest) ([]ExportedFile, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	summaries, err := c.backend.Population(ctx, req.Limit)
	if err != nil {
		return nil, err
	}

	results := make([][]ExportedFile, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, summary := range summaries {
		g.Go(func() error {
			files, err := c.Export(gctx, ExportRequest{
				BrainID:      summary.ID,
				Formats:      req.Formats,
				OutDir:       req.OutDir,
				Width:        req.Width,
				Height:       req.Height,
				Layout:       req.Layout,
				ShowWeights:  req.ShowWeights,
				ShowDisabled: req.ShowDisabled,
				NodeScale:    req.NodeScale,
			})
			if err != nil {
				return fmt.Errorf("brain %d: %w", summary.ID, err)
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []ExportedFile
	for _, files := range results {
		out = append(out, files...)
	}
	return out, nil
}

// Scan fetches every brain and reports data-integrity findings: fetch and
// validation failures, brains whose connections are all disabled, and
// connections referencing missing neurons. Reports come back in population
// order.
func (c *Client) Scan(ctx context.Context, req ScanRequest) ([]ScanReport, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	summaries, err := c.backend.Population(ctx, req.Limit)
	if err != nil {
		return nil, err
	}

	reports := make([]ScanReport, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, summary := range summaries {
		g.Go(func() error {
			snap, err := c.backend.Snapshot(gctx, summary.ID)
			if err != nil {
				reports[i] = ScanReport{BrainID: summary.ID, Err: err.Error()}
				return nil
			}
			reports[i] = scanSnapshot(snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Subscribe follows the event feed until ctx is cancelled, the server
// closes the stream, or the reconnect budget runs out. Cancellation counts
// as a normal shutdown and returns nil.
func (c *Client) Subscribe(ctx context.Context, req SubscribeRequest) error {
	if c.feedURL == "" {
		return errors.New("feed url is not configured")
	}
	fc, err := feed.NewClient(feed.Options{
		URL:            c.feedURL,
		ReconnectEvery: req.ReconnectEvery,
		MaxAttempts:    req.MaxAttempts,
		OnEvent:        req.OnEvent,
		OnStateChange:  req.OnStateChange,
	})
	if err != nil {
		return err
	}
	if err := fc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Tasks returns the task client bound to the configured dashboard server.
func (c *Client) Tasks() (*dashboard.TasksClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tasks != nil {
		return c.tasks, nil
	}
	if c.dashURL == "" {
		return nil, errors.New("dashboard url is not configured")
	}
	tc, err := dashboard.NewTasksClient(c.dashURL, c.httpClient)
	if err != nil {
		return nil, err
	}
	c.tasks = tc
	return tc, nil
}

// CachedSnapshots lists archived brains in id order.
func (c *Client) CachedSnapshots(ctx context.Context) ([]archive.SnapshotRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListSnapshots(ctx)
}

// DropCachedSnapshot removes one archived brain and reports whether it was
// present.
func (c *Client) DropCachedSnapshot(ctx context.Context, id int) (bool, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return false, err
	}
	return store.DeleteSnapshot(ctx, id)
}

// ExportHistory lists export journal entries newest first; limit <= 0
// returns all.
func (c *Client) ExportHistory(ctx context.Context, limit int) ([]archive.ExportRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListExports(ctx, limit)
}

// PruneExportHistory keeps the newest journal entries and reports how many
// were removed.
func (c *Client) PruneExportHistory(ctx context.Context, keep int) (int, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return 0, err
	}
	return store.PruneExports(ctx, keep)
}

func (c *Client) mountView(ctx context.Context, req ViewRequest) (*graphview.View, error) {
	width := req.Width
	if width <= 0 {
		width = defaultViewWidth
	}
	height := req.Height
	if height <= 0 {
		height = defaultViewHeight
	}
	snap, err := c.fetchSnapshot(ctx, req.BrainID, req.Offline)
	if err != nil {
		return nil, err
	}
	return graphview.New(snap, render.Surface{Width: width, Height: height}, graphview.ViewState{
		Layout:       req.Layout,
		ShowWeights:  req.ShowWeights,
		ShowDisabled: req.ShowDisabled,
		NodeScale:    req.NodeScale,
	})
}

func (c *Client) fetchSnapshot(ctx context.Context, id int, offline bool) (*model.BrainSnapshot, error) {
	if !offline {
		return c.Snapshot(ctx, id)
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	record, ok, err := store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("brain %d is not in the archive", id)
	}
	snap := record.Snapshot
	return &snap, nil
}

func (c *Client) ensureStore(ctx context.Context) (archive.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	store, err := archive.NewStore(c.archiveKind, c.archivePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	c.store = store
	return c.store, nil
}

func scanSnapshot(snap *model.BrainSnapshot) ScanReport {
	report := ScanReport{
		BrainID: snap.ID,
		Nodes:   len(snap.Nodes),
		Edges:   len(snap.Connections),
	}
	for _, conn := range snap.Connections {
		if conn.Enabled {
			report.Enabled++
		}
	}
	report.AllDisabled = report.Edges > 0 && report.Enabled == 0

	_, dangling := graphview.BuildEdgeElements(snap, graphview.ViewState{ShowDisabled: true})
	for _, conn := range dangling {
		report.Dangling = append(report.Dangling, fmt.Sprintf("connection %d references a missing neuron (%d->%d)", conn.ID, conn.From, conn.To))
	}
	return report
}
