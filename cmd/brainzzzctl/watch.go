package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brainzzz/internal/feed"
	"brainzzz/internal/model"
	"brainzzz/internal/ui"
	brainapi "brainzzz/pkg/brainzzz"
)

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var cf clientFlags
	cf.register(fs)
	reconnectMS := fs.Int("reconnect-ms", 0, "delay between reconnect attempts (0 uses the default)")
	maxAttempts := fs.Int("max-attempts", 0, "reconnect attempt budget (0 uses the default)")
	refetch := fs.Bool("refetch", false, "re-fetch and cache brains named by brain_update events")
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

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Banner(fmt.Sprintf("watching %s", client.FeedURL()))
	return client.Subscribe(ctx, brainapi.SubscribeRequest{
		ReconnectEvery: time.Duration(*reconnectMS) * time.Millisecond,
		MaxAttempts:    *maxAttempts,
		OnStateChange: func(state feed.State) {
			ui.Subtle.Printf("%s  feed %s\n", ui.Timestamp(time.Now()), state)
		},
		OnEvent: func(env model.Envelope) {
			printEvent(env)
			if !*refetch || env.Type != model.EventBrainUpdate {
				return
			}
			id, ok := eventBrainID(env)
			if !ok {
				return
			}
			if _, err := client.Snapshot(ctx, id); err != nil {
				fmt.Printf("  %s refetch brain %d: %v\n", ui.WarnIcon(), id, err)
				return
			}
			ui.Subtle.Printf("  cached brain %d\n", id)
		},
	})
}

func printEvent(env model.Envelope) {
	ts := time.Now()
	if env.TS != "" {
		if parsed, err := time.Parse(time.RFC3339, env.TS); err == nil {
			ts = parsed
		}
	}
	label := ui.Info.Sprint(env.Type)
	switch env.Type {
	case model.EventEvolutionStep:
		label = ui.Brand.Sprint(env.Type)
	case model.EventControl:
		label = ui.Warn.Sprint(env.Type)
	}
	fmt.Printf("%s  %-18s %s\n", ui.Timestamp(ts), label, compactJSON(env.Data, 100))
}

func compactJSON(raw json.RawMessage, max int) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	s := buf.String()
	if len(s) > max {
		s = s[:max-1] + "…"
	}
	return s
}

func eventBrainID(env model.Envelope) (int, bool) {
	var payload struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ID == 0 {
		return 0, false
	}
	return payload.ID, true
}
