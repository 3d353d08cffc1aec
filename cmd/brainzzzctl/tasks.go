package main

import (
	"context"
	"flag"
	"fmt"

	"brainzzz/internal/dashboard"
	"brainzzz/internal/model"
	"brainzzz/internal/ui"
)

func runTasks(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("tasks requires an action: list|add|update|delete")
	}
	action := args[0]
	fs := flag.NewFlagSet("tasks "+action, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "TOML config file path")
	dashURL := fs.String("dashboard", "", "dashboard server url")
	id := fs.String("id", "", "task id")
	name := fs.String("name", "", "task name")
	kind := fs.String("kind", "", "task kind")
	weight := fs.Float64("weight", 1, "task weight")
	enabled := fs.Bool("enabled", true, "whether the task is active")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, flagWasSet(fs, "config"))
	if err != nil {
		return err
	}
	base := firstNonEmpty(*dashURL, cfg.Dashboard.URL, "http://"+dashboard.DefaultListen)
	tasks, err := dashboard.NewTasksClient(base, nil)
	if err != nil {
		return err
	}

	switch action {
	case "list":
		infos, err := tasks.List(ctx)
		if err != nil {
			return err
		}
		ui.Banner(fmt.Sprintf("tasks, %d registered", len(infos)))
		rows := make([][]string, 0, len(infos))
		for _, task := range infos {
			rows = append(rows, []string{
				task.ID,
				task.Name,
				task.Kind,
				fmt.Sprintf("%.2f", task.Weight),
				ui.StatusIcon(task.Enabled),
			})
		}
		ui.Table([]string{"ID", "NAME", "KIND", "WEIGHT", "ON"}, rows)
		return nil
	case "add":
		if *name == "" {
			return usageError("tasks add requires --name")
		}
		task, err := tasks.Add(ctx, model.TaskInfo{Name: *name, Kind: *kind, Weight: *weight, Enabled: *enabled})
		if err != nil {
			return err
		}
		fmt.Printf("%s added %s (%s)\n", ui.StatusIcon(true), task.Name, task.ID)
		return nil
	case "update":
		if *id == "" {
			return usageError("tasks update requires --id")
		}
		task, err := tasks.Update(ctx, model.TaskInfo{ID: *id, Name: *name, Kind: *kind, Weight: *weight, Enabled: *enabled})
		if err != nil {
			return err
		}
		fmt.Printf("%s updated %s (weight %.2f, %s)\n", ui.StatusIcon(true), task.Name, task.Weight, onOff(task.Enabled))
		return nil
	case "delete":
		if *id == "" {
			return usageError("tasks delete requires --id")
		}
		if err := tasks.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", ui.StatusIcon(true), *id)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown tasks action: %s", action))
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
