package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harrisonrobin/tasksync/pkg/auth"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/google"
	"github.com/harrisonrobin/tasksync/pkg/orgmode"
	"github.com/harrisonrobin/tasksync/pkg/registry"
	"github.com/harrisonrobin/tasksync/pkg/service"
	"github.com/harrisonrobin/tasksync/pkg/taskwarrior"
)

func defaultRegistry() *registry.Registry {
	reg := registry.New()
	mustRegister(reg, "taskwarrior", "Taskwarrior via the task CLI", openTaskwarrior)
	mustRegister(reg, "google", "a Google Tasks list (google.tasklist)", openGoogle)
	mustRegister(reg, "orgmode", "Org-mode files, read-only (orgmode.files)", openOrgmode)
	return reg
}

func mustRegister(reg *registry.Registry, name, description string, f registry.Factory) {
	if err := reg.Register(name, description, f); err != nil {
		panic(err)
	}
}

func openTaskwarrior(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.TaskService, error) {
	client := taskwarrior.NewClient(cfg.Taskwarrior.Bin, taskwarrior.WithLogger(logger))
	return taskwarrior.NewService(client, cfg.Taskwarrior.Filter), nil
}

func openGoogle(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.TaskService, error) {
	httpClient, err := auth.GetClient(ctx, cfg.Dir, auth.Scopes, logger)
	if err != nil {
		return nil, err
	}
	client, err := google.NewClient(ctx, httpClient, cfg.Google.TaskList)
	if err != nil {
		return nil, err
	}
	return client.WithLogger(logger), nil
}

func openOrgmode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.TaskService, error) {
	if len(cfg.Orgmode.Files) == 0 {
		return nil, fmt.Errorf("orgmode.files is empty")
	}
	return orgmode.NewService(cfg.Orgmode.Files, logger), nil
}
