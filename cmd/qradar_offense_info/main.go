package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harrysk/ibm.qradar/infrastructure/qradar"
	"github.com/Harrysk/ibm.qradar/internal/bootstrap"
	"github.com/Harrysk/ibm.qradar/pkg/ansible"
	"github.com/Harrysk/ibm.qradar/usecase"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	deps, err := bootstrap.Initialize(usecase.OffenseModuleName)
	if err != nil {
		return ansible.Exit(os.Stdout, ansible.Failure("", err))
	}
	defer deps.Cleanup()

	repo := qradar.NewOffenseRepository(deps.Client, deps.Logger)
	uc := usecase.NewOffenseUseCase(repo, deps.Logger, deps.Metrics)

	return ansible.Run(ctx, os.Args, os.Stdout, uc.Handle)
}
