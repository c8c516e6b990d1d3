package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	scheduler "github.com/goliatone/go-cms-scheduler"
	"github.com/goliatone/go-cms-scheduler/cmd/scheduler/internal/bootstrap"
	"github.com/goliatone/go-cms-scheduler/commands"
	schedulecmd "github.com/goliatone/go-cms-scheduler/internal/commands/schedule"
	sweepcmd "github.com/goliatone/go-cms-scheduler/internal/commands/sweep"
	"github.com/google/uuid"
)

var moduleBuilder = bootstrap.BuildModule

var errUnknownCommand = errors.New("unknown command")

const usage = `usage: scheduler [run|schedule|cron] [flags]

  run       sweep due entities once (default)
  schedule  set or clear the schedule of a stored entity
  cron      run sweeps and audit cleanup on their cron expressions until interrupted
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	name := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	switch name {
	case "run":
		return runSweep(ctx, args, stdout)
	case "schedule":
		return runSchedule(ctx, args, stdout)
	case "cron":
		return runCron(ctx, args, stdout)
	case "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
}

func runSweep(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("scheduler-run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	action := fs.String("action", "", "Restrict the sweep to publish or unpublish")
	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Module.Close()

	if !module.Module.Container().Config.Enabled {
		fmt.Fprintln(stdout, "scheduler disabled; nothing to do")
		return nil
	}

	handler := sweepcmd.NewRunSweepHandler(module.Module.Container().JobWorker(), module.Logger)
	if err := handler.Execute(ctx, sweepcmd.RunSweepCommand{Action: *action}); err != nil {
		return fmt.Errorf("execute sweep command: %w", err)
	}
	printResult(stdout, handler.LastResult())
	return nil
}

func printResult(w io.Writer, result scheduler.SweepResult) {
	fmt.Fprintf(w, "published=%t unpublished=%t faults=%d\n", result.Published, result.Unpublished, len(result.Faults()))
	for _, fault := range result.Faults() {
		fmt.Fprintf(w, "fault: %v\n", fault)
	}
}

func runSchedule(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("scheduler-schedule", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	entityType := fs.String("type", "", "Entity type")
	entityID := fs.String("id", "", "Entity ID")
	entityKey := fs.String("key", "", "Host key used to derive the entity ID when -id is empty")
	publishAt := fs.String("publish-at", "", "Publish date (RFC 3339, or local to the configured timezone)")
	unpublishAt := fs.String("unpublish-at", "", "Unpublish date (RFC 3339, or local to the configured timezone)")
	clearPublish := fs.Bool("clear-publish", false, "Remove the publish date")
	clearUnpublish := fs.Bool("clear-unpublish", false, "Remove the unpublish date")
	repeat := fs.String("repeat", "", "Recurrence rule id, or none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Module.Close()

	id, err := bootstrap.ParseUUID(*entityID)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	if id == uuid.Nil && strings.TrimSpace(*entityKey) != "" {
		id = scheduler.EntityID(*entityType, *entityKey)
	}
	cmd := schedulecmd.ScheduleEntityCommand{
		EntityType:       *entityType,
		EntityID:         id,
		ClearPublishAt:   *clearPublish,
		ClearUnpublishAt: *clearUnpublish,
	}
	if cmd.PublishAt, err = bootstrap.ParseTime(*publishAt, module.Location); err != nil {
		return fmt.Errorf("parse publish-at: %w", err)
	}
	if cmd.UnpublishAt, err = bootstrap.ParseTime(*unpublishAt, module.Location); err != nil {
		return fmt.Errorf("parse unpublish-at: %w", err)
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "repeat" {
			rule := *repeat
			cmd.RepeatRule = &rule
		}
	})

	handler := schedulecmd.NewScheduleEntityHandler(module.Module.Coordinator(), module.Logger)
	if err := handler.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("execute schedule command: %w", err)
	}
	fmt.Fprintf(stdout, "scheduled %s %s\n", cmd.EntityType, cmd.EntityID)
	return nil
}

func runCron(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("scheduler-cron", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Module.Close()

	runner, err := newCronRunner(module)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "cron started with %d jobs\n", runner.Len())

	runner.Start()
	<-ctx.Done()
	if err := runner.Stop(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "cron stopped")
	return nil
}

// newCronRunner registers every cron-capable scheduler command with a cron
// runner using the configured timezone.
func newCronRunner(module *bootstrap.Module) (*commands.CronRunner, error) {
	runner := commands.NewCronRunner(module.Location, module.Logger)
	if _, err := module.Module.RegisterCommands(scheduler.RegistrationOptions{CronRegistrar: runner.Registrar()}); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	return runner, nil
}
