// Command coreletd is a minimal demonstration binary exercising corelet's
// event loops, timers, and application shutdown protocol end to end: a
// repeating timer on a worker loop drives a ticker that prints each tick,
// and once the configured number of ticks (--ticks) is reached a
// coordinated Application shutdown runs on the primary loop. It does not
// handle Ctrl-C or other OS signals.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-corelet/corelet"
	"github.com/spf13/cobra"
)

// runOptions holds flags shared across the run command.
type runOptions struct {
	interval time.Duration
	ticks    int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "coreletd",
		Short: "coreletd runs a small corelet demo application",
		Long:  "coreletd wires a primary loop, a worker loop, a repeating timer, and an Application shutdown sequence, then runs until it has ticked the requested number of times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 200*time.Millisecond, "tick interval")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 5, "number of ticks before shutting down")

	return cmd
}

// ticker is a tiny CleanupParticipant that emits a tick count on its own
// loop and requests application shutdown once it has fired enough times.
type ticker struct {
	corelet.Base[ticker]
	corelet.Cleanup

	app    *corelet.Application
	timer  *corelet.Timer
	target int
	count  int

	// SignalTick fires once per tick, carrying the 1-based tick count.
	SignalTick corelet.Signal1[int]
}

func (t *ticker) Init() {
	corelet.Connect0(&t.timer.SignalTimeout, t, (*ticker).onTick, corelet.Auto)
}

func (t *ticker) onTick() {
	t.count++
	t.SignalTick.Emit(t.count)
	if t.count >= t.target {
		t.timer.Stop()
		t.app.StartCleanup()
	}
}

func (t *ticker) onStartCleanup() {
	t.FinishedCleanup().Emit(t.ID())
}

func run(opts *runOptions) error {
	primary := corelet.NewEventLoop(corelet.WithMetrics(true))
	worker := corelet.NewEventLoop(corelet.WithMetrics(true))

	primary.Start()
	workerWG := corelet.LaunchInThread(worker)

	app := corelet.NewApplication(primary)
	timer := corelet.NewTimer(worker)

	t := corelet.Build(worker, func() *ticker {
		return &ticker{app: app, timer: timer, target: opts.ticks}
	})

	corelet.Connect1(&t.SignalTick, t, func(recv *ticker, n int) {
		fmt.Printf("tick %d/%d\n", n, opts.ticks)
	}, corelet.Auto)

	corelet.Connect0(&app.SignalStartCleanup, t, (*ticker).onStartCleanup, corelet.Queued)
	app.AddCleanupRequest(t)

	t.timer.Start(opts.interval, true)

	result := app.Run()

	corelet.RemoveFromThread(worker, workerWG, true)

	fmt.Printf("coreletd exiting with code %d\n", result)
	if result != 0 {
		os.Exit(result)
	}
	return nil
}
