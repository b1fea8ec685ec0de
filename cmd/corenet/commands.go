package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"slices"
	"syscall"
	"time"

	"corenet/pkg/cycle"
	"corenet/pkg/events"
	"corenet/pkg/interceptor"
	"corenet/pkg/matcher"
	"corenet/pkg/metrics"
	"corenet/pkg/signal"
	"corenet/pkg/types"
	"corenet/pkg/utils"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func requestCmd() *cobra.Command {
	var (
		dryRun bool
		deny   []string
	)

	cmd := &cobra.Command{
		Use:   "request <spark> <pattern> [quantity]",
		Short: "Extract matching items from a spark's network",
		Long: `Extract up to quantity items whose name matches pattern from every
container in the spark's network. Quantity accepts forms like 64, 1.5k,
2stacks or all (the default).`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			requester, m, err := rt.target(args)
			if err != nil {
				return err
			}
			quantity, err := parseQuantityArg(args, 2)
			if err != nil {
				return err
			}

			if len(deny) > 0 {
				unsubscribe := rt.bus.Subscribe(func(evt *events.RequestEvent) {
					if evt.Requester != nil && slices.Contains(deny, string(evt.Requester.ID())) {
						evt.Cancel()
					}
				})
				defer unsubscribe()
			}

			result, err := rt.coord.Execute(m, quantity, requester, !dryRun)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}

			fmt.Println(renderRequest(m, quantity, !dryRun, result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count instead of extracting")
	cmd.Flags().StringSliceVar(&deny, "deny", nil, "spark ids whose requests are vetoed")

	return cmd
}

func replayCmd() *cobra.Command {
	var rounds int

	cmd := &cobra.Command{
		Use:   "replay <retainer> <spark> <pattern> [quantity]",
		Short: "Issue a request and repeat it through a retainer",
		Long: `Extract from the spark's network, then let the retainer sited with the
first spark issue the same request again, up to rounds times or until a
round delivers nothing.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rounds <= 0 {
				return fmt.Errorf("rounds must be positive")
			}

			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			retainer, err := rt.world.Retainer(types.NodeID(args[0]))
			if err != nil {
				return err
			}
			requester, m, err := rt.target(args[1:])
			if err != nil {
				return err
			}
			quantity, err := parseQuantityArg(args, 3)
			if err != nil {
				return err
			}

			delivered, err := rt.replay(retainer, requester, m, quantity, rounds)
			if err != nil {
				return err
			}

			fmt.Println(renderRounds(m, quantity, delivered, rt.coord.CountInNetwork(m, requester)))
			return nil
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 1, "maximum number of replays")

	return cmd
}

// replay requests once and then repeats the request through r until rounds
// replays ran or one delivered nothing. It returns the units each delivered.
func (rt *runtime) replay(r *interceptor.Retainer, requester types.Node, m types.Matcher, quantity, rounds int) ([]int, error) {
	got, err := rt.coord.Request(m, quantity, requester, true)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	delivered := []int{lo.SumBy(got, func(res types.Resource) int { return res.Quantity })}

	for i := 0; i < rounds && delivered[len(delivered)-1] > 0; i++ {
		again, err := r.Replay(rt.coord)
		if err != nil {
			return delivered, fmt.Errorf("replay failed: %w", err)
		}
		delivered = append(delivered, lo.SumBy(again, func(res types.Resource) int { return res.Quantity }))
	}
	return delivered, nil
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <spark> <pattern>",
		Short: "Count matching items across a spark's network",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			requester, m, err := rt.target(args)
			if err != nil {
				return err
			}

			count := rt.coord.CountInNetwork(m, requester)
			fmt.Println(renderCount(m, count, rt.coord.SignalStrength(count)))
			return nil
		},
	}
}

func locateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <spark> <pattern>",
		Short: "List the containers holding matching items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			requester, m, err := rt.target(args)
			if err != nil {
				return err
			}

			found := rt.coord.LocationsWithMatch(m, requester)
			fmt.Println(renderLocations(m, found, rt.sparkAt))
			return nil
		},
	}
}

func signalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signal <quantity>",
		Short: "Print the signal strength for a quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := utils.ParseQuantity(args[0])
			if err != nil {
				return fmt.Errorf("invalid quantity: %w", err)
			}
			if quantity < 0 {
				return fmt.Errorf("quantity must be finite")
			}

			fmt.Println(renderSignal(signal.Strength(quantity)))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var report time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cycle driver and expose metrics",
		Long: `Keep the world loaded, clear the network cache once per cycle and
periodically log the item count of every master's network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if report <= 0 {
				return fmt.Errorf("report interval must be positive")
			}

			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			driver := cycle.New(rt.coord, rt.cfg.CycleInterval, rt.logger.Named("cycle"), rt.metrics)
			done := make(chan struct{})
			go func() {
				defer close(done)
				driver.Run(ctx)
			}()

			var server *http.Server
			if rt.cfg.Metrics.Enabled {
				server = metrics.StartMetricsServer(rt.cfg.Metrics.Address, rt.metrics, rt.logger.Named("metrics"))
			}

			everything := matcher.MustPattern(".*")
			ticker := time.NewTicker(report)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					<-done
					if server != nil {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
							rt.logger.Warn("Failed to stop metrics server", zap.Error(err))
						}
					}
					rt.logger.Info("Shutting down")
					return nil

				case <-ticker.C:
					err := driver.Do(ctx, func() {
						for _, id := range rt.world.Masters() {
							master, _ := rt.world.Spark(id)
							count := rt.coord.CountInNetwork(everything, master)
							rt.logger.Info("Network report",
								zap.String("master", string(id)),
								zap.Int("locations", len(rt.coord.Resolver().Resolve(master))),
								zap.Int("items", count),
								zap.Int("signal", rt.coord.SignalStrength(count)))
						}
					})
					if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, cycle.ErrStopped) {
						rt.logger.Warn("Report failed", zap.Error(err))
					}
				}
			}
		},
	}

	cmd.Flags().Duration("cycle", 0, "cycle interval (defaults to the configured interval)")
	cmd.Flags().String("metrics-address", "", "expose /metrics and /health on this address")
	cmd.Flags().DurationVar(&report, "report", 10*time.Second, "network report interval")

	return cmd
}
