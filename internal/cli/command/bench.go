package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
)

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure throughput and latency with concurrent clients",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "clients", Aliases: []string{"c"}, Value: 8, Usage: "concurrent clients"},
			&cli.IntFlag{Name: "requests", Aliases: []string{"n"}, Value: 10000, Usage: "total requests"},
			&cli.IntFlag{Name: "size", Aliases: []string{"d"}, Value: 16, Usage: "value size in bytes"},
			&cli.IntFlag{Name: "keyspace", Aliases: []string{"r"}, Value: 1000, Usage: "number of distinct keys"},
			&cli.StringFlag{Name: "type", Value: "set", Usage: "request type: set, get, publish, ping"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide the progress bar"},
		},
		Action: benchAction,
	}
}

// BenchReport summarises one bench run.
type BenchReport struct {
	Type       string        `json:"type" yaml:"type"`
	Clients    int           `json:"clients" yaml:"clients"`
	Requests   int64         `json:"requests" yaml:"requests"`
	Errors     int64         `json:"errors" yaml:"errors"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Throughput float64       `json:"requests_per_second" yaml:"requests_per_second"`
	P50        time.Duration `json:"p50" yaml:"p50"`
	P99        time.Duration `json:"p99" yaml:"p99"`
	Max        time.Duration `json:"max" yaml:"max"`
}

// benchPlan is a validated bench configuration.
type benchPlan struct {
	kind     string
	clients  int
	requests int
	keyspace int
	value    []byte
}

func benchAction(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	plan := benchPlan{
		kind:     c.String("type"),
		clients:  c.Int("clients"),
		requests: c.Int("requests"),
		keyspace: c.Int("keyspace"),
	}
	switch plan.kind {
	case "set", "get", "publish", "ping":
	default:
		return fmt.Errorf("unknown bench type %q", plan.kind)
	}
	if plan.clients <= 0 || plan.requests <= 0 || plan.keyspace <= 0 || c.Int("size") < 0 {
		return fmt.Errorf("clients, requests and keyspace must be positive")
	}
	plan.value = bytes.Repeat([]byte("x"), c.Int("size"))

	clientOpts, err := clientOptions(flags)
	if err != nil {
		return err
	}
	pool := connection.NewPool(c.Context, flags.Profile.Server, connection.PoolOptions{Options: clientOpts, Size: plan.clients})
	defer pool.Close(context.Background())

	var progress io.Writer
	if !c.Bool("quiet") {
		progress = c.App.ErrWriter
	}
	report, err := runBench(c.Context, pool, plan, flags.Timeout, progress)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output).Format(c.App.Writer, report)
}

func runBench(ctx context.Context, pool *connection.Pool, plan benchPlan, timeout time.Duration, progress io.Writer) (*BenchReport, error) {
	var bar *output.ProgressBar
	if progress != nil {
		bar = output.NewProgressBar(progress, plan.kind, int64(plan.requests))
	}

	var (
		next      atomic.Int64
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, plan.requests)
		wg        sync.WaitGroup
		firstErr  error
	)

	start := time.Now()
	for w := 0; w < plan.clients; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, plan.requests/plan.clients+1)
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()

			for {
				i := next.Add(1) - 1
				if i >= int64(plan.requests) || ctx.Err() != nil {
					return
				}
				began := time.Now()
				err := pool.Do(ctx, func(cl *connection.Client) error {
					rctx, cancel := requestContext(ctx, timeout)
					defer cancel()
					return benchRequest(rctx, cl, plan, i)
				})
				local = append(local, time.Since(began))
				if err != nil {
					failures.Add(1)
					var serr *connection.ServerError
					if !errors.As(err, &serr) {
						mu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
					}
				}
				if bar != nil {
					bar.Increment(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	if bar != nil {
		bar.Finish()
	}

	if int64(len(latencies)) == failures.Load() && firstErr != nil {
		return nil, fmt.Errorf("bench: every request failed: %w", firstErr)
	}
	return summarize(plan, latencies, failures.Load(), elapsed), nil
}

func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func benchRequest(ctx context.Context, cl *connection.Client, plan benchPlan, i int64) error {
	key := "bench:" + strconv.FormatInt(i%int64(plan.keyspace), 10)
	switch plan.kind {
	case "set":
		return cl.Set(ctx, key, plan.value, 0)
	case "get":
		_, _, err := cl.Get(ctx, key)
		return err
	case "publish":
		_, err := cl.Publish(ctx, "bench", plan.value)
		return err
	default:
		_, err := cl.Ping(ctx, "")
		return err
	}
}

func summarize(plan benchPlan, latencies []time.Duration, failures int64, elapsed time.Duration) *BenchReport {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report := &BenchReport{
		Type:     plan.kind,
		Clients:  plan.clients,
		Requests: int64(len(latencies)),
		Errors:   failures,
		Elapsed:  elapsed,
	}
	if elapsed > 0 {
		report.Throughput = float64(len(latencies)) / elapsed.Seconds()
	}
	if n := len(latencies); n > 0 {
		report.P50 = latencies[percentileIndex(n, 50)]
		report.P99 = latencies[percentileIndex(n, 99)]
		report.Max = latencies[n-1]
	}
	return report
}

// percentileIndex returns the nearest-rank index of the pth percentile.
func percentileIndex(n, p int) int {
	idx := (n*p+99)/100 - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
