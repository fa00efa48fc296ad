package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/djdv/go-pagesim"
	"github.com/djdv/go-pagesim/arbiter"
	"github.com/djdv/go-pagesim/mmu"
	"github.com/djdv/go-pagesim/replay"
	"github.com/djdv/go-pagesim/trace"
)

type (
	command struct {
		bind    func(*flag.FlagSet, *config)
		run     func(context.Context, *environment) error
		name    string
		summary string
	}
	environment struct {
		logger *slog.Logger
		out    io.Writer
		config config
	}
)

// Costs used for the effective access time of a translation run.
const (
	tlbCost    = 20 * time.Nanosecond
	memoryCost = 100 * time.Nanosecond
)

func commands() []command {
	return []command{
		{
			name:    "replay",
			summary: "replay a trace through one policy",
			bind: func(flags *flag.FlagSet, c *config) {
				bindTrace(flags, c)
				bindTable(flags, c)
				flags.BoolVar(&c.Verbose, "v", c.Verbose, "print every access")
			},
			run: replayTrace,
		},
		{
			name:    "compare",
			summary: "compare every policy across capacities",
			bind: func(flags *flag.FlagSet, c *config) {
				bindTrace(flags, c)
				flags.StringVar(&c.Capacities, "capacities", c.Capacities,
					"comma separated capacities (default 1 through the number of distinct keys)")
			},
			run: compareTrace,
		},
		{
			name:    "workingset",
			summary: "estimate the working set over a window",
			bind: func(flags *flag.FlagSet, c *config) {
				bindTrace(flags, c)
				flags.IntVar(&c.Window, "window", c.Window, "window size Δ in references")
			},
			run: workingSet,
		},
		{
			name:    "translate",
			summary: "translate trace keys as virtual addresses",
			bind: func(flags *flag.FlagSet, c *config) {
				bindTrace(flags, c)
				bindTable(flags, c)
				flags.IntVar(&c.TLBEntries, "tlb", c.TLBEntries, "TLB entries")
				flags.Uint64Var(&c.PageSize, "page-size", c.PageSize, "page size in bytes")
			},
			run: translate,
		},
		{
			name:    "dine",
			summary: "run requesters contending for resource pairs",
			bind: func(flags *flag.FlagSet, c *config) {
				flags.StringVar(&c.Strategy, "strategy", c.Strategy,
					"bounded-concurrency, central-broker, timeout-backoff or priority-aging")
				flags.IntVar(&c.Resources, "resources", c.Resources, "number of resources (and requesters)")
				flags.IntVar(&c.Meals, "meals", c.Meals, "acquisitions per requester")
				flags.IntVar(&c.TimeoutMS, "timeout-ms", c.TimeoutMS, "per-resource timeout")
				flags.IntVar(&c.BackoffMS, "backoff-ms", c.BackoffMS, "base backoff delay")
				flags.IntVar(&c.AdmissionLimit, "admission-limit", c.AdmissionLimit,
					"concurrent attempts for bounded-concurrency (default resources-1)")
				flags.IntVar(&c.EatMS, "eat-ms", c.EatMS, "time each acquisition is held")
				flags.BoolVar(&c.Verbose, "v", c.Verbose, "log every state transition")
			},
			run: dine,
		},
		{
			name:    "allocate",
			summary: "allocate contiguous blocks from a fixed pool",
			bind: func(flags *flag.FlagSet, c *config) {
				flags.Uint64Var(&c.PoolSize, "pool", c.PoolSize, "pool size in bytes")
				flags.StringVar(&c.Fit, "fit", c.Fit, "first, best or worst")
				flags.StringVar(&c.Requests, "requests", c.Requests,
					"owner:size allocations and -owner releases, separated by spaces or commas")
			},
			run: allocate,
		},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commands() {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func commandNames() string {
	var names []string
	for _, cmd := range commands() {
		names = append(names, cmd.name)
	}
	return strings.Join(names, "|")
}

func bindTrace(flags *flag.FlagSet, c *config) {
	flags.StringVar(&c.Trace, "trace", c.Trace,
		"keys separated by spaces or commas, or one of: reference, classic, belady")
	flags.StringVar(&c.TraceScript, "script", c.TraceScript,
		"Lua `file` generating the trace (overrides -trace)")
}

func bindTable(flags *flag.FlagSet, c *config) {
	flags.IntVar(&c.Capacity, "capacity", c.Capacity, "number of frames")
	flags.StringVar(&c.Policy, "policy", c.Policy, "FIFO, LRU or CLOCK")
}

func loadTrace(ctx context.Context, c *config) ([]int, error) {
	if c.TraceScript != "" {
		script, err := os.ReadFile(c.TraceScript)
		if err != nil {
			return nil, err
		}
		return trace.FromLua(ctx, string(script))
	}
	switch strings.ToLower(strings.TrimSpace(c.Trace)) {
	case "reference":
		return trace.Reference(), nil
	case "classic":
		return trace.Classic(), nil
	case "belady":
		return trace.Belady(), nil
	default:
		return trace.Parse(c.Trace)
	}
}

func identity(key int) (int, error) { return key, nil }

func replayTrace(ctx context.Context, env *environment) error {
	keys, err := loadTrace(ctx, &env.config)
	if err != nil {
		return err
	}
	kind, err := env.config.policy()
	if err != nil {
		return err
	}
	engine, err := pagesim.NewKind[int, int](env.config.Capacity, kind,
		pagesim.WithLogger(env.logger), pagesim.WithName(kind.String()))
	if err != nil {
		return err
	}
	if env.config.Verbose {
		engine.Observe(func(event pagesim.Event[int, int]) {
			fmt.Fprintf(env.out, "%4d  key %-4d %-8s", event.Time, event.Key, event.Outcome)
			if event.Outcome == pagesim.Evicted {
				fmt.Fprintf(env.out, " victim %d", event.Victim)
			}
			fmt.Fprintf(env.out, "  frames %v\n", slices.Collect(engine.Keys()))
		})
	}
	for _, key := range keys {
		if _, err := engine.Access(key, identity); err != nil {
			return err
		}
	}
	stats := engine.Stats()
	fmt.Fprintf(env.out,
		"policy=%s capacity=%d accesses=%d hits=%d faults=%d evictions=%d hit_rate=%.2f%%\n",
		kind, engine.Capacity(), stats.Accesses, stats.Hits,
		stats.Faults, stats.Evictions, stats.HitRate()*100)
	return nil
}

func parseCapacities(text string, keys []int) ([]int, error) {
	if text == "" {
		distinct := max(trace.Distinct(keys), 1)
		capacities := make([]int, distinct)
		for i := range capacities {
			capacities[i] = i + 1
		}
		return capacities, nil
	}
	var capacities []int
	for field := range strings.FieldsFuncSeq(text, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		capacity, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: capacity %q: %w", pagesim.ErrInvalidCapacity, field, err)
		}
		capacities = append(capacities, capacity)
	}
	return capacities, nil
}

func compareTrace(ctx context.Context, env *environment) error {
	keys, err := loadTrace(ctx, &env.config)
	if err != nil {
		return err
	}
	capacities, err := parseCapacities(env.config.Capacities, keys)
	if err != nil {
		return err
	}
	results, err := replay.Compare(keys, replay.Constructors(), capacities)
	if err != nil {
		return err
	}
	table := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "backend\tcapacity\tfaults\thit rate")
	for _, result := range results {
		fmt.Fprintf(table, "%s\t%d\t%d\t%.2f%%\n",
			result.Name, result.Capacity, result.Faults, result.HitRate()*100)
	}
	if err := table.Flush(); err != nil {
		return err
	}
	for _, anomaly := range replay.Anomalies(results) {
		fmt.Fprintf(env.out, "anomaly: %s faults %d at capacity %d but %d at capacity %d\n",
			anomaly.Smaller.Name,
			anomaly.Smaller.Faults, anomaly.Smaller.Capacity,
			anomaly.Larger.Faults, anomaly.Larger.Capacity)
	}
	return nil
}

func workingSet(ctx context.Context, env *environment) error {
	keys, err := loadTrace(ctx, &env.config)
	if err != nil {
		return err
	}
	ws, err := pagesim.NewWorkingSet[int](env.config.Window)
	if err != nil {
		return err
	}
	for _, key := range keys {
		ws.Observe(key)
	}
	summary := ws.Summary()
	fmt.Fprintf(env.out, "window=%d references=%d min=%d max=%d mean=%.2f\n",
		ws.Window(), len(keys), summary.Min, summary.Max, summary.Mean)
	distribution := ws.Distribution()
	for _, size := range slices.Sorted(maps.Keys(distribution)) {
		fmt.Fprintf(env.out, "size %d: %d\n", size, distribution[size])
	}
	return nil
}

func translate(ctx context.Context, env *environment) error {
	keys, err := loadTrace(ctx, &env.config)
	if err != nil {
		return err
	}
	kind, err := env.config.policy()
	if err != nil {
		return err
	}
	translator, err := mmu.NewTranslator(mmu.TranslatorConfig{
		PageSize:    env.config.PageSize,
		TLBEntries:  env.config.TLBEntries,
		Frames:      env.config.Capacity,
		FramePolicy: kind,
	}, pagesim.WithLogger(env.logger))
	if err != nil {
		return err
	}
	// Frames are handed out in order of first touch.
	mapped := make(map[uint64]bool)
	for _, key := range keys {
		if key < 0 {
			return fmt.Errorf("%w: negative address %d", trace.ErrInvalidTrace, key)
		}
		page, _ := mmu.Split(uint64(key), translator.PageSize())
		if !mapped[page] {
			translator.Map(page, uint64(len(mapped)))
			mapped[page] = true
		}
	}
	for _, key := range keys {
		physical, event, err := translator.Translate(uint64(key))
		if err != nil {
			return err
		}
		page, offset := mmu.Split(uint64(key), translator.PageSize())
		fmt.Fprintf(env.out, "virtual %#06x  page %-4d offset %-5d physical %#06x  %s\n",
			key, page, offset, physical, event.Level)
	}
	var (
		tlb   = translator.TLB().Stats()
		table = translator.PageTable().Stats()
	)
	fmt.Fprintf(env.out,
		"tlb hits=%d misses=%d hit_rate=%.2f%% page_faults=%d effective_access_time=%s\n",
		tlb.Hits, tlb.Faults, tlb.HitRate()*100, table.Faults,
		translator.EffectiveAccessTime(tlbCost, memoryCost))
	return nil
}

func dine(ctx context.Context, env *environment) error {
	settings, err := env.config.arbiterConfig()
	if err != nil {
		return err
	}
	a, err := arbiter.New(settings, arbiter.WithLogger(env.logger))
	if err != nil {
		return err
	}
	run := arbiter.RunConfig{Meals: env.config.Meals}
	if eat := time.Duration(env.config.EatMS) * time.Millisecond; eat > 0 {
		run.Work = func(ctx context.Context, _ int, _ arbiter.Pair) error {
			select {
			case <-time.After(eat):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if env.config.Verbose {
		run.Observer = func(requester int, state arbiter.State) {
			env.logger.Info("transition",
				"requester", requester, "state", state.String())
		}
	}
	report, err := arbiter.Dine(ctx, a, run)
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, arbiter.ErrAcquisitionTimeout) {
			return err
		}
		env.logger.Warn("requests left unmet", "error", err)
	}
	fmt.Fprintf(env.out, "strategy=%s acquisitions=%d timeouts=%d unmet=%d\n",
		settings.Strategy, report.Acquisitions, report.Timeouts, report.Unmet)
	for i, requester := range report.PerRequester {
		fmt.Fprintf(env.out, "requester %d: acquisitions=%d timeouts=%d unmet=%d\n",
			i, requester.Acquisitions, requester.Timeouts, requester.Unmet)
	}
	return nil
}

func allocate(_ context.Context, env *environment) error {
	fit, err := mmu.ParseFit(env.config.Fit)
	if err != nil {
		return err
	}
	allocator, err := mmu.NewAllocator(mmu.AllocatorConfig{
		Size:   env.config.PoolSize,
		Fit:    fit,
		Logger: env.logger,
	})
	if err != nil {
		return err
	}
	for request := range strings.FieldsFuncSeq(env.config.Requests, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		if err := allocationRequest(env.out, allocator, request); err != nil {
			return err
		}
	}
	table := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(table, "start\tsize\tstatus\towner\t")
	for block := range allocator.Blocks() {
		status, owner := "used", strconv.Itoa(block.Owner)
		if block.Free {
			status, owner = "free", "-"
		}
		fmt.Fprintf(table, "%d\t%d\t%s\t%s\t\n", block.Start, block.Size, status, owner)
	}
	if err := table.Flush(); err != nil {
		return err
	}
	frag := allocator.Fragmentation()
	fmt.Fprintf(env.out,
		"fit=%s free=%d allocated=%d largest=%d free_blocks=%d external=%d (%.2f%%)\n",
		fit, frag.Free, frag.Allocated, frag.Largest, frag.FreeBlocks,
		frag.External(), frag.ExternalRatio()*100)
	return nil
}

// allocationRequest applies "owner:size" as an allocation
// and "-owner" as a release. Requests the pool cannot
// satisfy are reported, not returned.
func allocationRequest(out io.Writer, allocator *mmu.Allocator, request string) error {
	if text, ok := strings.CutPrefix(request, "-"); ok {
		owner, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: release %q: %w", errInvalidConfig, request, err)
		}
		freed, err := allocator.Release(owner)
		if err != nil {
			if !errors.Is(err, mmu.ErrUnknownOwner) {
				return err
			}
			fmt.Fprintf(out, "release owner %d: failed: %v\n", owner, err)
			return nil
		}
		fmt.Fprintf(out, "release owner %d: %d bytes\n", owner, freed)
		return nil
	}
	ownerText, sizeText, ok := strings.Cut(request, ":")
	if !ok {
		return fmt.Errorf("%w: request %q is not owner:size", errInvalidConfig, request)
	}
	owner, err := strconv.Atoi(ownerText)
	if err != nil {
		return fmt.Errorf("%w: request %q: %w", errInvalidConfig, request, err)
	}
	size, err := strconv.ParseUint(sizeText, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: request %q: %w", errInvalidConfig, request, err)
	}
	block, err := allocator.Allocate(owner, size)
	if err != nil {
		if !errors.Is(err, mmu.ErrOutOfMemory) {
			return err
		}
		fmt.Fprintf(out, "allocate owner %d: %d bytes: failed: %v\n", owner, size, err)
		return nil
	}
	fmt.Fprintf(out, "allocate owner %d: %d bytes at %d\n", owner, size, block.Start)
	return nil
}
