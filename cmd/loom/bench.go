package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/loom-ui/loom/internal/errors"
	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/protocol"
	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/server"
	"github.com/loom-ui/loom/pkg/vtree"
)

const gib = int64(1024 * 1024 * 1024)

type benchProfile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	ListSize      int
	MaxProcs      int
	MemLimitBytes int64
}

var benchProfiles = map[string]benchProfile{
	"fast": {
		Name:     "fast",
		Clients:  50,
		Duration: 10 * time.Second,
		RPS:      2,
		ListSize: 20,
	},
	"standard": {
		Name:     "standard",
		Clients:  200,
		Duration: 30 * time.Second,
		RPS:      5,
		ListSize: 50,
	},
	"stress": {
		Name:          "stress",
		Clients:       500,
		Duration:      60 * time.Second,
		RPS:           10,
		ListSize:      100,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile        string
	Clients        int
	Duration       time.Duration
	RPS            float64
	ListSize       int
	MaxProcs       int
	MemLimitBytes  int64
	JSONOutput     string
	RequestTimeout time.Duration
}

type benchCounters struct {
	requestsSent     atomic.Uint64
	requestsComplete atomic.Uint64
	requestBytes     atomic.Uint64
	patchBytes       atomic.Uint64
	patchFrames      atomic.Uint64
	patchesTotal     atomic.Uint64
}

type benchErrorCounts struct {
	handshakeFailures    atomic.Uint64
	requestWriteFailures atomic.Uint64
	frameDecodeFailures  atomic.Uint64
	batchDecodeFailures  atomic.Uint64
	serverErrorFrames    atomic.Uint64
	replyMissing         atomic.Uint64
	totalErrors          atomic.Uint64
}

type patchOpCounts struct {
	counts [8]atomic.Uint64
}

func (p *patchOpCounts) add(op vtree.Op) {
	if int(op) < len(p.counts) {
		p.counts[op].Add(1)
	}
}

func (p *patchOpCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range p.counts {
		count := p.counts[i].Load()
		if count == 0 {
			continue
		}
		out[vtree.Op(i).String()] = count
	}
	return out
}

func benchCmd() *cobra.Command {
	var (
		profileName string
		clients     int
		duration    string
		rps         float64
		listSize    int
		maxProcs    int
		memLimit    string
		jsonOutput  string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a WebSocket load benchmark",
		Long: `Run a closed-loop load benchmark against an in-process server.

Each client opens a session, then repeatedly requests a render pass
and waits for the resulting patch batch. Round-trip latency covers
request encode, scheduling, render, diff, patch encode, and client
decode.

Profiles:
  fast      50 clients, 10s, 2 req/s each
  standard  200 clients, 30s, 5 req/s each
  stress    500 clients, 60s, 10 req/s each, GOMAXPROCS=4, 2GiB cap

Examples:
  loom bench
  loom bench --profile=fast
  loom bench --clients=100 --duration=15s --json=bench.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBenchConfig(profileName, clients, duration, rps,
				listSize, maxProcs, memLimit, jsonOutput)
			if err != nil {
				return err
			}
			return runBench(cfg)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "standard", "Profile: fast, standard, or stress")
	cmd.Flags().IntVar(&clients, "clients", -1, "Concurrent WebSocket clients (overrides profile)")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "Benchmark duration, e.g. 30s (overrides profile)")
	cmd.Flags().Float64Var(&rps, "rps", -1, "Target requests/sec per client (overrides profile)")
	cmd.Flags().IntVar(&listSize, "list", -1, "List rows rendered per session (overrides profile)")
	cmd.Flags().IntVar(&maxProcs, "max-procs", -1, "GOMAXPROCS cap (0 leaves it unchanged)")
	cmd.Flags().StringVar(&memLimit, "mem-limit", "", "GOMEMLIMIT, e.g. 2GiB (overrides profile)")
	cmd.Flags().StringVar(&jsonOutput, "json", "-", "JSON report path ('-' for stdout)")

	return cmd
}

func resolveBenchConfig(profileName string, clients int, duration string, rps float64,
	listSize, maxProcs int, memLimit, jsonOutput string) (benchConfig, error) {
	name := strings.ToLower(strings.TrimSpace(profileName))
	if name == "" {
		name = "standard"
	}
	base, ok := benchProfiles[name]
	if !ok {
		return benchConfig{}, errors.New("E101").
			WithDetail(fmt.Sprintf("Profile %q is not defined.", name)).
			WithSuggestion("Use one of: fast, standard, stress.")
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Clients:       base.Clients,
		Duration:      base.Duration,
		RPS:           base.RPS,
		ListSize:      base.ListSize,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		JSONOutput:    strings.TrimSpace(jsonOutput),
	}

	if clients != -1 {
		cfg.Clients = clients
	}
	if duration != "" {
		d, err := time.ParseDuration(duration)
		if err != nil {
			return benchConfig{}, errors.New("E103").
				WithDetail(fmt.Sprintf("Cannot parse --duration %q.", duration)).Wrap(err)
		}
		cfg.Duration = d
	}
	if rps != -1 {
		cfg.RPS = rps
	}
	if listSize != -1 {
		cfg.ListSize = listSize
	}
	if maxProcs != -1 {
		cfg.MaxProcs = maxProcs
	}
	if memLimit != "" {
		limit, err := humanize.ParseBytes(memLimit)
		if err != nil {
			return benchConfig{}, errors.New("E103").
				WithDetail(fmt.Sprintf("Cannot parse --mem-limit %q.", memLimit)).Wrap(err)
		}
		cfg.MemLimitBytes = int64(limit)
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	switch {
	case cfg.Clients <= 0:
		return benchConfig{}, errors.New("E103").WithDetail("--clients must be > 0.")
	case cfg.Duration <= 0:
		return benchConfig{}, errors.New("E103").WithDetail("--duration must be > 0.")
	case cfg.RPS <= 0:
		return benchConfig{}, errors.New("E103").WithDetail("--rps must be > 0.")
	case cfg.ListSize < 0:
		return benchConfig{}, errors.New("E103").WithDetail("--list must be >= 0.")
	case cfg.MaxProcs < 0:
		return benchConfig{}, errors.New("E103").WithDetail("--max-procs must be >= 0.")
	}

	cfg.RequestTimeout = requestTimeout(cfg.RPS)
	return cfg, nil
}

// requestTimeout bounds how long a client waits for one reply: ten send
// periods, at least two seconds.
func requestTimeout(rps float64) time.Duration {
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

func runBench(cfg benchConfig) error {
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}
	debug.SetGCPercent(100)

	srv := server.New(&server.Config{
		CheckOrigin: func(*http.Request) bool { return true },
	})
	listSize := cfg.ListSize
	srv.SetRoot(func() vtree.Component {
		return newBenchApp(listSize).component()
	})

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	httpServer := &http.Server{Handler: srv.Handler()}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = httpServer.Shutdown(context.Background())
		_ = srv.Shutdown(context.Background())
	}()

	wsURL := "ws://" + ln.Addr().String() + "/ws"

	fmt.Fprintf(os.Stderr, "  bench %s: %d clients for %s at %.1f req/s each\n\n",
		cfg.Profile, cfg.Clients, cfg.Duration, cfg.RPS)

	// Ring sized past the expected sample count so nothing is evicted.
	sampleCap := int(float64(cfg.Clients)*cfg.RPS*cfg.Duration.Seconds()*1.2) + 1024
	tach := tachymeter.New(&tachymeter.Config{Size: sampleCap})

	var counters benchCounters
	var errCounts benchErrorCounts
	var patchOps patchOpCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		go func() {
			defer wg.Done()
			if err := runBenchClient(ctx, wsURL, cfg, &counters, &errCounts, &patchOps, tach); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	report := buildBenchReport(cfg, elapsed, tach.Calc(), &counters, &errCounts, &patchOps,
		before, after, beforeMetrics, afterMetrics)

	writeBenchSummary(os.Stderr, report)
	if total := errCounts.totalErrors.Load(); total > 0 {
		errorMsg("bench finished with %d client errors", total)
	}
	return writeBenchJSON(cfg.JSONOutput, report)
}

func runBenchClient(
	ctx context.Context,
	wsURL string,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrorCounts,
	patchOps *patchOpCounts,
	tach *tachymeter.Tachymeter,
) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	hello := protocol.NewClientHello()
	helloFrame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeClientHello(hello))
	if err := conn.WriteMessage(websocket.BinaryMessage, helloFrame.Encode()); err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake write: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(cfg.RequestTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake read: %w", err)
	}
	reply, err := protocol.DecodeFrame(msg)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake frame decode: %w", err)
	}
	if reply.Type != protocol.FrameHandshake {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake: expected FrameHandshake, got %v", reply.Type)
	}
	sh, err := protocol.DecodeServerHello(reply.Payload)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake server hello decode: %w", err)
	}
	if sh.Status != protocol.HandshakeOK {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("handshake failed: %s", sh.Status)
	}

	// The mount commit ships right after the hello. Drain and ack it so
	// the first measured reply is a real re-render.
	mountSeq, err := awaitBatch(ctx, conn, cfg.RequestTimeout, counters, errCounts, patchOps)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("mount batch: %w", err)
	}
	if err := writeAck(conn, mountSeq); err != nil {
		errCounts.requestWriteFailures.Add(1)
		return fmt.Errorf("ack write: %w", err)
	}

	period := time.Duration(float64(time.Second) / cfg.RPS)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()

		req := &protocol.ScheduleRequest{Root: 0, Priority: uint8(sched.UserBlocking)}
		reqFrame := protocol.NewFrame(protocol.FrameSchedule, protocol.EncodeScheduleRequest(req))
		data := reqFrame.Encode()
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			errCounts.requestWriteFailures.Add(1)
			return fmt.Errorf("schedule write: %w", err)
		}
		counters.requestsSent.Add(1)
		counters.requestBytes.Add(uint64(len(data)))

		seq, err := awaitBatch(ctx, conn, cfg.RequestTimeout, counters, errCounts, patchOps)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				errCounts.replyMissing.Add(1)
				return fmt.Errorf("no patch batch within %s", cfg.RequestTimeout)
			}
			return fmt.Errorf("await batch: %w", err)
		}

		rtt := time.Since(start)
		counters.requestsComplete.Add(1)
		tach.AddTime(rtt)

		if err := writeAck(conn, seq); err != nil {
			errCounts.requestWriteFailures.Add(1)
			return fmt.Errorf("ack write: %w", err)
		}

		if sleep := period - time.Since(start); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// awaitBatch reads frames until a complete patch batch lands. A split
// batch arrives as several frames flagged FlagMore carrying the same
// sequence; the final frame's sequence is returned. Control pings are
// answered inline.
func awaitBatch(
	ctx context.Context,
	conn *websocket.Conn,
	timeout time.Duration,
	counters *benchCounters,
	errCounts *benchErrorCounts,
	patchOps *patchOpCounts,
) (uint64, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			errCounts.frameDecodeFailures.Add(1)
			return 0, err
		}

		switch frame.Type {
		case protocol.FramePatches:
			counters.patchFrames.Add(1)
			counters.patchBytes.Add(uint64(len(msg)))
			batch, err := protocol.DecodeBatch(frame.Payload)
			if err != nil {
				errCounts.batchDecodeFailures.Add(1)
				return 0, err
			}
			counters.patchesTotal.Add(uint64(len(batch.Patches)))
			for _, p := range batch.Patches {
				patchOps.add(p.Op)
			}
			if frame.Flags&protocol.FlagMore != 0 {
				continue
			}
			return batch.Seq, nil

		case protocol.FrameControl:
			if ct, data, err := protocol.DecodeControl(frame.Payload); err == nil && ct == protocol.ControlPing {
				if pp, ok := data.(*protocol.PingPong); ok {
					pongType, pong := protocol.NewPong(pp.Timestamp)
					pongFrame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(pongType, pong))
					_ = conn.WriteMessage(websocket.BinaryMessage, pongFrame.Encode())
				}
			}

		case protocol.FrameError:
			errCounts.serverErrorFrames.Add(1)
			if em, err := protocol.DecodeErrorMessage(frame.Payload); err == nil && em.Fatal {
				return 0, fmt.Errorf("fatal server error: %s", em.Message)
			}

		default:
			// Acks and handshake frames are not expected mid-stream.
		}
	}
}

func writeAck(conn *websocket.Conn, seq uint64) error {
	frame := protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(protocol.NewAck(seq)))
	return conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

func isTimeout(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        benchRunInfo   `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Errors     errorInfo      `json:"errors"`
}

type benchRunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile          string  `json:"profile"`
	Clients          int     `json:"clients"`
	DurationMS       int64   `json:"duration_ms"`
	RPSPerClient     float64 `json:"rps_per_client"`
	ListSize         int     `json:"list_size"`
	MaxProcs         int     `json:"max_procs"`
	MemLimitBytes    int64   `json:"mem_limit_bytes"`
	RequestTimeoutMS int64   `json:"request_timeout_ms"`
}

type latencyInfo struct {
	Min    float64 `json:"min"`
	Avg    float64 `json:"avg"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

type throughputInfo struct {
	RequestsTotal        uint64  `json:"requests_total"`
	RequestsPerSec       float64 `json:"requests_per_sec"`
	RequestsPerSecClient float64 `json:"requests_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type protocolInfo struct {
	RequestBytesTotal uint64            `json:"request_bytes_total"`
	PatchBytesTotal   uint64            `json:"patch_bytes_total"`
	PatchFrames       uint64            `json:"patch_frames_total"`
	PatchesTotal      uint64            `json:"patches_total"`
	AvgRequestBytes   float64           `json:"avg_request_bytes"`
	AvgPatchBytes     float64           `json:"avg_patch_bytes"`
	PatchesPerRequest float64           `json:"patches_per_request"`
	PatchOps          map[string]uint64 `json:"patch_ops"`
}

type errorInfo struct {
	TotalErrors          uint64 `json:"total_errors"`
	HandshakeFailures    uint64 `json:"handshake_failures"`
	RequestWriteFailures uint64 `json:"request_write_failures"`
	FrameDecodeFailures  uint64 `json:"frame_decode_failures"`
	BatchDecodeFailures  uint64 `json:"batch_decode_failures"`
	ServerErrorFrames    uint64 `json:"server_error_frames"`
	ReplyMissing         uint64 `json:"reply_missing"`
}

func buildBenchReport(
	cfg benchConfig,
	elapsed time.Duration,
	calc *tachymeter.Metrics,
	counters *benchCounters,
	errCounts *benchErrorCounts,
	patchOps *patchOpCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	requestsTotal := counters.requestsComplete.Load()
	requestsSent := counters.requestsSent.Load()
	patchesTotal := counters.patchesTotal.Load()
	patchFrames := counters.patchFrames.Load()
	requestBytes := counters.requestBytes.Load()
	patchBytes := counters.patchBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	requestsPerSec := float64(requestsTotal) / elapsedSeconds
	requestsPerSecClient := requestsPerSec / float64(cfg.Clients)

	latency := latencyInfo{}
	if calc.Count > 0 {
		latency = latencyInfo{
			Min:    ms(calc.Time.Min),
			Avg:    ms(calc.Time.Avg),
			P50:    ms(calc.Time.P50),
			P95:    ms(calc.Time.P95),
			P99:    ms(calc.Time.P99),
			Max:    ms(calc.Time.Max),
			StdDev: ms(calc.Time.StdDev),
		}
	}

	avgRequestBytes := 0.0
	if requestsSent > 0 {
		avgRequestBytes = float64(requestBytes) / float64(requestsSent)
	}
	avgPatchBytes := 0.0
	if requestsTotal > 0 {
		avgPatchBytes = float64(patchBytes) / float64(requestsTotal)
	}
	patchesPerRequest := 0.0
	if requestsTotal > 0 {
		patchesPerRequest = float64(patchesTotal) / float64(requestsTotal)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	return benchReport{
		Version: "1",
		Run: benchRunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:          cfg.Profile,
			Clients:          cfg.Clients,
			DurationMS:       cfg.Duration.Milliseconds(),
			RPSPerClient:     cfg.RPS,
			ListSize:         cfg.ListSize,
			MaxProcs:         cfg.MaxProcs,
			MemLimitBytes:    cfg.MemLimitBytes,
			RequestTimeoutMS: cfg.RequestTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			RequestsTotal:        requestsTotal,
			RequestsPerSec:       requestsPerSec,
			RequestsPerSecClient: requestsPerSecClient,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Protocol: protocolInfo{
			RequestBytesTotal: requestBytes,
			PatchBytesTotal:   patchBytes,
			PatchFrames:       patchFrames,
			PatchesTotal:      patchesTotal,
			AvgRequestBytes:   avgRequestBytes,
			AvgPatchBytes:     avgPatchBytes,
			PatchesPerRequest: patchesPerRequest,
			PatchOps:          patchOps.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:          errCounts.totalErrors.Load(),
			HandshakeFailures:    errCounts.handshakeFailures.Load(),
			RequestWriteFailures: errCounts.requestWriteFailures.Load(),
			FrameDecodeFailures:  errCounts.frameDecodeFailures.Load(),
			BatchDecodeFailures:  errCounts.batchDecodeFailures.Load(),
			ServerErrorFrames:    errCounts.serverErrorFrames.Load(),
			ReplyMissing:         errCounts.replyMissing.Load(),
		},
	}
}

func writeBenchSummary(w io.Writer, report benchReport) {
	results := table.NewWriter()
	results.SetOutputMirror(w)
	results.SetTitle("loom bench: %s", report.Workload.Profile)
	results.AppendHeader(table.Row{"requests", "req/s", "min", "p50", "p95", "p99", "max", "errors"})
	results.AppendRow(table.Row{
		humanize.Comma(int64(report.Throughput.RequestsTotal)),
		fmt.Sprintf("%.1f", report.Throughput.RequestsPerSec),
		fmt.Sprintf("%.2fms", report.LatencyMS.Min),
		fmt.Sprintf("%.2fms", report.LatencyMS.P50),
		fmt.Sprintf("%.2fms", report.LatencyMS.P95),
		fmt.Sprintf("%.2fms", report.LatencyMS.P99),
		fmt.Sprintf("%.2fms", report.LatencyMS.Max),
		humanize.Comma(int64(report.Errors.TotalErrors)),
	})
	results.Render()

	detail := table.NewWriter()
	detail.SetOutputMirror(w)
	detail.SetTitle("wire and runtime")
	detail.AppendRows([]table.Row{
		{"request bytes", humanize.IBytes(report.Protocol.RequestBytesTotal)},
		{"patch bytes", humanize.IBytes(report.Protocol.PatchBytesTotal)},
		{"patch frames", humanize.Comma(int64(report.Protocol.PatchFrames))},
		{"patches/request", fmt.Sprintf("%.2f", report.Protocol.PatchesPerRequest)},
		{"alloc", fmt.Sprintf("%.2f MB", report.GC.AllocMB)},
		{"heap live", fmt.Sprintf("%.2f MB", report.GC.HeapLiveMB)},
		{"gc runs", humanize.Comma(int64(report.GC.NumGC))},
		{"gc pause avg", fmt.Sprintf("%.2f ms", report.GC.PauseAvgMS)},
		{"gc cpu", fmt.Sprintf("%.2f%%", report.GC.GCCPUFraction*100)},
	})
	detail.Render()
}

func writeBenchJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("LOOM_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// benchApp is the page every bench session renders: a heading, a pass
// counter, and a keyed list sized by the profile. Each pass bumps the
// counter and rewrites one row, so every scheduled pass changes the tree
// and ships patches.
type benchApp struct {
	listSize int
	renders  int
}

func newBenchApp(listSize int) *benchApp {
	return &benchApp{listSize: listSize}
}

func (a *benchApp) component() vtree.Component {
	return vtree.Func(a.render)
}

func (a *benchApp) render(rc vtree.RenderContext) *vtree.VNode {
	title := loom.NewSignal(rc.Graph(), "loom load generator")
	a.renders++

	rows := make([]*vtree.VNode, 0, a.listSize)
	for i := 0; i < a.listSize; i++ {
		text := fmt.Sprintf("row %d", i)
		if i == a.renders%a.listSize {
			text = fmt.Sprintf("row %d pass %d", i, a.renders)
		}
		rows = append(rows, vtree.Keyed(strconv.Itoa(i), vtree.El("li", text)))
	}

	return vtree.El("div",
		vtree.El("h1", title.Get()),
		vtree.El("p", vtree.Textf("pass %d", a.renders)),
		vtree.El("ul", rows),
	)
}
