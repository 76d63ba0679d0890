package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/firegate/firegate/internal/logging"
	"github.com/firegate/firegate/internal/monitoring"
	"github.com/firegate/firegate/internal/packet"
	"github.com/firegate/firegate/internal/ring"
)

var (
	// ErrNoRing is returned when the pool is constructed without a source.
	ErrNoRing = errors.New("pipeline: no ring buffer")

	// ErrNoSink is returned when the pool is constructed without an open
	// output sink. Workers never start without one.
	ErrNoSink = errors.New("pipeline: no output sink")
)

// ProcessFunc classifies one frame. Implementations must be pure and safe
// to call from every worker at once. An error marks the frame as failed;
// the frame still produces a sentinel record so the ledger advances.
type ProcessFunc func(pkt *packet.Packet) (packet.Verdict, error)

// Config assembles a pool.
type Config struct {
	Workers int
	Ring    *ring.Ring
	Sink    io.Writer
	Process ProcessFunc // defaults to packet.Classify
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Pool is the ordered consumer pool. Workers dequeue concurrently, but
// commit through the ledger in dequeue order.
type Pool struct {
	workers int
	ring    *ring.Ring
	sink    io.Writer
	process ProcessFunc
	log     *logging.Logger
	metrics *monitoring.Metrics

	// intake serializes each dequeue with its ledger reservation so the
	// ledger order is exactly the dequeue order.
	intake sync.Mutex
	ledger *ledger

	wg      sync.WaitGroup
	sinkErr error // written only under the ledger lock
}

// New validates cfg and builds a pool. The sink must already be open; a
// missing sink is fatal before any worker starts.
func New(cfg Config) (*Pool, error) {
	if cfg.Ring == nil {
		return nil, ErrNoRing
	}
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Process == nil {
		cfg.Process = func(pkt *packet.Packet) (packet.Verdict, error) {
			return packet.Classify(pkt), nil
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.NewMetrics()
	}

	return &Pool{
		workers: cfg.Workers,
		ring:    cfg.Ring,
		sink:    cfg.Sink,
		process: cfg.Process,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		ledger:  newLedger(),
	}, nil
}

// Run starts the workers and blocks until the ring is closed and fully
// drained. It returns the first sink write failure, if any.
func (p *Pool) Run() error {
	p.log.Info("consumer pool starting", zap.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.wg.Wait()

	p.log.Info("consumer pool drained", zap.Int("pending", p.ledger.pending()))
	return p.sinkErr
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	frame := make([]byte, packet.Size)
	for {
		p.intake.Lock()
		if _, err := p.ring.Dequeue(frame); err != nil {
			p.intake.Unlock()
			p.log.Debug("worker exiting", zap.Int("worker", id))
			return
		}

		var pkt packet.Packet
		pkt.Unmarshal(frame) // frame is exactly packet.Size bytes
		key := pkt.Header.Timestamp
		ticket := p.ledger.reserve()
		p.intake.Unlock()

		p.metrics.RecordDequeue()
		p.metrics.RingOccupancy.Set(float64(p.ring.Len()))

		start := time.Now()
		verdict, perr := p.process(&pkt)
		p.metrics.ProcessSeconds.Observe(time.Since(start).Seconds())

		label := verdict.String()
		if perr != nil {
			label = "ERR"
			p.log.Warn("frame processing failed",
				zap.Uint64("timestamp", key), zap.Error(perr))
		}
		rec := formatRecord(label, pkt.Hash(), key)

		waitStart := time.Now()
		p.ledger.commit(ticket, func() {
			if _, err := p.sink.Write(rec); err != nil && p.sinkErr == nil {
				p.sinkErr = err
			}
		})
		p.metrics.CommitWait.Observe(time.Since(waitStart).Seconds())
		p.metrics.RecordVerdict(label, perr != nil)
	}
}

// formatRecord renders one output line: verdict, fixed-width hex digest,
// sequence key.
func formatRecord(label string, hash, key uint64) []byte {
	return []byte(fmt.Sprintf("%s %016x %d\n", label, hash, key))
}
