// Command hived serves one cell of the transaction coordinator: the
// TransactionSupervisor and MailboxTransport gRPC services, backed by a
// local replicatedlog.Log and advertised to peers via celldirectory.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hiveprotocol/hive/go/celldirectory"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
	"github.com/hiveprotocol/hive/go/mailbox"
	"github.com/hiveprotocol/hive/go/replicatedlog"
	"github.com/hiveprotocol/hive/go/supervisor"
	"github.com/hiveprotocol/hive/go/timestamp"
	"github.com/hiveprotocol/hive/go/txnmanager/fake"
)

// config is this cell's startup configuration, parsed from flags or the
// environment (spec.md §7's operational knobs: cell identity, storage,
// and the etcd-backed directory).
type config struct {
	DataDir      string        `long:"data-dir" env:"HIVED_DATA_DIR" description:"directory holding this cell's replicated log" required:"true"`
	ListenAddr   string        `long:"listen-addr" env:"HIVED_LISTEN_ADDR" description:"gRPC listen address" default:":7070"`
	MetricsAddr  string        `long:"metrics-addr" env:"HIVED_METRICS_ADDR" description:"Prometheus /metrics listen address" default:":9090"`
	CellIdHi     uint64        `long:"cell-id-hi" env:"HIVED_CELL_ID_HI" description:"high 64 bits of this cell's id" required:"true"`
	CellIdLo     uint64        `long:"cell-id-lo" env:"HIVED_CELL_ID_LO" description:"low 64 bits of this cell's id (embeds the cell tag)" required:"true"`
	EtcdEndpoint []string      `long:"etcd-endpoint" env:"HIVED_ETCD_ENDPOINTS" env-delim:"," description:"etcd cluster endpoints backing celldirectory" required:"true"`
	EtcdPrefix   string        `long:"etcd-prefix" env:"HIVED_ETCD_PREFIX" description:"etcd key prefix for leader election and directory entries" default:"/hive"`
	MailboxTick  time.Duration `long:"mailbox-tick" env:"HIVED_MAILBOX_TICK" description:"interval between mailbox delivery sweeps" default:"200ms"`
	LogLevel     string        `long:"log-level" env:"HIVED_LOG_LEVEL" description:"logrus level" default:"info"`
}

func main() {
	var cfg config
	if _, err := flags.Parse(&cfg); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	var logger = newLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("hived exited")
	}
}

func newLogger(level string) *log.Entry {
	var base = log.New()
	base.SetFormatter(&log.JSONFormatter{})
	if lvl, err := log.ParseLevel(level); err == nil {
		base.SetLevel(lvl)
	}
	return log.NewEntry(base)
}

func run(cfg config, logger *log.Entry) error {
	var self = hiveid.CellId{Hi: cfg.CellIdHi, Lo: cfg.CellIdLo}
	var cellLogger = logger.WithField("cell", self.String())

	var replicated, err = replicatedlog.Open(cfg.DataDir, cellLogger)
	if err != nil {
		return errors.Wrap(err, "opening replicated log")
	}
	defer replicated.Close()
	if err = replicated.Recover(); err != nil {
		return errors.Wrap(err, "replaying replicated log")
	}

	var etcdClient *clientv3.Client
	if etcdClient, err = clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoint,
		DialTimeout: 5 * time.Second,
	}); err != nil {
		return errors.Wrap(err, "connecting to etcd")
	}
	defer etcdClient.Close()

	var directory = celldirectory.New(etcdClient, cfg.EtcdPrefix)

	// txnMgr stands in for the external transaction-manager adapter
	// (spec.md §1, component C3): hived has no transactional storage
	// engine of its own to drive, so it wires the in-memory fake that
	// exercises the PrepareCommit/CommitTransaction/AbortTransaction/
	// PingTransaction contract exactly as the real adapter would.
	var txnMgr = fake.New()
	var clock = timestamp.NewMonotonicClock()

	var dispatch = &dispatcherHandle{}
	var mailMgr = mailbox.NewManager(self, dispatch, cellLogger)
	var sup = supervisor.New(self, replicated, txnMgr, clock, mailMgr, cellLogger)
	dispatch.target = sup

	// Second replay, now that supervisor.New has registered the mutation
	// handlers. The Recover call above runs before any handler exists, so
	// it returns an error for any non-empty log and this one is reached
	// only when the log is empty.
	if err = replicated.Recover(); err != nil {
		return errors.Wrap(err, "replaying replicated log")
	}

	var registerer = prometheus.DefaultRegisterer
	sup.MustRegister(registerer)

	var dialCache = newConnCache()
	defer dialCache.closeAll()

	var sender = mailbox.NewSender(self, mailMgr, directory, dialCache.dialMailbox, cellLogger)

	var election = celldirectory.NewElection(etcdClient, cfg.EtcdPrefix, self, cfg.ListenAddr, cellLogger,
		replicated.BecomeLeader, replicated.StepDown)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if electErr := election.Run(ctx); electErr != nil {
			cellLogger.WithError(electErr).Warn("leader election loop exited")
		}
	}()
	go runMailboxSweeper(ctx, mailMgr, sender, cfg.MailboxTick, cellLogger)

	var grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	hivepb.RegisterTransactionSupervisorServer(grpcServer, sup)
	hivepb.RegisterMailboxTransportServer(grpcServer, mailbox.NewServer(mailMgr))
	grpc_prometheus.Register(grpcServer)

	var listener net.Listener
	if listener, err = net.Listen("tcp", cfg.ListenAddr); err != nil {
		return errors.Wrap(err, "binding gRPC listener")
	}

	go serveMetrics(cfg.MetricsAddr, cellLogger)

	cellLogger.WithField("addr", cfg.ListenAddr).Info("hived serving")
	return grpcServer.Serve(listener)
}

// dispatcherHandle breaks the construction cycle between mailbox.Manager
// (which needs a Dispatcher at construction) and supervisor.Supervisor
// (which needs a constructed Manager): it forwards once target is set.
type dispatcherHandle struct {
	target mailbox.Dispatcher
}

func (d *dispatcherHandle) Dispatch(sender hiveid.CellId, payloadType string, payload []byte) {
	d.target.Dispatch(sender, payloadType, payload)
}

// runMailboxSweeper periodically flushes every peer's pending_outgoing
// backlog (spec.md §4.1): a cell has no push notification for "a new
// message was posted," so delivery is driven by a fixed-interval sweep
// over whatever mailboxes currently hold a backlog.
func runMailboxSweeper(ctx context.Context, mgr *mailbox.Manager, sender *mailbox.Sender, tick time.Duration, logger *log.Entry) {
	var ticker = time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for peer := range mgr.PendingOutgoing() {
				go func(peer hiveid.CellId) {
					if err := sender.Deliver(ctx, peer); err != nil && ctx.Err() == nil {
						logger.WithFields(log.Fields{"peer": peer.String(), "error": err}).
							Debug("mailbox sweep could not deliver to peer")
					}
				}(peer)
			}
		}
	}
}

func serveMetrics(addr string, logger *log.Entry) {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("metrics server exited")
	}
}

// connCache caches gRPC client connections to peer cell addresses so the
// mailbox sender does not redial on every delivery sweep.
type connCache struct {
	mu    chan struct{}
	conns map[string]*grpc.ClientConn
}

func newConnCache() *connCache {
	return &connCache{mu: make(chan struct{}, 1), conns: make(map[string]*grpc.ClientConn)}
}

func (c *connCache) dialMailbox(ctx context.Context, address string) (hivepb.MailboxTransportClient, error) {
	var conn, err = c.dial(address)
	if err != nil {
		return nil, err
	}
	return hivepb.NewMailboxTransportClient(conn), nil
}

func (c *connCache) dial(address string) (*grpc.ClientConn, error) {
	c.mu <- struct{}{}
	defer func() { <-c.mu }()

	if conn, ok := c.conns[address]; ok {
		return conn, nil
	}
	var conn, err = grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpc_prometheus.UnaryClientInterceptor),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	c.conns[address] = conn
	return conn, nil
}

func (c *connCache) closeAll() {
	c.mu <- struct{}{}
	defer func() { <-c.mu }()
	for _, conn := range c.conns {
		conn.Close()
	}
}
