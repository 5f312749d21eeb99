package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/auditlog"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/chunkstore"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/health"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/keymanager"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/raftnode"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/repair"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/transport"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/verifier"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "simplidfsd",
	Short:   "simplidfsd runs one node of a SimpliDFS cluster",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("simplidfsd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.Flags().String("node-id", "", "This node's unique ID (required)")
	rootCmd.Flags().String("listen", "127.0.0.1:9000", "Address this node serves the cluster wire protocol on")
	rootCmd.Flags().String("data-dir", "", "Directory for persisted metadata and Raft state (required)")
	rootCmd.Flags().StringSlice("peer", nil, "Peer as id=host:port; repeatable")
	rootCmd.Flags().Int("replication-factor", authority.DefaultReplicationFactor, "Number of replicas placed per file")
	rootCmd.Flags().Duration("node-timeout", authority.DefaultNodeTimeout, "Heartbeat timeout before a node is marked not alive")
	rootCmd.Flags().Duration("repair-interval", repair.DefaultInterval, "Replica repair sweep period")
	rootCmd.Flags().Duration("verify-interval", verifier.DefaultInterval, "Replica hash verification sweep period")
	rootCmd.Flags().Duration("audit-verify-interval", 1*time.Minute, "Audit log hash-chain verification sweep period")
	rootCmd.MarkFlagRequired("node-id")
	rootCmd.MarkFlagRequired("data-dir")
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

// logClusterEvents drains the broker's event feed onto this node's own
// structured logger, so node health transitions, repair activity, Raft role
// changes, key rotation, and audit appends all surface in the daemon's log
// stream without a separate operator subscribing first. It runs for the
// life of the process; runDaemon's shutdown never joins it explicitly,
// since the broker gives subscribers no stop signal of their own.
func logClusterEvents(broker *events.Broker, logger zerolog.Logger) {
	sub := broker.Subscribe()
	for evt := range sub {
		e := logger.Info().Str("event", string(evt.Type))
		for k, v := range evt.Metadata {
			e = e.Str(k, v)
		}
		e.Msg(evt.Message)
	}
}

// trackReadiness drains the broker's event feed and keeps the "raft"
// readiness component (see pkg/metrics.GetReadiness) in step with the
// node's actual role, so `ctl health` reflects a real election outcome
// instead of whatever RegisterComponent said at startup.
func trackReadiness(broker *events.Broker) {
	sub := broker.Subscribe()
	for evt := range sub {
		if evt.Type != events.EventRaftRoleChange {
			continue
		}
		metrics.UpdateComponent("raft", true, "role="+evt.Metadata["role"])
	}
}

// parsePeers turns "id=host:port" flag values into the peer-ID list
// raftnode.Node drives elections over, plus the ID->address map
// raftnode.NewWireTransport resolves those IDs against.
func parsePeers(raw []string) ([]string, map[string]string, error) {
	ids := make([]string, 0, len(raw))
	addrs := make(map[string]string, len(raw))
	for _, p := range raw {
		id, addr, ok := strings.Cut(p, "=")
		if !ok || id == "" || addr == "" {
			return nil, nil, fmt.Errorf("invalid --peer %q, want id=host:port", p)
		}
		ids = append(ids, id)
		addrs[id] = addr
	}
	return ids, addrs, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node-id")
	listenAddr, _ := cmd.Flags().GetString("listen")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	peerFlags, _ := cmd.Flags().GetStringSlice("peer")
	replFactor, _ := cmd.Flags().GetInt("replication-factor")
	nodeTimeout, _ := cmd.Flags().GetDuration("node-timeout")
	repairInterval, _ := cmd.Flags().GetDuration("repair-interval")
	verifyInterval, _ := cmd.Flags().GetDuration("verify-interval")
	auditVerifyInterval, _ := cmd.Flags().GetDuration("audit-verify-interval")

	logger := log.WithComponent("simplidfsd").With().Str("node_id", nodeID).Logger()
	metrics.SetVersion(Version)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	peerIDs, peerAddrs, err := parsePeers(peerFlags)
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	go logClusterEvents(broker, logger)
	go trackReadiness(broker)

	auth := authority.NewWithConfig(replFactor, nodeTimeout, time.Now)
	auth.SetBroker(broker)
	if err := auth.Load(dataDir); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	auth.SetDataDir(dataDir)
	metrics.RegisterComponent("authority", true, "metadata loaded")

	healthCache := health.New()
	healthCache.SetBroker(broker)

	chunks := chunkstore.New()

	keys, err := keymanager.NewFromEnv()
	if err != nil {
		logger.Warn().Err(err).Msg("no cluster key in environment, generating an ephemeral one")
		generated, genErr := keymanager.GenerateKey()
		if genErr != nil {
			return fmt.Errorf("generate cluster key: %w", genErr)
		}
		keys, err = keymanager.New(generated)
		if err != nil {
			return fmt.Errorf("init key manager: %w", err)
		}
	}

	keys.SetBroker(broker)

	audit := auditlog.New()
	audit.SetBroker(broker)
	auditVerifier := auditlog.NewVerifier(audit, auditVerifyInterval)

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-log.db"))
	if err != nil {
		return fmt.Errorf("open raft log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-stable.db"))
	if err != nil {
		return fmt.Errorf("open raft stable store: %w", err)
	}

	wireTransport := raftnode.NewWireTransport(peerAddrs)
	node := raftnode.New(nodeID, peerIDs, wireTransport, applyTo(auth), stableStore, logStore)
	node.SetBroker(broker)
	metrics.RegisterComponent("raft", true, "node started as "+node.Role().String())

	repairWorker := repair.NewWithConfig(auth, healthCache, replicatorFor(logger), repairInterval, replFactor)
	repairWorker.SetBroker(broker)

	replicaVerifier := verifier.NewWithInterval(auth, healthCache, fetcherFor(auth), verifyInterval)

	collector := metrics.NewCollector(auth, metrics.DefaultCollectInterval, logger)

	d := &daemon{
		auth:   auth,
		raft:   node,
		health: healthCache,
		chunks: chunks,
		repair: repairWorker,
		keys:   keys,
		audit:  audit,
		logger: logger,
	}

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	server := transport.NewServer(newHandler(d))
	metrics.RegisterComponent("transport", true, "listening on "+listenAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	node.Start()
	repairWorker.Start()
	replicaVerifier.Start()
	auditVerifier.Start()
	collector.Start()

	fmt.Printf("simplidfsd %s listening on %s (%d peers)\n", nodeID, listenAddr, len(peerIDs))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	collector.Stop()
	auditVerifier.Stop()
	replicaVerifier.Stop()
	repairWorker.Stop()
	node.Stop()
	server.Shutdown()
	broker.Stop()

	if err := auth.Save(dataDir); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("✓ Shutdown complete")
	return nil
}
