// Command vault-engine runs the staking-and-rewards accounting engine as a
// standalone process: serve opens the embedded store and exposes the
// websocket event feed and Prometheus metrics, init seeds a fresh pool, and
// inspect prints a read-only snapshot. The cobra+viper command layout
// follows cmd/quantum-node/main.go.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quantum-vault-engine/engine/external/memory"
	"quantum-vault-engine/engine/feed"
	"quantum-vault-engine/engine/monitor"
	"quantum-vault-engine/engine/ops"
	"quantum-vault-engine/engine/store"
	"quantum-vault-engine/engine/types"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

var (
	dataDir     string
	listenAddr  string
	metricsAddr string
	ownerHex    string
	routerHex   string
)

var rootCmd = &cobra.Command{
	Use:   "vault-engine",
	Short: "Deterministic multi-vault staking-and-rewards accounting engine",
	Long:  "vault-engine runs the tick-driven pool/vault/user reward accounting engine over an embedded store.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "leveldb data directory")
	rootCmd.PersistentFlags().StringVar(&ownerHex, "owner", "", "0x-prefixed owner address")
	rootCmd.PersistentFlags().StringVar(&routerHex, "router", "", "0x-prefixed router address (optional)")
	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd, initCmd, inspectCmd, replayCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the store and serve the websocket feed and metrics endpoints",
	Run:   runServe,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the pool row in a fresh store",
	Run:   runInit,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a read-only snapshot of the pool and its vaults",
	Run:   runInspect,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print the append-only event log from a given sequence number",
	Run:   runReplay,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", ":8090", "websocket feed listen address")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":8091", "Prometheus/health listen address")

	initCmd.Flags().Int64("start", time.Now().Unix(), "pool start time (unix seconds)")
	initCmd.Flags().Int64("duration", 120*86400, "pool duration in seconds")
	initCmd.Flags().String("emission-per-second", "0", "emission per second, decimal token units scaled by 1e18")
	initCmd.Flags().String("total-rewards", "0", "total reward envelope, decimal token units scaled by 1e18")
	viper.BindPFlags(initCmd.Flags())

	var since uint64
	replayCmd.Flags().Uint64Var(&since, "since", 0, "replay events from this sequence number onward")
}

func mustOwner() types.Address {
	if ownerHex == "" {
		log.Fatal("--owner is required")
	}
	addr, err := types.HexToAddress(ownerHex)
	if err != nil {
		log.Fatalf("invalid --owner: %v", err)
	}
	return addr
}

func router() types.Address {
	if routerHex == "" {
		return types.ZeroAddress
	}
	addr, err := types.HexToAddress(routerHex)
	if err != nil {
		log.Fatalf("invalid --router: %v", err)
	}
	return addr
}

func openStore() *store.LevelStore {
	st, err := store.OpenLevelStore(dataDir)
	if err != nil {
		log.Fatalf("open store at %s: %v", dataDir, err)
	}
	return st
}

// newReferenceEngine wires the engine over the real store with the
// in-memory reference implementations of the four external collaborators
// (§6). A production deployment would swap these for adapters onto the
// real points/boost/custody systems without changing engine/ops.
func newReferenceEngine(ctx context.Context, st store.Store) *ops.Engine {
	pool, ok, err := st.LoadPool()
	if err != nil || !ok {
		log.Fatalf("load pool: %v (run `vault-engine init` first)", err)
	}

	rewards := memory.NewRewardCustodian(pool.TotalRewards)
	principal := memory.NewPrincipalCustodian()
	boosts := memory.NewBoostRegistry()
	points := memory.NewPointsLedger(false)

	eng, err := ops.New(ctx, st, points, boosts, rewards, principal, mustOwner(), router())
	if err != nil {
		log.Fatalf("construct engine: %v", err)
	}
	return eng
}

func runInit(cmd *cobra.Command, args []string) {
	st := openStore()
	defer st.Close()
	ctx := context.Background()

	start := viper.GetInt64("start")
	duration := viper.GetInt64("duration")
	emission, err := uint256.FromDecimal(viper.GetString("emission-per-second"))
	if err != nil {
		log.Fatalf("invalid --emission-per-second: %v", err)
	}
	totalRewards, err := uint256.FromDecimal(viper.GetString("total-rewards"))
	if err != nil {
		log.Fatalf("invalid --total-rewards: %v", err)
	}

	rewardCustodian := memory.NewRewardCustodian(totalRewards)
	if err := ops.InitPool(ctx, st, rewardCustodian, start, start+duration, emission, totalRewards); err != nil {
		log.Fatalf("init pool: %v", err)
	}
	fmt.Printf("pool initialized: start=%d end=%d emission_per_second=%s total_rewards=%s\n",
		start, start+duration, emission, totalRewards)
}

func runServe(cmd *cobra.Command, args []string) {
	fmt.Printf("starting vault-engine v%s (build %s, commit %s)\n", Version, BuildTime, Commit)

	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := newReferenceEngine(ctx, st)

	hub := feed.NewHub(st)
	go hub.Run(ctx)

	metricsServer := monitor.NewServer(eng, metricsAddr, 10*time.Second)
	if err := metricsServer.Start(); err != nil {
		log.Fatalf("start metrics server: %v", err)
	}
	defer metricsServer.Stop()

	feedRouter := mux.NewRouter()
	feedRouter.HandleFunc("/ws", hub.ServeWS)
	feedServer := &http.Server{Addr: listenAddr, Handler: feedRouter}
	go func() {
		if err := feedServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("feed server: %v", err)
		}
	}()

	fmt.Printf("websocket feed listening on %s\n", listenAddr)
	fmt.Printf("metrics listening on %s\n", metricsAddr)
	fmt.Printf("data directory: %s\n", dataDir)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("shutting down vault-engine...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	feedServer.Shutdown(shutdownCtx)
}

func runInspect(cmd *cobra.Command, args []string) {
	st := openStore()
	defer st.Close()
	ctx := context.Background()

	eng := newReferenceEngine(ctx, st)

	pool, err := eng.PoolStatus()
	if err != nil {
		log.Fatalf("pool_status: %v", err)
	}
	vaults, err := eng.ListVaults(time.Now().Unix(), ops.FilterAll)
	if err != nil {
		log.Fatalf("list_vaults: %v", err)
	}

	out := struct {
		Pool   *types.Pool    `json:"pool"`
		Vaults []*types.Vault `json:"vaults"`
	}{Pool: pool, Vaults: vaults}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode snapshot: %v", err)
	}
}

func runReplay(cmd *cobra.Command, args []string) {
	st := openStore()
	defer st.Close()

	since, _ := cmd.Flags().GetUint64("since")
	events, err := st.ListEventsSince(since)
	if err != nil {
		log.Fatalf("list events since %d: %v", since, err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			log.Fatalf("encode event %d: %v", e.Seq, err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
