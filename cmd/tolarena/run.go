package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tolelom/tolarena/config"
	"github.com/tolelom/tolarena/metrics"
	"github.com/tolelom/tolarena/node"
	"github.com/tolelom/tolarena/storage"
	"github.com/tolelom/tolarena/wallet"
)

var ephemeral bool

func init() {
	runCmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep chain state in memory only")
	rootCmd.AddCommand(runCmd)
}

func openDB(dataDir string) (*storage.LevelDB, error) {
	if ephemeral {
		log.Warn("Running with in-memory state, nothing is persisted")
		return storage.NewMemLevelDB()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return storage.NewLevelDB(filepath.Join(dataDir, "chain"))
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ledger node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(cfgPath)
		if err != nil {
			return err
		}
		privKey, err := wallet.LoadKey(keyPath, password())
		if err != nil {
			return err
		}

		db, err := openDB(cfg.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()

		reg := prometheus.NewRegistry()
		n, err := node.New(cfg, db, privKey, reg)
		if err != nil {
			return err
		}
		if err := n.Start(metrics.NewHandler(reg)); err != nil {
			return err
		}
		log.Info("Node running", "validator", privKey.Public().Hex(), "height", n.Chain.Height())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutting down...")
		n.Stop()
		log.Info("Shutdown complete.")
		return nil
	},
}
