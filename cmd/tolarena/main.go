// Command tolarena runs a settlement ledger node and offers client helpers
// for keys, outcome attestations, queries and transactions.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	keyPath  string
	rpcURL   string
	rpcToken string
)

var rootCmd = &cobra.Command{
	Use:   "tolarena",
	Short: "Escrow-backed game settlement ledger",
	Long: `tolarena runs a single-validator ledger that escrows two-party game
stakes, records oracle outcomes, enforces a dispute window and settles pots.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.json", "path to config file")
	rootCmd.PersistentFlags().StringVar(&keyPath, "key", "validator.key", "path to keystore file")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "http://localhost:8545", "node RPC endpoint for client commands")
	rootCmd.PersistentFlags().StringVar(&rpcToken, "token", os.Getenv("TOL_RPC_TOKEN"), "RPC bearer token")
}

// password reads the keystore password from the environment; CLI flags
// would leak it through the process list.
func password() string {
	pw := os.Getenv("TOL_PASSWORD")
	if pw == "" {
		log.Warn("TOL_PASSWORD not set, keystore uses an empty password")
	}
	return pw
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tolarena: %v\n", err)
		os.Exit(1)
	}
}
