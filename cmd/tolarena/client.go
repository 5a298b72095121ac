package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tolelom/tolarena/config"
	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/rpc"
	"github.com/tolelom/tolarena/vm"
	"github.com/tolelom/tolarena/wallet"
)

var (
	txFee   uint64
	txValue uint64
)

func init() {
	sendCmd.Flags().Uint64Var(&txFee, "fee", 0, "transaction fee")
	sendCmd.Flags().Uint64Var(&txValue, "value", 0, "native value to attach (stakes)")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sendCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <method> [params-json]",
	Short: "Call a read-only RPC method and print the result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params json.RawMessage
		if len(args) == 2 {
			params = json.RawMessage(args[1])
		}
		var out json.RawMessage
		client := rpc.NewClient(rpcURL, rpcToken)
		if err := client.Call(cmd.Context(), args[0], params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <tx-type> <payload-json>",
	Short: "Sign a transaction with the keystore key and submit it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := core.TxType(args[0])
		if !vm.Registered(typ) {
			return fmt.Errorf("unknown transaction type %q (known: %v)", typ, vm.RegisteredTypes())
		}
		cfg, err := config.LoadOrDefault(cfgPath)
		if err != nil {
			return err
		}
		privKey, err := wallet.LoadKey(keyPath, password())
		if err != nil {
			return err
		}
		w := wallet.New(privKey)
		client := rpc.NewClient(rpcURL, rpcToken)

		nonce, err := client.Nonce(cmd.Context(), w.PubKey())
		if err != nil {
			return err
		}
		tx, err := w.NewValueTx(cfg.Genesis.ChainID, typ, nonce, txFee, txValue, json.RawMessage(args[1]))
		if err != nil {
			return err
		}
		id, err := client.SendTx(cmd.Context(), tx)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func printJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
