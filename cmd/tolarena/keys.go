package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tolelom/tolarena/core"
	"github.com/tolelom/tolarena/wallet"
)

func init() {
	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(attestCmd)
}

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a new key and write it to the keystore",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.Generate()
		if err != nil {
			return err
		}
		if err := wallet.SaveKey(keyPath, password(), w.PrivKey()); err != nil {
			return err
		}
		fmt.Printf("Public key: %s\n", w.PubKey())
		fmt.Printf("Saved to:   %s\n", keyPath)
		return nil
	},
}

var attestCmd = &cobra.Command{
	Use:   "attest <game-id> <winner> <choices-json>",
	Short: "Sign an outcome digest with the keystore key",
	Long: `Prints the attestation object for submit_outcome. choices-json is a list
of rounds such as '[{"p1":1,"p2":3}]' (1 rock, 2 paper, 3 scissors, 0 none).
Use "" as the winner for a draw.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("game id: %w", err)
		}
		var choices []core.Round
		if err := json.Unmarshal([]byte(args[2]), &choices); err != nil {
			return fmt.Errorf("choices: %w", err)
		}
		privKey, err := wallet.LoadKey(keyPath, password())
		if err != nil {
			return err
		}
		att, err := wallet.New(privKey).Attest(id, choices, args[1])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(att, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
