// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package contains the main function that executes the metamesh-node command.
package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/metamesh-labs/metamesh-node/internal/cardano"
	"github.com/metamesh-labs/metamesh-node/internal/metamesh"
	"github.com/metamesh-labs/metamesh-node/internal/proof"
	"github.com/metamesh-labs/metamesh-node/internal/wallet"
	"github.com/spf13/cobra"
)

var startupMessage = `
MetaMesh backend started at http://localhost:HTTP_PORT
Issue requests at http://localhost:HTTP_PORT/issue-request
Press Ctrl+C to stop the node
`

var (
	opts        = metamesh.NewMetameshOpts()
	debug       bool
	color       bool
	proofInputs map[string]int64
)

var cmd = &cobra.Command{
	Use:     "metamesh-node [flags]",
	Short:   "metamesh-node is the backend node for MetaMesh payment receipts",
	Run:     run,
	Version: versioninfo.Short(),
}

var CompletionCmd = &cobra.Command{
	Use:                   "completion",
	Short:                 "Generate shell completion scripts",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cobra.CheckErr(cmd.Root().GenBashCompletion(os.Stdout))
		case "zsh":
			cobra.CheckErr(cmd.Root().GenZshCompletion(os.Stdout))
		case "fish":
			cobra.CheckErr(cmd.Root().GenFishCompletion(os.Stdout, true))
		case "powershell":
			cobra.CheckErr(cmd.Root().GenPowerShellCompletion(os.Stdout))
		}
	},
}

var proofCmd = &cobra.Command{
	Use:   "proof [contract]",
	Short: "Evaluate a proof contract and print the artifact",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		registry := proof.NewRegistry()
		artifact, err := registry.Evaluate(args[0], proofInputs)
		cobra.CheckErr(err)
		encoded, err := json.MarshalIndent(artifact, "", "  ")
		cobra.CheckErr(err)
		fmt.Println(string(encoded))
	},
}

var devWalletCmd = &cobra.Command{
	Use:   "dev-wallet",
	Short: "Generate a dev signing wallet and print its preprod address",
	Run: func(cmd *cobra.Command, args []string) {
		mnemonic, err := wallet.GenerateMnemonic()
		cobra.CheckErr(err)
		session, err := wallet.NewDevSession(mnemonic, cardano.NetworkPreprod, nil)
		cobra.CheckErr(err)
		fmt.Println("mnemonic:", mnemonic)
		fmt.Println("address: ", session.Address())
	},
}

func init() {
	// enable-*
	cmd.Flags().BoolVarP(&debug, "enable-debug", "d", false, "If set, enable debug output")
	cmd.Flags().BoolVar(&color, "enable-color", true, "If set, enables logs color")

	// http-*
	cmd.Flags().StringVar(&opts.HttpAddress, "http-address", opts.HttpAddress,
		"HTTP address used by metamesh-node to serve its API")
	cmd.Flags().IntVar(&opts.HttpPort, "http-port", opts.HttpPort,
		"HTTP port used by metamesh-node to serve its API")

	// database
	cmd.Flags().StringVar(&opts.DbImplementation, "db-implementation", opts.DbImplementation,
		"DB to use. postgres or sqlite")
	cmd.Flags().StringVar(&opts.SqliteFile, "sqlite-file", opts.SqliteFile,
		"The sqlite file to load the state")

	// pinner-*
	cmd.Flags().StringVar(&opts.PinnerBackend, "pinner-backend", opts.PinnerBackend,
		"Content-addressed backend (real or fallback)")
	cmd.Flags().StringVar(&opts.PinningServiceUrl, "pinner-service-url", opts.PinningServiceUrl,
		"URL of the pinning service used by the real backend")

	proofCmd.Flags().StringToInt64Var(&proofInputs, "inputs", nil,
		"Inputs for the contract. Example: --inputs score=85,threshold=80")
}

func run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	startTime := time.Now()

	// setup log
	logOpts := new(tint.Options)
	if debug {
		logOpts.Level = slog.LevelDebug
	}
	logOpts.AddSource = debug
	logOpts.NoColor = !color || !isatty.IsTerminal(os.Stdout.Fd())
	logOpts.TimeFormat = "[15:04:05.000]"
	handler := tint.NewHandler(os.Stdout, logOpts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// handle signals with notify context
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// start metamesh-node
	ready := make(chan struct{}, 1)
	go func() {
		select {
		case <-ready:
			msg := strings.Replace(
				startupMessage,
				"HTTP_PORT",
				fmt.Sprint(opts.HttpPort), -1)
			fmt.Println(msg)
			slog.Info("metamesh-node: ready", "after", time.Since(startTime))
		case <-ctx.Done():
		}
	}()
	LoadEnv()
	opts.PinningServiceToken = os.Getenv("NFT_STORAGE_API_KEY")
	worker, err := metamesh.NewSupervisor(opts)
	cobra.CheckErr(err)
	err = worker.Start(ctx, ready)
	cobra.CheckErr(err)
}

//go:embed .env
var envBuilded string

// LoadEnv from embedded .env file
func LoadEnv() {
	currentEnv := map[string]bool{}
	rawEnv := os.Environ()
	for _, rawEnvLine := range rawEnv {
		key := strings.Split(rawEnvLine, "=")[0]
		currentEnv[key] = true
	}

	parse, err := godotenv.Unmarshal(envBuilded)
	cobra.CheckErr(err)

	for k, v := range parse {
		if !currentEnv[k] {
			slog.Debug("env: setting env", "key", k, "value", v)
			err := os.Setenv(k, v)
			cobra.CheckErr(err)
		} else {
			slog.Debug("env: skipping env", "key", k)
		}
	}

	slog.Debug("env: loaded")
}

func main() {
	cmd.AddCommand(CompletionCmd, proofCmd, devWalletCmd)
	cobra.CheckErr(cmd.Execute())
}
