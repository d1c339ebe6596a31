package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"hbar-desk/go-client/internal/credstore"
	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/internal/platform/privacylog"
	"hbar-desk/go-client/internal/wallet"
	"hbar-desk/go-client/internal/walletconfig"
	"hbar-desk/go-client/pkg/models"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitNetworkError = 20
	exitNoSession    = 30
	exitTxFailed     = 40
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	switch os.Args[1] {
	case "connect":
		runConnect(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "refresh":
		runRefresh(os.Args[2:])
	case "transfer":
		runTransfer(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	case "topic":
		runTopic(os.Args[2:])
	case "disconnect":
		runDisconnect(os.Args[2:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

// commonFlags wires the flags every subcommand shares.
func commonFlags(fs *flag.FlagSet) (configPath, dataDir *string) {
	configPath = fs.String("config", "", "path to wallet.yaml")
	dataDir = fs.String("data-dir", "", "wallet data directory override")
	return configPath, dataDir
}

func buildService(configPath, dataDir string) *wallet.Service {
	cfg, err := walletconfig.LoadFromPath(configPath)
	if err != nil {
		fail(err.Error(), exitInvalidInput)
	}
	if dataDir != "" {
		cfg.Wallet.DataDir = dataDir
	}
	gw, err := ledger.NewGateway(cfg.Ledger)
	if err != nil {
		fail(err.Error(), exitNetworkError)
	}
	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
	return wallet.New(wallet.Options{
		Store:       credstore.New(cfg.Wallet.DataDir, cfg.Wallet.Passphrase),
		Gateway:     gw,
		Logger:      logger,
		SubmitRPS:   cfg.Wallet.SubmitRPS,
		SubmitBurst: cfg.Wallet.SubmitBurst,
	})
}

// resumeOrFail restores the persisted session or exits.
func resumeOrFail(ctx context.Context, svc *wallet.Service) {
	ok, err := svc.Resume(ctx)
	if err != nil {
		fail(err.Error(), exitNetworkError)
	}
	if !ok {
		fail("no active session; run `hbarctl connect` first", exitNoSession)
	}
}

func runConnect(args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	accountID := fs.String("account", "", "account id, e.g. 0.0.12345")
	key := fs.String("key", os.Getenv("HBARDESK_SIGNING_KEY"), "signing key hex or mnemonic phrase")
	parseFlags(fs, args)

	if strings.TrimSpace(*accountID) == "" || strings.TrimSpace(*key) == "" {
		fail("account and key are required", exitInvalidInput)
	}

	svc := buildService(*configPath, *dataDir)
	ok, err := svc.Connect(context.Background(), *accountID, *key)
	if err != nil || !ok {
		fail(fmt.Sprintf("connect failed: %v", err), exitNetworkError)
	}
	snap, _ := svc.Snapshot()
	printJSON(map[string]any{
		"connected":  true,
		"account_id": snap.AccountID,
		"balance":    models.FormatHbar(snap.Balance),
		"tokens":     len(snap.Tokens),
	})
	os.Exit(exitOK)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	asJSON := fs.Bool("json", false, "emit json")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	snap, _ := svc.Snapshot()
	if *asJSON {
		printJSON(snap)
	} else {
		fmt.Printf("account=%s balance=%s tokens=%d fetched_at=%s\n",
			snap.AccountID, models.FormatHbar(snap.Balance), len(snap.Tokens), snap.FetchedAt.Format(time.RFC3339))
		for _, tok := range snap.Tokens {
			fmt.Printf("  token=%s balance=%d decimals=%d\n", tok.TokenID, tok.Balance, tok.Decimals)
		}
	}
	os.Exit(exitOK)
}

func runRefresh(args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	snap, err := svc.Refresh(context.Background())
	if err != nil {
		fail(err.Error(), exitNetworkError)
	}
	printJSON(map[string]any{
		"account_id": snap.AccountID,
		"balance":    models.FormatHbar(snap.Balance),
		"tokens":     len(snap.Tokens),
	})
	os.Exit(exitOK)
}

func runTransfer(args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	to := fs.String("to", "", "recipient account id")
	amount := fs.String("amount", "", "hbar amount, e.g. 5.1")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.Transfer(context.Background(), *to, *amount)
	reportOutcome(out.Outcome, err, nil)
}

func runToken(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(exitInvalidInput)
	}
	switch args[0] {
	case "create":
		runTokenCreate(args[1:])
	case "associate":
		runTokenAssociate(args[1:])
	case "send":
		runTokenSend(args[1:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func runTokenCreate(args []string) {
	fs := flag.NewFlagSet("token create", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	name := fs.String("name", "", "token name")
	symbol := fs.String("symbol", "", "token symbol")
	supply := fs.String("supply", "0", "initial supply in base units")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.CreateToken(context.Background(), *name, *symbol, *supply)
	extra := map[string]any{}
	if out.TokenID != nil {
		extra["token_id"] = *out.TokenID
	}
	reportOutcome(out.Outcome, err, extra)
}

func runTokenAssociate(args []string) {
	fs := flag.NewFlagSet("token associate", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	tokenID := fs.String("token", "", "token id")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.AssociateToken(context.Background(), *tokenID)
	reportOutcome(out.Outcome, err, nil)
}

func runTokenSend(args []string) {
	fs := flag.NewFlagSet("token send", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	to := fs.String("to", "", "recipient account id")
	tokenID := fs.String("token", "", "token id")
	amount := fs.String("amount", "", "amount in base units")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.TransferToken(context.Background(), *to, *tokenID, *amount)
	reportOutcome(out.Outcome, err, nil)
}

func runTopic(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(exitInvalidInput)
	}
	switch args[0] {
	case "create":
		runTopicCreate(args[1:])
	case "send":
		runTopicSend(args[1:])
	case "tail":
		runTopicTail(args[1:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func runTopicCreate(args []string) {
	fs := flag.NewFlagSet("topic create", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	memo := fs.String("memo", "", "topic memo")
	private := fs.Bool("private", false, "restrict submissions to this session's key")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.CreateTopic(context.Background(), *memo, *private)
	extra := map[string]any{}
	if out.TopicID != nil {
		extra["topic_id"] = *out.TopicID
	}
	reportOutcome(out.Outcome, err, extra)
}

func runTopicSend(args []string) {
	fs := flag.NewFlagSet("topic send", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	topicID := fs.String("topic", "", "topic id")
	message := fs.String("message", "", "message payload")
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	out, err := svc.SendTopicMessage(context.Background(), *topicID, []byte(*message))
	extra := map[string]any{}
	if out.SequenceNumber != nil {
		extra["sequence_number"] = *out.SequenceNumber
	}
	reportOutcome(out.Outcome, err, extra)
}

func runTopicTail(args []string) {
	fs := flag.NewFlagSet("topic tail", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	topicID := fs.String("topic", "", "topic id")
	duration := fs.Duration("duration", 10*time.Second, "how long to tail before exiting")
	parseFlags(fs, args)

	if strings.TrimSpace(*topicID) == "" {
		fail("topic is required", exitInvalidInput)
	}

	svc := buildService(*configPath, *dataDir)
	resumeOrFail(context.Background(), svc)
	if err := svc.SubscribeTopic(context.Background(), *topicID); err != nil {
		fail(err.Error(), exitNetworkError)
	}

	deadline := time.After(*duration)
	seen := uint64(0)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			os.Exit(exitOK)
		case <-ticker.C:
			for _, rec := range svc.ReadTopicLog(*topicID) {
				if rec.SequenceNumber <= seen {
					continue
				}
				seen = rec.SequenceNumber
				fmt.Printf("seq=%d consensus=%s payload=%s\n",
					rec.SequenceNumber, rec.ConsensusTime.Format(time.RFC3339), string(rec.Payload))
			}
		}
	}
}

func runDisconnect(args []string) {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)
	configPath, dataDir := commonFlags(fs)
	parseFlags(fs, args)

	svc := buildService(*configPath, *dataDir)
	if err := svc.Disconnect(); err != nil {
		fail(err.Error(), exitNetworkError)
	}
	printJSON(map[string]any{"disconnected": true})
	os.Exit(exitOK)
}

// reportOutcome prints the classified result and exits with a code
// matching it. Business failures exit non-zero but are not errors.
func reportOutcome(out models.Outcome, err error, extra map[string]any) {
	if err != nil {
		code := exitNetworkError
		if errors.Is(err, wallet.ErrNotConnected) {
			code = exitNoSession
		}
		if errors.Is(err, wallet.ErrInvalidInput) {
			code = exitInvalidInput
		}
		fail(err.Error(), code)
	}
	body := map[string]any{
		"success":        out.Success,
		"transaction_id": out.TransactionID,
		"message":        out.Message,
	}
	if out.RefreshWarning != "" {
		body["refresh_warning"] = out.RefreshWarning
	}
	for k, v := range extra {
		body[k] = v
	}
	printJSON(body)
	if out.Success {
		os.Exit(exitOK)
	}
	os.Exit(exitTxFailed)
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fail(err.Error(), exitInvalidInput)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err.Error(), exitNetworkError)
	}
}

func printUsage() {
	fmt.Println("hbarctl <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  connect     --account <id> --key <hex|mnemonic> [--config path] [--data-dir path]")
	fmt.Println("  status      [--json]")
	fmt.Println("  refresh")
	fmt.Println("  transfer    --to <id> --amount <hbar>")
	fmt.Println("  token       create --name <s> --symbol <s> --supply <n>")
	fmt.Println("              associate --token <id>")
	fmt.Println("              send --to <id> --token <id> --amount <n>")
	fmt.Println("  topic       create [--memo <s>] [--private]")
	fmt.Println("              send --topic <id> --message <s>")
	fmt.Println("              tail --topic <id> [--duration 10s]")
	fmt.Println("  disconnect")
}

func fail(msg string, code int) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}
