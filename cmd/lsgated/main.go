package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lsgate/bridge"
	"lsgate/config"
	"lsgate/crypto"
	"lsgate/native/lstake"
	"lsgate/node"
	"lsgate/observability/logging"
	"lsgate/rpc"
	"lsgate/storage"
)

func main() {
	configFile := flag.String("config", "./lsgated.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LSGATE_ENV"))
	logger := logging.Setup("lsgated", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	admin, err := decodeAccount(cfg.AdminAddress)
	if err != nil {
		panic(fmt.Sprintf("Invalid AdminAddress: %v", err))
	}
	vault, err := decodeAccount(cfg.VaultAddress)
	if err != nil {
		panic(fmt.Sprintf("Invalid VaultAddress: %v", err))
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open state database: %v", err))
	}
	defer db.Close()

	client := bridge.NewClient(cfg.BridgeURL)

	engine := lstake.NewEngine()
	engine.SetState(storage.NewKVStore(db))
	engine.SetBank(client)
	engine.SetTracer(client)
	engine.SetDispatcher(client)
	engine.SetSelf(vault)

	n := node.NewNode(engine, logger)

	initialized, err := engine.Initialized()
	if err != nil {
		panic(fmt.Sprintf("Failed to read gateway config: %v", err))
	}
	if !initialized {
		timeouts := lstake.Timeouts{
			ICATimeout:      cfg.ICATimeout,
			TransferTimeout: cfg.TransferTimeout,
		}
		if err := engine.Initialize(admin, cfg.LSPrefix, timeouts); err != nil {
			panic(fmt.Sprintf("Failed to initialise gateway config: %v", err))
		}
		logger.Info("initialised gateway configuration",
			slog.String("lsPrefix", cfg.LSPrefix),
			slog.String("admin", cfg.AdminAddress))
	}

	server := rpc.NewServer(n, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		panic(fmt.Sprintf("RPC server stopped: %v", err))
	}
}

func decodeAccount(raw string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}
