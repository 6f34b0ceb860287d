package flags

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ddssec-engine/common"
	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/engine"
	"github.com/ruteri/ddssec-engine/httpserver"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/storage"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// EngineConfig reads pool capacities, falling back to engine defaults.
func EngineConfig(cCtx *cli.Context) engine.Config {
	return engine.Config{
		IdentityCapacity:     cCtx.Int(IdentityCapacityFlag.Name),
		HandshakeCapacity:    cCtx.Int(HandshakeCapacityFlag.Name),
		SharedSecretCapacity: cCtx.Int(SharedSecretCapacityFlag.Name),
		KeyMaterialCapacity:  cCtx.Int(KeyMaterialCapacityFlag.Name),
	}
}

// LoadBuiltin reads every regular file in the --builtin-dir directory into
// the builtin object table, keyed by file name.
func LoadBuiltin(cCtx *cli.Context) (*storage.BuiltinStore, error) {
	dir := cCtx.String(BuiltinDirFlag.Name)
	if dir == "" {
		return storage.NewBuiltinStore(nil)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read builtin directory: %w", err)
	}
	objects := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		objects[entry.Name()] = data
	}
	return storage.NewBuiltinStore(objects)
}

// StorageFactory builds a factory whose builtin:// store is the --builtin-dir table.
func StorageFactory(cCtx *cli.Context, logger *slog.Logger) (*storage.StorageFactory, *storage.BuiltinStore, error) {
	builtin, err := LoadBuiltin(cCtx)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStorageFactory(logger, builtin, []byte(cCtx.String(SealPassphraseFlag.Name))), builtin, nil
}

// ObjectStore opens the persistent store from --object-store. Several URIs
// form a fallback chain. It returns nil when no URI is configured.
func ObjectStore(cCtx *cli.Context, factory *storage.StorageFactory) (interfaces.ObjectStore, error) {
	uris := cCtx.StringSlice(ObjectStoreFlag.Name)
	switch len(uris) {
	case 0:
		return nil, nil
	case 1:
		return factory.StoreForURI(uris[0])
	}
	locations := make([]interfaces.ObjectStoreLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewObjectStoreLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return factory.CreateMultiStore(locations)
}

// NewEngine builds an engine from the engine and storage flags.
func NewEngine(cCtx *cli.Context, logger *slog.Logger) (*engine.Engine, error) {
	factory, builtin, err := StorageFactory(cCtx, logger)
	if err != nil {
		return nil, err
	}
	store, err := ObjectStore(cCtx, factory)
	if err != nil {
		return nil, err
	}
	return engine.New(EngineConfig(cCtx), cryptoutils.NewX509PKI(), builtin, store, logger)
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for the ops API",
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var IdentityCapacityFlag = &cli.IntFlag{
	Name:  "identity-capacity",
	Value: engine.DefaultConfig().IdentityCapacity,
	Usage: "number of identity handles",
}
var HandshakeCapacityFlag = &cli.IntFlag{
	Name:  "handshake-capacity",
	Value: engine.DefaultConfig().HandshakeCapacity,
	Usage: "number of handshake handles",
}
var SharedSecretCapacityFlag = &cli.IntFlag{
	Name:  "shared-secret-capacity",
	Value: engine.DefaultConfig().SharedSecretCapacity,
	Usage: "number of shared secret handles",
}
var KeyMaterialCapacityFlag = &cli.IntFlag{
	Name:  "key-material-capacity",
	Value: engine.DefaultConfig().KeyMaterialCapacity,
	Usage: "number of key material handles",
}

var BuiltinDirFlag = &cli.StringFlag{
	Name:  "builtin-dir",
	Usage: "directory whose files form the builtin object table",
}
var ObjectStoreFlag = &cli.StringSliceFlag{
	Name:  "object-store",
	Usage: "persistent object store URI (file://, sqlite://, redis://, vault://, s3://, ipfs://, github://); repeat for fallback order",
}
var SealPassphraseFlag = &cli.StringFlag{
	Name:    "seal-passphrase",
	EnvVars: []string{"DDSSEC_SEAL_PASSPHRASE"},
	Usage:   "passphrase for object stores with sealed=true",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var EngineFlags = []cli.Flag{
	IdentityCapacityFlag,
	HandshakeCapacityFlag,
	SharedSecretCapacityFlag,
	KeyMaterialCapacityFlag,
	BuiltinDirFlag,
	ObjectStoreFlag,
	SealPassphraseFlag,
}
