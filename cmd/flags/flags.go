package flags

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/cryptalias/common"
	"github.com/ruteri/cryptalias/httpserver"
	"github.com/ruteri/cryptalias/keypin"
	"github.com/ruteri/cryptalias/kms"
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
	listenAddr := cCtx.String(ListenAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// MasterKey decodes the hex master key flag.
func MasterKey(cCtx *cli.Context) ([]byte, error) {
	if !cCtx.IsSet(MasterKeyFlag.Name) {
		return nil, fmt.Errorf("%s is required", MasterKeyFlag.Name)
	}
	key, err := hex.DecodeString(cCtx.String(MasterKeyFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", MasterKeyFlag.Name, err)
	}
	return key, nil
}

// KeyProvider builds the serving KMS. Master key shares take precedence over
// a plain master key; every share given counts towards the threshold.
func KeyProvider(cCtx *cli.Context) (httpserver.KeyProvider, error) {
	shares := cCtx.StringSlice(MasterKeyShareFlag.Name)
	if len(shares) == 0 {
		masterKey, err := MasterKey(cCtx)
		if err != nil {
			return nil, err
		}
		return kms.NewSimpleKMS(masterKey)
	}

	shamirKMS, err := kms.NewShamirKMSRecovery(len(shares))
	if err != nil {
		return nil, err
	}
	for i, s := range shares {
		share, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s #%d: %w", MasterKeyShareFlag.Name, i+1, err)
		}
		if err := shamirKMS.SubmitShare(share); err != nil {
			return nil, err
		}
	}
	if !shamirKMS.IsUnlocked() {
		return nil, kms.ErrKMSLocked
	}
	return shamirKMS, nil
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

var JSONOutputFlag = &cli.BoolFlag{
	Name:  "json",
	Value: false,
	Usage: "print the resolution as JSON",
}
var TimeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 10 * time.Second,
	Usage: "timeout for each HTTP request",
}
var DNSPinFlag = &cli.BoolFlag{
	Name:  "dns-pin",
	Value: false,
	Usage: "require the discovered key to be published in the _cryptalias TXT record",
}
var DNSServerFlag = &cli.StringFlag{
	Name:  "dns-server",
	Value: keypin.DefaultServer,
	Usage: "DNS server (host:port) used for key pin lookups",
}

var ConfigFlag = &cli.StringFlag{
	Name:  "config",
	Value: "config.yml",
	Usage: "path to the resolver YAML configuration",
}
var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var MasterKeyFlag = &cli.StringFlag{
	Name:  "master-key",
	Usage: "hex-encoded master key (at least 32 bytes) the domain signing keys are derived from",
}
var MasterKeyShareFlag = &cli.StringSliceFlag{
	Name:  "master-key-share",
	Usage: "hex-encoded Shamir share of the master key; repeat once per share",
}
var SharesFlag = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "number of master key shares to produce",
}
var ThresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "number of shares needed to reconstruct the master key",
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

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ResolveFlags = []cli.Flag{
	JSONOutputFlag,
	TimeoutFlag,
	DNSPinFlag,
	DNSServerFlag,
}

var ServeFlags = []cli.Flag{
	ConfigFlag,
	ListenAddrFlag,
	DNSServerFlag,
	MasterKeyFlag,
	MasterKeyShareFlag,
	PprofFlag,
	DrainSecondsFlag,
}
