package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ruteri/cryptalias/cmd/flags"
	"github.com/ruteri/cryptalias/common"
	"github.com/ruteri/cryptalias/httpserver"
	"github.com/ruteri/cryptalias/keypin"
	"github.com/ruteri/cryptalias/kms"
	"github.com/ruteri/cryptalias/resolver"
	"github.com/urfave/cli/v2"
)

var errUsage = errors.New("wrong number of arguments")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    common.PackageName,
		Usage:   "Resolve and serve cryptalias wallet aliases",
		Version: common.Version,
		Flags:   flags.CommonFlags,
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "Resolve an alias to a verified wallet address",
				ArgsUsage: "<alias> <ticker>",
				Flags:     flags.ResolveFlags,
				Action:    runResolve,
			},
			{
				Name:   "serve",
				Usage:  "Run the reference resolver",
				Flags:  flags.ServeFlags,
				Action: runServe,
			},
			{
				Name:   "split-key",
				Usage:  "Split a master key into Shamir shares",
				Flags:  []cli.Flag{flags.MasterKeyFlag, flags.SharesFlag, flags.ThresholdFlag},
				Action: runSplitKey,
			},
			{
				Name:      "keys",
				Usage:     "Print the public key and DNS TXT pin for a domain",
				ArgsUsage: "<domain>",
				Flags:     []cli.Flag{flags.MasterKeyFlag, flags.MasterKeyShareFlag},
				Action:    runKeys,
			},
		},
	}
}

type resolveOutput struct {
	Alias   string `json:"alias"`
	Ticker  string `json:"ticker"`
	Address string `json:"address"`
	Expires string `json:"expires"`
}

func runResolve(cCtx *cli.Context) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("%w: usage: %s resolve [--json] <alias> <ticker>", errUsage, cCtx.App.Name)
	}
	rawAlias, ticker := cCtx.Args().Get(0), cCtx.Args().Get(1)
	logger := flags.SetupLogger(cCtx)

	if !strings.Contains(rawAlias, "$") {
		fmt.Fprintf(cCtx.App.ErrWriter, "warning: alias %q has no '$'; single-quote it so the shell does not expand $domain\n", rawAlias)
	}

	r := resolver.NewDefaultResolver(logger, cCtx.Duration(flags.TimeoutFlag.Name))
	if cCtx.Bool(flags.DNSPinFlag.Name) {
		r = r.WithKeyPinner(keypin.NewTXTPinner(cCtx.String(flags.DNSServerFlag.Name), logger))
	}

	res, err := r.ResolveRecord(cCtx.Context, ticker, rawAlias)
	if err != nil {
		return err
	}

	if !cCtx.Bool(flags.JSONOutputFlag.Name) {
		fmt.Fprintf(cCtx.App.Writer, "%s %s\n", res.Ticker, res.Address)
		return nil
	}
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resolveOutput{
		Alias:   res.Alias,
		Ticker:  res.Ticker,
		Address: res.Address,
		Expires: res.Expires.UTC().Format(time.RFC3339),
	})
}

func runServe(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	configPath := cCtx.String(flags.ConfigFlag.Name)
	cfg, err := httpserver.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "path", configPath, "err", err)
		return err
	}

	keys, err := flags.KeyProvider(cCtx)
	if err != nil {
		logger.Error("Failed to initialize KMS", "err", err)
		return err
	}

	if err := logDomains(logger, cfg, keys); err != nil {
		logger.Error("Failed to derive domain keys", "err", err)
		return err
	}

	pinner := keypin.NewTXTPinner(cCtx.String(flags.DNSServerFlag.Name), logger)
	handler := httpserver.NewHandler(cfg, keys, logger).WithPinner(pinner)
	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

// logDomains prints the DNS pin every served domain has to publish.
func logDomains(logger *slog.Logger, cfg *httpserver.Config, keys httpserver.KeyProvider) error {
	for _, d := range cfg.Domains {
		txt, err := keys.DNSTXTValue(d.Domain)
		if err != nil {
			return err
		}
		logger.Info("Serving domain", "domain", d.Domain, "aliases", len(d.Aliases), "txtRecord", keypin.RecordName(d.Domain), "txtValue", txt)
	}
	return nil
}

func runKeys(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("%w: usage: %s keys [--master-key <hex> | --master-key-share <hex>...] <domain>", errUsage, cCtx.App.Name)
	}
	domain := cCtx.Args().First()

	keys, err := flags.KeyProvider(cCtx)
	if err != nil {
		return err
	}
	jwk, err := keys.PublicKeyMaterial(domain)
	if err != nil {
		return err
	}
	txt, err := keys.DNSTXTValue(domain)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jwk); err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "%s TXT %q\n", keypin.RecordName(domain), txt)
	return nil
}

func runSplitKey(cCtx *cli.Context) error {
	masterKey, err := flags.MasterKey(cCtx)
	if err != nil {
		return err
	}
	shares, err := kms.SplitMasterKey(masterKey, cCtx.Int(flags.SharesFlag.Name), cCtx.Int(flags.ThresholdFlag.Name))
	if err != nil {
		return err
	}
	for _, share := range shares {
		fmt.Fprintln(cCtx.App.Writer, hex.EncodeToString(share))
	}
	return nil
}
