package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/card-issuing-backend/common"
	"github.com/ruteri/card-issuing-backend/httpserver"
	"github.com/ruteri/card-issuing-backend/interfaces"
	"github.com/ruteri/card-issuing-backend/issuer"
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

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// NewIssuerClient builds the issuing-service client from the issuer flags.
func NewIssuerClient(cCtx *cli.Context, logger *slog.Logger) *issuer.Client {
	return issuer.NewClient(cCtx.String(IssuerBaseURLFlag.Name), cCtx.String(IssuerAPIKeyFlag.Name), logger)
}

// ChainID returns the configured deposit contract chain.
func ChainID(cCtx *cli.Context) interfaces.ChainID {
	return interfaces.ChainID(cCtx.Int64(ChainIDFlag.Name))
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
var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var IssuerAPIKeyFlag = &cli.StringFlag{
	Name:    "issuer-api-key",
	EnvVars: []string{"ISSUER_API_KEY"},
	Usage:   "API key for the card issuing service",
}
var IssuerBaseURLFlag = &cli.StringFlag{
	Name:  "issuer-base-url",
	Value: issuer.DefaultBaseURL,
	Usage: "base URL of the card issuing service API",
}
var ChainIDFlag = &cli.Int64Flag{
	Name:  "chain-id",
	Value: int64(issuer.BaseSepoliaChainID),
	Usage: "chain id for deposit contract provisioning",
}
var CardStoreFlag = &cli.StringSliceFlag{
	Name:  "card-store",
	Value: cli.NewStringSlice("mem://"),
	Usage: "card store URIs (mem://, file://, s3://, vault://), first hit wins on reads, all are written",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var IssuerFlags = []cli.Flag{
	IssuerAPIKeyFlag,
	IssuerBaseURLFlag,
	ChainIDFlag,
	CardStoreFlag,
}
