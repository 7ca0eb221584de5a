package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/SatoshiReport/s3evacuate/internal/audit"
	"github.com/SatoshiReport/s3evacuate/internal/config"
	"github.com/SatoshiReport/s3evacuate/internal/download"
	"github.com/SatoshiReport/s3evacuate/internal/orchestrator"
	"github.com/SatoshiReport/s3evacuate/internal/policy"
	"github.com/SatoshiReport/s3evacuate/internal/preflight"
	"github.com/SatoshiReport/s3evacuate/internal/restore"
	"github.com/SatoshiReport/s3evacuate/internal/scanner"
	"github.com/SatoshiReport/s3evacuate/internal/store"
	"github.com/SatoshiReport/s3evacuate/internal/teardown"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
	"github.com/SatoshiReport/s3evacuate/internal/verify"
)

// app bundles every long-lived dependency a subcommand needs, built once
// from the resolved configuration.
type app struct {
	cfg      *config.Config
	store    *store.Store
	s3       *s3.Client
	awsCfg   aws.Config
	log      *telemetry.Logger
	metrics  *telemetry.Metrics
	otel     *telemetry.Providers
	stopHTTP func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	providers, err := telemetry.Init(telemetry.Config{ServiceName: "s3evacuate", ServiceVersion: version})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	metrics, err := telemetry.NewMetrics(telemetry.Meter("s3evacuate"))
	if err != nil {
		_ = st.Close()
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	var stopHTTP func(context.Context) error
	if cfg.Metrics.Enabled {
		stopHTTP = telemetry.StartMetricsServer(cfg.Metrics.Addr)
	}

	return &app{
		cfg:      cfg,
		store:    st,
		s3:       s3.NewFromConfig(awsCfg),
		awsCfg:   awsCfg,
		log:      telemetry.NewConsoleLogger("s3evacuate"),
		metrics:  metrics,
		otel:     providers,
		stopHTTP: stopHTTP,
	}, nil
}

func (a *app) Close() error {
	ctx := context.Background()
	if a.stopHTTP != nil {
		_ = a.stopHTTP(ctx)
	}
	_ = a.otel.Shutdown(ctx)
	return a.store.Close()
}

// buildOrchestrator wires every phase component around the app's store
// and S3 client, exactly as SPEC_FULL's component diagram describes.
func (a *app) buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	var gate *policy.Gate
	if len(a.cfg.Policy.ProtectedBucketPatterns) > 0 {
		g, err := policy.New(ctx, a.cfg.Policy.ProtectedBucketPatterns)
		if err != nil {
			return nil, fmt.Errorf("compile protected bucket policy: %w", err)
		}
		gate = g
	}

	restoreCfg := restore.Config{
		Days:         int32(a.cfg.Glacier.RestoreDays),
		Tier:         a.cfg.Glacier.RestoreTier,
		PollInterval: a.cfg.Glacier.PollInterval,
	}
	downloadCfg := download.Config{
		Workers:   a.cfg.Download.Workers,
		ChunkSize: a.cfg.Download.ChunkSize,
		BasePath:  a.cfg.BasePath,
	}

	var trail *audit.Trail
	if a.cfg.Audit.Enabled {
		trail = audit.New(cloudtrail.NewFromConfig(a.awsCfg), telemetry.NewConsoleLogger("audit"))
	}

	var checker *preflight.Checker
	if a.cfg.Preflight.Enabled && a.cfg.Preflight.PrincipalArn != "" {
		checker = preflight.New(iam.NewFromConfig(a.awsCfg), a.cfg.Preflight.PrincipalArn, telemetry.NewConsoleLogger("preflight"))
	}

	return &orchestrator.Orchestrator{
		Store:     a.store,
		Scanner:   scanner.New(a.s3, a.store, telemetry.NewConsoleLogger("scanner"), a.cfg.ExcludedBuckets),
		Restore:   restore.New(a.s3, a.store, telemetry.NewConsoleLogger("restore"), restoreCfg),
		Download:  download.New(a.s3, a.store, telemetry.NewConsoleLogger("download"), downloadCfg),
		Verify:    verify.New(a.store, telemetry.NewConsoleLogger("verify"), a.cfg.BasePath),
		Teardown:  teardown.New(a.s3, a.store, telemetry.NewConsoleLogger("teardown")),
		Policy:    gate,
		Audit:     trail,
		Preflight: checker,
		Logger:    a.log,
		Drive:     orchestrator.DriveChecker{BasePath: a.cfg.BasePath},
		Confirm:   orchestrator.Confirmer{In: stdinReader(), Out: stdoutWriter()},
		Out:       stdoutWriter(),
	}, nil
}
