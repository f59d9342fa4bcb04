// Command seedvault-server starts the seed vault gRPC server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	apiv1 "github.com/and161185/seedvault/api/seedvault/v1"
	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/crypto/sealer"
	"github.com/and161185/seedvault/internal/derivation"
	"github.com/and161185/seedvault/internal/limiter"
	"github.com/and161185/seedvault/internal/migrate"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
	"github.com/and161185/seedvault/internal/repository/file"
	"github.com/and161185/seedvault/internal/repository/memory"
	"github.com/and161185/seedvault/internal/repository/objectstore"
	"github.com/and161185/seedvault/internal/repository/postgres"
	"github.com/and161185/seedvault/internal/repository/wire"
	"github.com/and161185/seedvault/internal/seeds"
	grpcserver "github.com/and161185/seedvault/internal/server/grpc"
	"github.com/and161185/seedvault/internal/service"
	"github.com/and161185/seedvault/internal/signing"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type config struct {
	addr           string
	store          string
	file           string
	filePassphrase string
	dsn            string
	s3             objectstore.ClientConfig
	s3Bucket       string
	s3Key          string
	jwtKey         string
	tokenTTL       time.Duration
	certFile       string
	keyFile        string
	propagation    time.Duration
	workers        int
	issueAdmin     int
	dev            bool
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.addr, "addr", ":8443", "listen address")
	flag.StringVar(&c.store, "store", "file", "durable store: memory|file|postgres|s3")
	flag.StringVar(&c.file, "file", "seedvault.db", "vault file (store=file)")
	flag.StringVar(&c.filePassphrase, "file-passphrase", "", "seal the vault document with this passphrase (store=file|s3)")
	flag.StringVar(&c.dsn, "dsn", os.Getenv("SEEDVAULT_DSN"), "PostgreSQL DSN (store=postgres)")
	flag.StringVar(&c.s3.Region, "s3-region", "us-east-1", "S3 region (store=s3)")
	flag.StringVar(&c.s3.Endpoint, "s3-endpoint", "", "S3-compatible endpoint, empty for AWS")
	flag.StringVar(&c.s3.AccessKey, "s3-access-key", "", "S3 access key, empty for the default credential chain")
	flag.StringVar(&c.s3.SecretKey, "s3-secret-key", "", "S3 secret key")
	flag.BoolVar(&c.s3.UsePathStyle, "s3-path-style", false, "use path-style S3 addressing")
	flag.StringVar(&c.s3Bucket, "s3-bucket", "", "S3 bucket (store=s3)")
	flag.StringVar(&c.s3Key, "s3-key", "seedvault/vault.bin", "S3 object key (store=s3)")
	flag.StringVar(&c.jwtKey, "jwt-key", os.Getenv("SEEDVAULT_JWT_KEY"), "HS256 signing key (required)")
	flag.DurationVar(&c.tokenTTL, "token-ttl", service.DefaultTokenTTL, "caller token TTL")
	flag.StringVar(&c.certFile, "tls-cert", "cert.pem", "TLS certificate (PEM)")
	flag.StringVar(&c.keyFile, "tls-key", "key.pem", "TLS private key (PEM)")
	flag.DurationVar(&c.propagation, "propagation-timeout", seeds.DefaultPropagationTimeout, "max wait for a committed write to become visible")
	flag.IntVar(&c.workers, "workers", 0, "derivation/signing workers (0 = GOMAXPROCS)")
	flag.IntVar(&c.issueAdmin, "issue-admin-token", model.InvalidUID, "print an admin token for this uid and exit")
	flag.BoolVar(&c.dev, "dev", false, "plaintext listener and server reflection (dev only)")
	flag.Parse()
	return c
}

// openStore builds the configured DurableStore and a cleanup func.
func openStore(ctx context.Context, c config, log *zap.Logger) (repository.DurableStore, limiter.Limiter, func(), error) {
	memLim := limiter.NewMemory(limiter.DefaultWindow, limiter.MaxPINAttempts, limiter.DefaultBlockFor)
	var codec *wire.Codec
	if c.filePassphrase != "" {
		codec = wire.NewCodec(sealer.New([]byte(c.filePassphrase)))
	} else {
		codec = wire.NewCodec(nil)
	}

	switch c.store {
	case "memory":
		log.Warn("memory store: seeds are lost on exit")
		return memory.New(), memLim, func() {}, nil
	case "file":
		return file.New(c.file, codec, log), memLim, func() {}, nil
	case "s3":
		if c.s3Bucket == "" {
			return nil, nil, nil, errors.New("missing -s3-bucket")
		}
		cl, err := objectstore.NewClient(ctx, c.s3)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("s3 client: %w", err)
		}
		return objectstore.New(cl, c.s3Bucket, c.s3Key, codec, log), memLim, func() {}, nil
	case "postgres":
		if c.dsn == "" {
			return nil, nil, nil, errors.New("missing -dsn")
		}
		if err := migrate.Up(ctx, c.dsn, log); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, c.dsn, 0)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		lim := limiter.NewPG(db.Pool, limiter.DefaultWindow, limiter.MaxPINAttempts, limiter.DefaultBlockFor)
		return postgres.NewDocumentStore(db, log), lim, db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q", c.store)
	}
}

// main parses configuration, opens the durable store and serves the vault over gRPC.
func main() {
	c := parseFlags()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if c.jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or SEEDVAULT_JWT_KEY)")
	}
	authSvc := service.NewAuthService([]byte(c.jwtKey), c.tokenTTL)

	if c.issueAdmin > model.InvalidUID {
		tok, exp, err := authSvc.IssueToken(c.issueAdmin, true)
		if err != nil {
			logger.Fatal("issue admin token", zap.Error(err))
		}
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
		return
	}

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", c.addr),
		zap.String("store", c.store),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, lim, closeStore, err := openStore(ctx, c, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	repo := seeds.New(store, logger, c.propagation)
	defer func() { _ = repo.Close() }()

	ed := crypto.NewEd25519()
	vaultSvc := service.NewVaultService(repo, derivation.NewEngine(ed), signing.NewService(ed), lim, logger, c.workers)
	adminSvc := service.NewAdminService(repo, logger)

	opts := grpcserver.ServerOptions(authSvc, logger)
	if !c.dev {
		creds, err := credentials.NewServerTLSFromFile(c.certFile, c.keyFile)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	apiv1.RegisterSeedVaultServer(s, grpcserver.New(vaultSvc, adminSvc, authSvc, logger))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if c.dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", c.addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", c.addr), zap.Bool("tls", !c.dev))
		errCh <- s.Serve(lis)
	}()

	go func() {
		if err := repo.DelayUntilDataValid(ctx); err != nil {
			logger.Error("vault not loaded", zap.Error(err))
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		logger.Info("vault loaded", zap.Int("seeds", len(repo.Snapshot().Seeds)))
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
