// Command sv is a CLI client for the seed vault service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	insecurecreds "google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	apiv1 "github.com/and161185/seedvault/api/seedvault/v1"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "seedvault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "seedvault")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// tokenExpiry reads exp without verifying the signature; the server does that.
func tokenExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

type dialConfig struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
}

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(ctx context.Context, dc dialConfig, bearer string) (*grpc.ClientConn, apiv1.SeedVaultClient, error) {
	creds := insecurecreds.NewCredentials()
	if !dc.plaintext {
		var err error
		if creds, err = loadTLS(dc.caPath, dc.insecure); err != nil {
			return nil, nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !dc.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(ctx, dc.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, apiv1.NewSeedVaultClient(cc), nil
}

// connect dials with the saved token and exits on failure.
func connect(ctx context.Context, dc dialConfig) (*grpc.ClientConn, apiv1.SeedVaultClient) {
	token, err := loadToken()
	if err != nil {
		fail(err)
	}
	cc, cli, err := dial(ctx, dc, token)
	if err != nil {
		fail(err)
	}
	return cc, cli
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `sv CLI
Usage:
  sv -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Session:
  version
  login        -token <jwt>                              (saves token)

Admin:
  token        -uid <uid> [-admin]                       (issue a caller token)
  seeds                                                  (list seeds)
  create-seed  -words 12|24 -pin <pin> [-name n] [-bio]  (prints the phrase once)
  import-seed  -phrase-file <file|-> -pin <pin> [-name n] [-passphrase p] [-bio]
  update-seed  -id <seed> [-name n] [-pin p] [-backed-up true|false]
  rm-seed      -id <seed> | -all
  watch                                                  (stream change notifications)

Caller:
  authorize    -pin <pin> [-seed <id>] [-purpose 0]
  deauthorize  -token-id <auth token>
  authorized   [-token-id <auth token>]
  unauthorized [-purpose 0]
  pubkeys      -token-id <auth token> -paths p1,p2 [-pin <pin>]
  sign-tx      -token-id <auth token> -pin <pin> -paths p1,p2 (-data s | -hex h | -file f)
  sign-msg     -token-id <auth token> -pin <pin> -paths p1,p2 (-data s | -hex h | -file f)
  accounts     -token-id <auth token> [-account <id>]
  edit-account -token-id <auth token> -account <id> [-name n] [-wallet true|false] [-valid true|false]
  limits       [-purpose 0]
  resolve      -path <uri> [-purpose 0]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	var dc dialConfig
	flag.StringVar(&dc.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&dc.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&dc.insecure, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&dc.plaintext, "plaintext", false, "no TLS (server started with -dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "version":
		fmt.Printf("sv %s (%s)\n", version, buildDate)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		tok := fs.String("token", "", "caller token")
		_ = fs.Parse(args)
		if *tok == "" {
			fmt.Fprintln(os.Stderr, "need -token")
			os.Exit(1)
		}
		exp, err := tokenExpiry(*tok)
		if err != nil {
			fail(err)
		}
		if err := saveToken(*tok, exp); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "token", "seeds", "create-seed", "import-seed", "update-seed", "rm-seed":
		cmdAdmin(ctx, dc, cmd, args)

	case "watch":
		cmdWatch(dc)

	case "authorize", "deauthorize", "authorized", "unauthorized", "pubkeys",
		"sign-tx", "sign-msg", "accounts", "edit-account", "limits", "resolve":
		cmdCaller(ctx, dc, cmd, args)

	default:
		usage()
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
