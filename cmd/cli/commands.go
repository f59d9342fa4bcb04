package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	apiv1 "github.com/and161185/seedvault/api/seedvault/v1"
)

// ------- parsers -------

// splitPaths parses a comma separated list of derivation path URIs.
func splitPaths(s string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("need at least one derivation path")
	}
	return out, nil
}

// readPayload takes exactly one of a literal string, hex bytes or a file.
func readPayload(data, hexStr, file string) ([]byte, error) {
	set := 0
	for _, v := range []string{data, hexStr, file} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("need exactly one of -data, -hex, -file")
	}
	switch {
	case data != "":
		return []byte(data), nil
	case hexStr != "":
		b, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
		if err != nil {
			return nil, fmt.Errorf("bad -hex: %w", err)
		}
		return b, nil
	default:
		return readAll(file)
	}
}

// optBool parses "true"/"false"; "" means unset.
func optBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("bad bool %q", s)
	}
	return &v, nil
}

// optString returns nil when the flag was not given.
func optString(fs *flag.FlagSet, name, v string) *string {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			given = true
		}
	})
	if !given {
		return nil
	}
	return &v
}

// optInt64 returns nil for negative values, which mark an unset id.
func optInt64(v int64) *int64 {
	if v < 0 {
		return nil
	}
	return &v
}

func need(ok bool, msg string) {
	if !ok {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

// ------- admin -------

func cmdAdmin(ctx context.Context, dc dialConfig, cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	uid := fs.Int("uid", -1, "caller uid")
	admin := fs.Bool("admin", false, "grant the admin role")
	words := fs.Int("words", 24, "phrase length (12 or 24)")
	name := fs.String("name", "", "seed name")
	pin := fs.String("pin", "", "seed PIN")
	bio := fs.Bool("bio", false, "unlock with biometrics")
	phraseFile := fs.String("phrase-file", "", "file holding the phrase ('-'=stdin)")
	passphrase := fs.String("passphrase", "", "BIP39 passphrase")
	id := fs.Int64("id", -1, "seed id")
	all := fs.Bool("all", false, "all seeds")
	backedUp := fs.String("backed-up", "", "true|false")
	_ = fs.Parse(args)

	cc, cli := connect(ctx, dc)
	defer cc.Close()

	switch cmd {
	case "token":
		need(*uid >= 0, "need -uid")
		out, err := cli.IssueToken(ctx, &apiv1.IssueTokenRequest{UID: *uid, Admin: *admin})
		if err != nil {
			fail(err)
		}
		fmt.Println(out.Token)
		fmt.Fprintf(os.Stderr, "expires %s\n", time.Unix(out.ExpiresAt, 0).UTC().Format(time.RFC3339))

	case "seeds":
		out, err := cli.ListSeeds(ctx, &apiv1.Empty{})
		if err != nil {
			fail(err)
		}
		printJSON(out.Seeds)

	case "create-seed":
		need(*pin != "", "need -pin")
		out, err := cli.CreateSeed(ctx, &apiv1.CreateSeedRequest{Words: *words, Name: *name, PIN: *pin, UnlockWithBiometrics: *bio})
		if err != nil {
			fail(err)
		}
		fmt.Printf("seed %d\nwrite down this phrase, it is not shown again:\n%s\n", out.SeedID, out.Mnemonic)

	case "import-seed":
		need(*pin != "" && *phraseFile != "", "need -pin and -phrase-file")
		b, err := readAll(*phraseFile)
		if err != nil {
			fail(err)
		}
		out, err := cli.ImportSeed(ctx, &apiv1.ImportSeedRequest{
			Mnemonic:             strings.Join(strings.Fields(string(b)), " "),
			Passphrase:           *passphrase,
			Name:                 *name,
			PIN:                  *pin,
			UnlockWithBiometrics: *bio,
		})
		if err != nil {
			fail(err)
		}
		fmt.Printf("seed %d\n", out.SeedID)

	case "update-seed":
		need(*id >= 0, "need -id")
		bu, err := optBool(*backedUp)
		if err != nil {
			fail(err)
		}
		req := &apiv1.UpdateSeedRequest{
			SeedID:     *id,
			Name:       optString(fs, "name", *name),
			PIN:        optString(fs, "pin", *pin),
			IsBackedUp: bu,
		}
		if _, err := cli.UpdateSeed(ctx, req); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "rm-seed":
		need(*all || *id >= 0, "need -id or -all")
		var err error
		if *all {
			_, err = cli.DeleteAllSeeds(ctx, &apiv1.Empty{})
		} else {
			_, err = cli.DeleteSeed(ctx, &apiv1.DeleteSeedRequest{SeedID: *id})
		}
		if err != nil {
			fail(err)
		}
		fmt.Println("ok")
	}
}

func cmdWatch(dc dialConfig) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cc, cli := connect(ctx, dc)
	defer cc.Close()

	stream, err := cli.WatchChanges(ctx, &apiv1.Empty{})
	if err != nil {
		fail(err)
	}
	for {
		c, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fail(err)
		}
		fmt.Println(formatChange(c))
	}
}

func formatChange(c *apiv1.ChangeNotification) string {
	if c.ID == nil {
		return c.Category + "/" + c.Type
	}
	return fmt.Sprintf("%s/%s/%d", c.Category, c.Type, *c.ID)
}

// ------- caller -------

func cmdCaller(ctx context.Context, dc dialConfig, cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	pin := fs.String("pin", "", "seed PIN")
	seed := fs.Int64("seed", -1, "seed id (default: first unauthorized)")
	purpose := fs.Int("purpose", 0, "purpose (0 = Solana)")
	token := fs.Int64("token-id", -1, "auth token")
	paths := fs.String("paths", "", "comma separated derivation paths")
	path := fs.String("path", "", "derivation path")
	data := fs.String("data", "", "payload as a string")
	hexStr := fs.String("hex", "", "payload as hex")
	file := fs.String("file", "", "payload file ('-'=stdin)")
	account := fs.Int64("account", -1, "account id")
	name := fs.String("name", "", "account name")
	wallet := fs.String("wallet", "", "true|false")
	valid := fs.String("valid", "", "true|false")
	_ = fs.Parse(args)

	cc, cli := connect(ctx, dc)
	defer cc.Close()

	switch cmd {
	case "authorize":
		need(*pin != "", "need -pin")
		out, err := cli.AuthorizeSeed(ctx, &apiv1.AuthorizeSeedRequest{SeedID: optInt64(*seed), Purpose: *purpose, PIN: *pin})
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "deauthorize":
		need(*token >= 0, "need -token-id")
		if _, err := cli.Deauthorize(ctx, &apiv1.DeauthorizeRequest{AuthToken: *token}); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "authorized":
		out, err := cli.AuthorizedSeeds(ctx, &apiv1.AuthorizedSeedsRequest{AuthToken: optInt64(*token)})
		if err != nil {
			fail(err)
		}
		printJSON(out.Seeds)

	case "unauthorized":
		req := &apiv1.UnauthorizedSeedsRequest{}
		if optString(fs, "purpose", "") != nil {
			req.Purpose = purpose
		}
		out, err := cli.UnauthorizedSeeds(ctx, req)
		if err != nil {
			fail(err)
		}
		printJSON(out.Purposes)

	case "pubkeys":
		need(*token >= 0, "need -token-id")
		ps, err := splitPaths(*paths)
		if err != nil {
			fail(err)
		}
		out, err := cli.GetPublicKeys(ctx, &apiv1.PublicKeysRequest{AuthToken: *token, PIN: *pin, DerivationPaths: ps})
		if err != nil {
			fail(err)
		}
		printJSON(out.PublicKeys)

	case "sign-tx", "sign-msg":
		need(*token >= 0 && *pin != "", "need -token-id and -pin")
		ps, err := splitPaths(*paths)
		if err != nil {
			fail(err)
		}
		payload, err := readPayload(*data, *hexStr, *file)
		if err != nil {
			fail(err)
		}
		req := &apiv1.SignRequest{
			AuthToken: *token,
			PIN:       *pin,
			Requests:  []apiv1.SigningRequest{{Payload: payload, DerivationPaths: ps}},
		}
		var out *apiv1.SignResponse
		if cmd == "sign-tx" {
			out, err = cli.SignTransactions(ctx, req)
		} else {
			out, err = cli.SignMessages(ctx, req)
		}
		if err != nil {
			fail(err)
		}
		for _, r := range out.Responses {
			for i, sig := range r.Signatures {
				fmt.Printf("%s %s\n", r.ResolvedDerivationPaths[i], hex.EncodeToString(sig))
			}
		}

	case "accounts":
		need(*token >= 0, "need -token-id")
		out, err := cli.Accounts(ctx, &apiv1.AccountsRequest{AuthToken: *token, AccountID: optInt64(*account)})
		if err != nil {
			fail(err)
		}
		printJSON(out.Accounts)

	case "edit-account":
		need(*token >= 0 && *account >= 0, "need -token-id and -account")
		w, err := optBool(*wallet)
		if err != nil {
			fail(err)
		}
		v, err := optBool(*valid)
		if err != nil {
			fail(err)
		}
		req := &apiv1.UpdateAccountRequest{
			AuthToken:    *token,
			AccountID:    *account,
			Name:         optString(fs, "name", *name),
			IsUserWallet: w,
			IsValid:      v,
		}
		if _, err := cli.UpdateAccount(ctx, req); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "limits":
		out, err := cli.ImplementationLimits(ctx, &apiv1.ImplementationLimitsRequest{Purpose: *purpose})
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "resolve":
		need(*path != "", "need -path")
		out, err := cli.ResolveDerivationPath(ctx, &apiv1.ResolveDerivationPathRequest{Purpose: *purpose, DerivationPath: *path})
		if err != nil {
			fail(err)
		}
		fmt.Println(out.ResolvedDerivationPath)
	}
}
