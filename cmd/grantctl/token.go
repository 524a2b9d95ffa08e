package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/envelope"
	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/token"
)

// failedResult is returned by create and verify when the engine answered with a
// failed envelope. The reason code is already printed.
type failedResult struct {
	code token.Reason
}

func (f failedResult) Error() string { return "failed: " + string(f.code) }

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a token for one grant",
		Long: `Create a token granting --action on --target. With --secret or --secret-b64 the
token is signed with that secret and --alg; otherwise the keyring's newest key signs it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCreate(cmd.Context(), cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.String("alg", "HS256", "signing algorithm (HS256, HS384, HS512, EdDSA)")
	fs.String("secret", "", "signing secret")
	fs.String("secret-b64", "", "signing secret, standard base64")
	fs.Int64("lifetime", 3600, "lifetime in seconds")
	fs.String("target", "", "grant target")
	fs.String("action", "", "grant action")
	fs.Int("min-hmac-bytes", 32, "shortest accepted HMAC secret")
	fs.Duration("max-lifetime", 0, "longest lifetime accepted (0 = no cap)")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a token against a grant",
		Long: `Verify a token, read from the argument or stdin, against --target and --action.
With --candidate or --candidate-b64 those secrets are tried in order; otherwise the
keyring's active keys are. --algorithm binds every candidate to one algorithm, so a
token signed with any other algorithm is rejected; set it whenever the candidates
are Ed25519 public keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := tokenArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			// read directly: viper splits slice flags on commas
			raw, _ := cmd.Flags().GetStringArray("candidate")
			b64, _ := cmd.Flags().GetStringArray("candidate-b64")
			candidates, err := candidateFlags(raw, b64)
			if err != nil {
				return err
			}
			return a.runVerify(cmd.Context(), cmd.OutOrStdout(), tok, candidates)
		},
	}
	fs := cmd.Flags()
	fs.StringArray("candidate", nil, "candidate secret, repeatable, tried in order")
	fs.StringArray("candidate-b64", nil, "candidate secret in standard base64, repeatable, tried after --candidate")
	fs.String("algorithm", "", "algorithm every candidate belongs to (HS256, HS384, HS512, EdDSA); empty follows the token header")
	fs.String("target", "", "expected grant target")
	fs.String("action", "", "expected grant action")
	fs.Int("min-hmac-bytes", 32, "shortest accepted HMAC secret")
	return cmd
}

func tokenArg(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", errors.New("no token given")
	}
	return tok, nil
}

func secretFlag(raw, b64 string) ([]byte, error) {
	if raw != "" && b64 != "" {
		return nil, errors.New("use only one of --secret and --secret-b64")
	}
	if b64 != "" {
		secret, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode --secret-b64: %w", err)
		}
		return secret, nil
	}
	if raw != "" {
		return []byte(raw), nil
	}
	return nil, nil
}

func (a *app) runCreate(ctx context.Context, out io.Writer) error {
	secret, err := secretFlag(a.v.GetString("secret"), a.v.GetString("secret-b64"))
	if err != nil {
		return err
	}
	g := grant.New(a.v.GetString("target"), a.v.GetString("action"))
	lifetime := a.v.GetInt64("lifetime")

	cfg := goGrant.DefaultConfig()
	cfg.Token.MinHMACKeyBytes = a.v.GetInt("min-hmac-bytes")
	cfg.Token.MaxLifetime = a.v.GetDuration("max-lifetime")

	var env *envelope.Envelope
	if secret != nil {
		engine, err := goGrant.New().WithConfig(cfg).Build()
		if err != nil {
			return err
		}
		defer engine.Close()
		env = engine.CreateToken(ctx, a.v.GetString("alg"), secret, lifetime, g)
	} else {
		b, err := a.openKeyring(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		engine, err := goGrant.New().WithConfig(cfg).WithKeyring(b.store).Build()
		if err != nil {
			return err
		}
		defer engine.Close()
		env = engine.IssueEnvelope(ctx, lifetime, g)
	}
	defer func() { _ = env.Release() }()

	if !env.OK() {
		fmt.Fprintf(out, "%s: %v\n", env.Code(), env.Err())
		return failedResult{code: env.Code()}
	}
	tok, err := env.Payload()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(tok))
	return nil
}

func candidateFlags(raw, b64 []string) ([][]byte, error) {
	candidates := make([][]byte, 0, len(raw)+len(b64))
	for _, c := range raw {
		candidates = append(candidates, []byte(c))
	}
	for _, c := range b64 {
		secret, err := base64.StdEncoding.DecodeString(c)
		if err != nil {
			return nil, fmt.Errorf("decode --candidate-b64: %w", err)
		}
		candidates = append(candidates, secret)
	}
	return candidates, nil
}

func (a *app) runVerify(ctx context.Context, out io.Writer, tok string, candidates [][]byte) error {
	g := grant.New(a.v.GetString("target"), a.v.GetString("action"))

	cfg := goGrant.DefaultConfig()
	cfg.Token.MinHMACKeyBytes = a.v.GetInt("min-hmac-bytes")

	var env *envelope.Envelope
	if len(candidates) > 0 {
		engine, err := goGrant.New().WithConfig(cfg).Build()
		if err != nil {
			return err
		}
		defer engine.Close()
		if alg := a.v.GetString("algorithm"); alg != "" {
			env = engine.VerifyTokenAs(ctx, tok, alg, candidates, g)
		} else {
			env = engine.VerifyToken(ctx, tok, candidates, g)
		}
	} else {
		b, err := a.openKeyring(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		engine, err := goGrant.New().WithConfig(cfg).WithKeyring(b.store).Build()
		if err != nil {
			return err
		}
		defer engine.Close()
		env = engine.VerifyEnvelope(ctx, tok, g)
	}
	defer func() { _ = env.Release() }()

	if !env.OK() {
		fmt.Fprintf(out, "%s: %v\n", env.Code(), env.Err())
		return failedResult{code: env.Code()}
	}
	payload, err := env.Payload()
	if err != nil {
		return err
	}
	claims, err := envelope.DecodeClaims(payload)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(claims)
}
