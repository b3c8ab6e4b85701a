// Command gentoken creates development credentials for the command API:
// HMAC secrets, HS256 bearer tokens signed with them, and API key hashes.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/harrylevesque/commandapi/internal/auth"
)

var rootCmd = &cobra.Command{
	Use:          "gentoken",
	Short:        "Generate credentials for local command API servers",
	SilenceUsage: true,
}

var secretOut string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Print a random 32-byte hex secret for auth.hmac_secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		hexKey := hex.EncodeToString(key)
		if secretOut == "" {
			fmt.Println(hexKey)
			return nil
		}
		if _, err := os.Stat(secretOut); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", secretOut)
		}
		if err := os.WriteFile(secretOut, []byte(hexKey+"\n"), 0o600); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "secret written to %s\n", secretOut)
		return nil
	},
}

var tokenOpts struct {
	secret   string
	audience string
	issuer   string
	subject  string
	scopes   []string
	ttl      time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an HS256 bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenOpts.secret == "" {
			return errors.New("--secret or COMMANDAPI_AUTH_HMAC_SECRET is required")
		}
		raw, err := mintToken(time.Now())
		if err != nil {
			return err
		}
		fmt.Println(raw)
		return nil
	},
}

func mintToken(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": tokenOpts.subject,
		"aud": tokenOpts.audience,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(tokenOpts.ttl).Unix(),
	}
	if tokenOpts.issuer != "" {
		claims["iss"] = tokenOpts.issuer
	}
	if len(tokenOpts.scopes) > 0 {
		claims["scope"] = strings.Join(tokenOpts.scopes, " ")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tokenOpts.secret))
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key KEY",
	Short: "Print the bcrypt hash to add to auth.api_key_hashes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	secretCmd.Flags().StringVarP(&secretOut, "out", "o", "", "write the secret to this file instead of stdout")

	f := tokenCmd.Flags()
	f.StringVar(&tokenOpts.secret, "secret", os.Getenv("COMMANDAPI_AUTH_HMAC_SECRET"), "hmac secret")
	f.StringVar(&tokenOpts.audience, "audience", os.Getenv("COMMANDAPI_AUTH_RESOURCE_ID"), "aud claim, the server's auth.resource_id")
	f.StringVar(&tokenOpts.issuer, "issuer", "", "iss claim, the server's auth.instance + auth.tenant_id")
	f.StringVar(&tokenOpts.subject, "subject", "dev", "sub claim")
	f.StringSliceVar(&tokenOpts.scopes, "scope", nil, "scopes to grant")
	f.DurationVar(&tokenOpts.ttl, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(secretCmd, tokenCmd, hashKeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
