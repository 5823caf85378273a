package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/spf13/cobra"
)

// hashPasswordCmd prints an argon2id hash for seeding accounts by hand. The
// password is read from stdin so it never lands in shell history.
func hashPasswordCmd() *cobra.Command {
	var skipPolicy bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			plain := strings.TrimRight(line, "\r\n")

			hasher, err := newHasher(goSession.DefaultConfig().Password, skipPolicy)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicy, "skip-policy", false, "hash without enforcing the complexity policy")
	return cmd
}

func newHasher(cfg goSession.PasswordConfig, skipPolicy bool) (*password.Argon2, error) {
	policy := password.Policy{
		MinLength:          cfg.MinLength,
		RequireUpper:       cfg.RequireUpper,
		RequireLower:       cfg.RequireLower,
		RequireDigit:       cfg.RequireDigit,
		RequirePunctuation: cfg.RequirePunctuation,
	}
	if skipPolicy {
		policy = password.Policy{MinLength: 1}
	}
	return password.NewArgon2(password.Config{
		Memory:           cfg.Memory,
		Time:             cfg.Time,
		Parallelism:      cfg.Parallelism,
		SaltLength:       cfg.SaltLength,
		KeyLength:        cfg.KeyLength,
		Policy:           policy,
		MaxPasswordBytes: cfg.MaxPasswordBytes,
	})
}
