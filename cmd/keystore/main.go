// Command keystore manages the custodial owner keys the gateway signs with.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/airship/params"
	"github.com/uhyunpark/airship/pkg/crypto"
	"github.com/uhyunpark/airship/pkg/keystore"
)

var (
	storePath string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:          "keystore",
	Short:        "manage owner signing keys",
	SilenceUsage: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "generate a new owner keypair and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *keystore.Store) error {
			kp, err := crypto.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := s.Put(kp); err != nil {
				return err
			}
			cmd.Println("owner:", kp.PublicKey())

			if show, _ := cmd.Flags().GetBool("show-secret"); show {
				cmd.Println("secret (KEEP SECRET!):", kp.SecretBase58())
			}
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "import a base58 secret key read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("no secret on stdin")
		}

		kp, err := crypto.KeypairFromSecretBase58(strings.TrimSpace(scanner.Text()))
		if err != nil {
			return err
		}
		return withStore(func(s *keystore.Store) error {
			if err := s.Put(kp); err != nil {
				return err
			}
			cmd.Println("imported owner:", kp.PublicKey())
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list stored owners",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *keystore.Store) error {
			owners, err := s.List()
			if err != nil {
				return err
			}
			for _, owner := range owners {
				cmd.Println(owner)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <owner>",
	Short: "remove an owner key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := crypto.ParsePublicKey(args[0])
		if err != nil {
			return err
		}
		return withStore(func(s *keystore.Store) error {
			if _, err := s.Signer(owner); err != nil {
				return err
			}
			if err := s.Delete(owner); err != nil {
				return err
			}
			cmd.Println("deleted owner:", owner)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "path", "", "keystore directory (default KEYSTORE_PATH)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file to read KEYSTORE_* from")

	generateCmd.Flags().Bool("show-secret", false, "print the secret key once")

	rootCmd.AddCommand(generateCmd, importCmd, listCmd, deleteCmd)
}

// withStore opens the keystore named by flags and config, runs fn, and closes it
func withStore(fn func(*keystore.Store) error) error {
	cfg, err := params.LoadFromEnv(envFile)
	if err != nil {
		return err
	}
	path := cfg.Keystore.Path
	if storePath != "" {
		path = storePath
	}

	s, err := keystore.Open(path, cfg.Keystore.Passphrase)
	if err != nil {
		return fmt.Errorf("open keystore %s: %w", path, err)
	}
	defer s.Close()
	return fn(s)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
