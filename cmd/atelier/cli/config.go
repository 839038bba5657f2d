package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/atelier/internal/credential"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Keys ending in .api_key or .token are
encrypted at rest with a machine-derived key.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		s := getStore()
		defer s.Close()

		if credential.IsSecretKey(key) {
			mgr, err := credential.NewManager()
			if err != nil {
				fmt.Printf("Failed to init credential manager: %v\n", err)
				os.Exit(1)
			}
			value, err = mgr.Encrypt(value)
			if err != nil {
				fmt.Printf("Failed to encrypt value: %v\n", err)
				os.Exit(1)
			}
		}

		if err := s.SetValue(key, value); err != nil {
			fmt.Printf("Failed to set config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration saved: %s\n", key)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		s := getStore()
		defer s.Close()

		val, err := s.Value(key)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if val == "" {
			fmt.Println("(not set)")
			return
		}

		// Secrets are shown masked, never in the clear.
		if credential.IsSecretKey(key) {
			plain := secretValue(s, key)
			fmt.Println(credential.MaskSecret(plain))
			return
		}
		fmt.Println(val)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}
