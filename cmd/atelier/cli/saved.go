package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/policy"
	"github.com/felixgeelhaar/atelier/internal/saved"
)

var expiringDays int

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved images",
}

func getCache(obs *observe.Observer) (*saved.Cache, func()) {
	s := getStore()

	var remote saved.Remote
	if baseURL, _ := s.Value("saved.base_url"); baseURL != "" {
		if svc, err := saved.NewService(secretValue(s, "saved.api_key"), baseURL); err == nil {
			remote = svc
		}
	}
	return saved.NewCache(s, obs, remote, policy.Default.SavedTTL), func() { s.Close() }
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved images",
	Run: func(cmd *cobra.Command, args []string) {
		obs := observe.New(os.Stdout, verbose)
		cache, closeStore := getCache(obs)
		defer closeStore()

		records, err := cache.List()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("(no saved images)")
			return
		}
		for _, r := range records {
			fmt.Println(formatRecord(r))
		}
	},
}

var savedPromoteCmd = &cobra.Command{
	Use:   "promote [record-id]",
	Short: "Make a saved image permanent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := observe.New(os.Stdout, verbose)
		cache, closeStore := getCache(obs)
		defer closeStore()

		rec, err := cache.PromoteToPermanent(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Promoted: %s is now permanent\n", rec.RecordID)
	},
}

var savedSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evict expired saved images now",
	Run: func(cmd *cobra.Command, args []string) {
		obs := observe.New(os.Stdout, verbose)
		cache, closeStore := getCache(obs)
		defer closeStore()

		evicted, err := cache.SweepExpired()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Evicted %d expired image(s)\n", len(evicted))
	},
}

var savedExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List saved images close to expiry",
	Run: func(cmd *cobra.Command, args []string) {
		obs := observe.New(os.Stdout, verbose)
		cache, closeStore := getCache(obs)
		defer closeStore()

		records, err := cache.UpcomingExpirations(expiringDays)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Printf("Nothing expires within %d day(s)\n", expiringDays)
			return
		}
		for _, r := range records {
			fmt.Println(formatRecord(r))
		}
	},
}

func formatRecord(r saved.Record) string {
	expiry := "expires " + r.ExpiresAt.Format(time.DateOnly)
	if r.IsPermanent {
		expiry = "permanent"
	}
	return fmt.Sprintf("%s  %-12s  %s", r.RecordID, expiry, r.SourceURL)
}

func init() {
	RootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedPromoteCmd)
	savedCmd.AddCommand(savedSweepCmd)
	savedCmd.AddCommand(savedExpiringCmd)
	savedExpiringCmd.Flags().IntVar(&expiringDays, "days", policy.Default.ExpiryWarnDays, "Warning window in days")
	savedListCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
