package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var merchantsJSON bool

var merchantsCmd = &cobra.Command{
	Use:   "merchants",
	Short: "Inspect the merchant registry",
	RunE:  runMerchantsList,
}

var merchantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all canonical merchants",
	RunE:  runMerchantsList,
}

var merchantsShowCmd = &cobra.Command{
	Use:   "show [merchant id]",
	Short: "Show full details for one merchant",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerchantsShow,
}

var merchantsSynonymsCmd = &cobra.Command{
	Use:   "synonyms [canonical name]",
	Short: "List recorded aliases for a canonical merchant name",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerchantsSynonyms,
}

func init() {
	merchantsCmd.PersistentFlags().BoolVar(&merchantsJSON, "json", false, "output as JSON")
	merchantsCmd.AddCommand(merchantsListCmd)
	merchantsCmd.AddCommand(merchantsShowCmd)
	merchantsCmd.AddCommand(merchantsSynonymsCmd)
	rootCmd.AddCommand(merchantsCmd)
}

func runMerchantsList(cmd *cobra.Command, _ []string) error {
	if err := initRegistryRead(); err != nil {
		return err
	}
	if registryService == nil {
		return fmt.Errorf("registry %w", errNotConfigured)
	}

	merchants, err := registryService.ListMerchants(context.Background())
	if err != nil {
		return fmt.Errorf("listing merchants: %w", err)
	}

	if merchantsJSON {
		data, err := json.MarshalIndent(merchants, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal merchants: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(merchants) == 0 {
		cmd.Println("Registry is empty.")
		return nil
	}

	cmd.Printf("Merchants (%d):\n\n", len(merchants))
	for i := range merchants {
		cmd.Printf("  %s\n", merchants[i].CanonicalName)
		cmd.Printf("      ID: %s\n", merchants[i].ID)
		if len(merchants[i].Synonyms) > 0 {
			cmd.Printf("      Synonyms: %s\n", strings.Join(merchants[i].Synonyms, ", "))
		}
	}
	return nil
}

func runMerchantsShow(cmd *cobra.Command, args []string) error {
	if err := initRegistryRead(); err != nil {
		return err
	}
	if registryService == nil {
		return fmt.Errorf("registry %w", errNotConfigured)
	}

	merchant, err := registryService.GetMerchant(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading merchant %s: %w", args[0], err)
	}

	if merchantsJSON {
		data, err := json.MarshalIndent(merchant, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal merchant: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%s\n", merchant.CanonicalName)
	cmd.Printf("  ID: %s\n", merchant.ID)
	if len(merchant.Synonyms) > 0 {
		cmd.Printf("  Synonyms: %s\n", strings.Join(merchant.Synonyms, ", "))
	}
	cmd.Printf("  First seen: %s\n", merchant.FirstSeen.Format("2006-01-02 15:04:05 MST"))
	cmd.Printf("  Last updated: %s\n", merchant.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	if merchant.Source != "" {
		cmd.Printf("  Source: %s\n", merchant.Source)
	}
	if len(merchant.LanguageHints) > 0 {
		cmd.Printf("  Languages: %s\n", strings.Join(merchant.LanguageHints, ", "))
	}
	cmd.Printf("  Embedding: %d dimensions\n", len(merchant.Embedding))
	return nil
}

func runMerchantsSynonyms(cmd *cobra.Command, args []string) error {
	if err := initRegistryRead(); err != nil {
		return err
	}
	if registryService == nil {
		return fmt.Errorf("registry %w", errNotConfigured)
	}

	synonyms, err := registryService.Synonyms(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading synonyms for %q: %w", args[0], err)
	}

	if merchantsJSON {
		data, err := json.MarshalIndent(synonyms, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal synonyms: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(synonyms) == 0 {
		cmd.Printf("No synonyms recorded for %q.\n", args[0])
		return nil
	}
	for _, s := range synonyms {
		cmd.Println(s)
	}
	return nil
}
