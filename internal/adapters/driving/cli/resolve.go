package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

var (
	resolveLanguages []string
	resolveSource    string
	resolveJSON      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [merchant name]",
	Short: "Resolve an observed merchant name against the registry",
	Long: `Resolves a raw merchant name to a canonical merchant, creating a new
registry entry or recording a synonym as the resolution policy decides.

The name is matched verbatim against known aliases first, then by
embedding similarity, and finally judged by the LLM classifier.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringSliceVarP(&resolveLanguages, "lang", "l", nil, "language hints, e.g. --lang en,ms,zh")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "provenance recorded on newly created merchants")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output the resolution as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := initResolverStack(ctx); err != nil {
		return err
	}
	if resolverService == nil {
		return fmt.Errorf("resolver %w", errNotConfigured)
	}

	resolution, err := resolverService.ClassifyMerchant(ctx, domain.ResolveRequest{
		Name:          args[0],
		LanguageHints: resolveLanguages,
		Source:        resolveSource,
	})
	if err != nil {
		return fmt.Errorf("resolve %q: %w", args[0], err)
	}

	if resolveJSON {
		data, err := json.MarshalIndent(resolution, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resolution: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if resolution.IsNewMerchant {
		cmd.Printf("New merchant: %s\n", resolution.CanonicalName)
	} else {
		cmd.Printf("Matched merchant: %s\n", resolution.CanonicalName)
	}
	cmd.Printf("  ID: %s\n", resolution.MerchantID)
	cmd.Printf("  Confidence: %.2f\n", resolution.Confidence)
	return nil
}
