// Package cli implements the command-line interface. It is the only
// driving adapter: it wires the driven adapters into the core services
// and exposes them as cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/merchant-resolver/internal/adapters/driven/ai"
	classifierllm "github.com/custodia-labs/merchant-resolver/internal/adapters/driven/classifier/llm"
	configfile "github.com/custodia-labs/merchant-resolver/internal/adapters/driven/config/file"
	"github.com/custodia-labs/merchant-resolver/internal/adapters/driven/storage/sqlite"
	vecgoindex "github.com/custodia-labs/merchant-resolver/internal/adapters/driven/vector/vecgo"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driving"
	"github.com/custodia-labs/merchant-resolver/internal/core/services"
	"github.com/custodia-labs/merchant-resolver/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flags.
var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
)

// Services shared by the commands. settingsService is wired for every
// command; the resolver stack only on demand, because it pings live
// providers and commands like 'settings' and 'version' must work
// without them.
var (
	settingsService driving.SettingsService
	resolverService driving.ResolverService
	registryService driving.RegistryService

	merchantStore driven.MerchantStore
	vectorIndex   driven.VectorIndex
	embeddingSvc  driven.EmbeddingService
	llmSvc        driven.LLMService
)

var rootCmd = &cobra.Command{
	Use:   "merchant-resolver",
	Short: "Resolve observed merchant names to canonical merchants",
	Long: `merchant-resolver maintains a registry of canonical merchants and
resolves raw merchant names extracted from invoices against it.

Resolution tries an exact alias lookup first, then vector similarity
over merchant-name embeddings, and finally asks an LLM classifier
whether an ambiguous name is a variation of its closest match.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		return initSettingsService()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.merchant-resolver)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.merchant-resolver/data)")
}

// Execute runs the CLI.
func Execute() {
	defer closeServices()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeServices()
		os.Exit(1)
	}
}

// initSettingsService wires the config-backed settings service. Cheap
// and offline, so it runs for every command.
func initSettingsService() error {
	if settingsService != nil {
		return nil
	}

	configStore, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	return nil
}

// initResolverStack wires the full resolution pipeline: embedding
// provider, registry store, vector index, classifier. Provider pings
// run here, so only commands that resolve or read the registry pay for
// them.
func initResolverStack(ctx context.Context) error {
	if resolverService != nil {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	embeddingSvc, err = ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return err
	}
	logger.Debug("Embedding provider ready: %s (%d dimensions)",
		embeddingSvc.ModelName(), embeddingSvc.Dimensions())

	// The store is bound to the embedding dimensionality; opening it
	// fails fast if the registry was built with a different model.
	store, err := sqlite.NewStore(flagDataDir, embeddingSvc.Dimensions())
	if err != nil {
		return fmt.Errorf("opening merchant registry: %w", err)
	}
	merchantStore = store

	vectorIndex, err = buildVectorIndex(ctx, merchantStore, embeddingSvc.Dimensions())
	if err != nil {
		return err
	}

	llmSvc, err = ai.CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		return err
	}
	logger.Debug("Classifier LLM ready: %s", llmSvc.ModelName())

	classifier := classifierllm.NewClassifier(llmSvc, classifierllm.Config{})

	resolverService = services.NewResolverService(
		merchantStore, vectorIndex, embeddingSvc, classifier, settings.Resolver)
	registryService = services.NewRegistryService(merchantStore)
	return nil
}

// initRegistryRead wires only what read commands need: the store, no
// providers.
func initRegistryRead() error {
	if registryService != nil {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(flagDataDir, settings.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("opening merchant registry: %w", err)
	}
	merchantStore = store
	registryService = services.NewRegistryService(merchantStore)
	return nil
}

// buildVectorIndex rebuilds the in-memory index from the durable store.
// Merchants without an embedding are skipped; they become searchable
// again after their next embedding refresh.
func buildVectorIndex(ctx context.Context, store driven.MerchantStore, dimensions int) (driven.VectorIndex, error) {
	index, err := vecgoindex.NewIndex(dimensions)
	if err != nil {
		return nil, err
	}

	merchants, err := store.List(ctx)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("listing merchants for index rebuild: %w", err)
	}

	for i := range merchants {
		if len(merchants[i].Embedding) == 0 {
			logger.Warn("Merchant %q has no embedding, skipping index", merchants[i].CanonicalName)
			continue
		}
		if err := index.Upsert(ctx, merchants[i].ID, merchants[i].Embedding); err != nil {
			index.Close()
			return nil, fmt.Errorf("indexing merchant %q: %w", merchants[i].CanonicalName, err)
		}
	}

	logger.Debug("Vector index rebuilt with %d merchants", index.Count())
	return index, nil
}

// closeServices releases everything initResolverStack opened.
func closeServices() {
	if vectorIndex != nil {
		vectorIndex.Close()
		vectorIndex = nil
	}
	if merchantStore != nil {
		merchantStore.Close()
		merchantStore = nil
	}
	if embeddingSvc != nil {
		embeddingSvc.Close()
		embeddingSvc = nil
	}
	if llmSvc != nil {
		llmSvc.Close()
		llmSvc = nil
	}
}

// errNotConfigured standardizes the message for commands invoked before
// their services are wired (only possible in tests).
var errNotConfigured = errors.New("service not configured")
