package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/generate"
	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/policy"
	"github.com/felixgeelhaar/atelier/internal/probe"
	"github.com/felixgeelhaar/atelier/internal/provider"
	"github.com/felixgeelhaar/atelier/internal/publish"
	"github.com/felixgeelhaar/atelier/internal/request"
	"github.com/felixgeelhaar/atelier/internal/saved"
	"github.com/felixgeelhaar/atelier/internal/session"
	"github.com/felixgeelhaar/atelier/internal/store"
	"github.com/felixgeelhaar/atelier/internal/ui"
	"github.com/felixgeelhaar/atelier/internal/ui/tui"
	"github.com/felixgeelhaar/atelier/internal/workspace"
)

var (
	verbose       bool
	ciMode        bool
	providerType  string
	modelName     string
	workspacePath string
	templateName  string
	aspectRatio   string
	assetPaths    []string
	assetURLs     []string
	confirmAssets bool
	pluginPath    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Creative generation studio",
	Long: `Atelier turns prompts and brand assets into ready-to-post social
creatives. It keeps a conversation per campaign, saves the results you
pick, and hands them to your connected accounts.`,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive generation session",
	Run: func(cmd *cobra.Command, args []string) {
		runChat()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate creatives for a single prompt",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runGenerate(strings.Join(args, " "))
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(chatCmd)
	RootCmd.AddCommand(generateCmd)

	for _, c := range []*cobra.Command{chatCmd, generateCmd} {
		c.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
		c.Flags().BoolVar(&ciMode, "ci", false, "CI mode: JSON output, non-interactive")
		c.Flags().StringVarP(&providerType, "provider", "p", "studio", "Generation backend (studio, openai, gemini, ollama, stub)")
		c.Flags().StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
		c.Flags().StringVarP(&workspacePath, "workspace", "w", "", "Workspace profile file (JSON or YAML)")
		c.Flags().StringVarP(&templateName, "template", "t", "post", "Creative template (post, carousel, story)")
		c.Flags().StringVar(&aspectRatio, "aspect", "1:1", "Aspect ratio (1:1, 9:16, 16:9)")
		c.Flags().StringArrayVar(&assetPaths, "asset", nil, "Attach a local image file (repeatable)")
		c.Flags().StringArrayVar(&assetURLs, "asset-url", nil, "Attach a remote image by URL (repeatable)")
		c.Flags().BoolVar(&confirmAssets, "confirm-assets", false, "Probe attached assets and drop dead ones before generating")
		c.Flags().StringVar(&pluginPath, "publisher-plugin", "", "Path to a publisher plugin binary")
	}
}

func newObserver() *observe.Observer {
	if ciMode {
		return observe.NewJSON(os.Stdout, verbose)
	}
	return observe.New(os.Stdout, verbose)
}

func buildProvider(obs *observe.Observer, s store.Storage) provider.Provider {
	var p provider.Provider
	var err error

	switch providerType {
	case "studio":
		apiKey := secretValue(s, "studio.api_key")
		baseURL, _ := s.Value("studio.base_url")
		p, err = provider.NewStudioProvider(apiKey, baseURL)
	case "openai":
		apiKey := secretValue(s, "openai.api_key")
		baseURL, _ := s.Value("openai.base_url")
		p, err = provider.NewOpenAIProvider(apiKey, baseURL, modelName)
	case "gemini":
		apiKey := secretValue(s, "gemini.api_key")
		p, err = provider.NewGeminiProvider(apiKey, modelName)
	case "ollama":
		p, err = provider.NewOllamaProvider(modelName)
	case "stub":
		p = provider.NewStubProvider()
	default:
		obs.Log().Fatal().Str("provider", providerType).Msg("Unknown provider")
	}

	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to initialize provider")
	}
	return p
}

func loadWorkspace(obs *observe.Observer) *workspace.Provider {
	if workspacePath == "" {
		return workspace.NewStaticProvider(workspace.Profile{})
	}

	wp, err := workspace.NewProvider(workspacePath)
	if err != nil {
		obs.Log().Fatal().Err(err).Str("path", workspacePath).Msg("Failed to load workspace profile")
	}

	result := workspace.Validate(wp.Current())
	for _, warning := range result.Warnings {
		obs.Log().Warn().Str("warning", warning).Msg("workspace profile")
	}
	if !result.Valid {
		obs.Log().Fatal().Str("errors", strings.Join(result.Errors, ", ")).Msg("Invalid workspace profile")
	}
	return wp
}

func buildRunner(obs *observe.Observer, s store.Storage, u ui.UI) (*Runner, func()) {
	pol := policy.Default
	guard := policy.New(pol)

	wp := loadWorkspace(obs)

	// Profile edits on disk take effect without a restart; the watcher
	// lives as long as the runner.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	if err := wp.Watch(watchCtx, func(err error) {
		if err != nil {
			obs.Log().Warn().Err(err).Msg("workspace profile reload failed")
			return
		}
		obs.Log().Info().Str("name", wp.Current().Name).Msg("workspace profile reloaded")
	}); err != nil {
		obs.Log().Warn().Err(err).Msg("workspace watcher not started")
	}

	var remote saved.Remote
	if baseURL, _ := s.Value("saved.base_url"); baseURL != "" {
		svc, err := saved.NewService(secretValue(s, "saved.api_key"), baseURL)
		if err == nil {
			remote = svc.WithIdentity(os.Getenv("USER"), wp.Current().WorkspaceID)
		}
	}
	cache := saved.NewCache(s, obs, remote, pol.SavedTTL)

	var publisher publish.Publisher
	var killPlugin func()
	if pluginPath != "" {
		var err error
		publisher, killPlugin, err = publish.LoadPlugin(pluginPath)
		if err != nil {
			obs.Log().Fatal().Err(err).Str("path", pluginPath).Msg("Failed to load publisher plugin")
		}
	}

	sessions := session.NewStore()
	registry := asset.NewRegistry(s, guard)
	registry.SetOnDetach(sessions.PruneAsset)

	orch := generate.New(generate.Options{
		Observer:  obs,
		Guard:     guard,
		Provider:  buildProvider(obs, s),
		Sessions:  sessions,
		Prober:    probe.New(pol.ProbeTimeout),
		Workspace: wp,
		UserID:    os.Getenv("USER"),
	})

	sweeper := saved.NewSweeper(cache, obs)
	if err := sweeper.Start(pol.SweepSchedule); err != nil {
		obs.Log().Warn().Err(err).Msg("sweeper not started")
	}

	runner := NewRunner(obs, orch, sessions, registry, publish.NewSaga(obs, cache, publisher), u)

	cleanup := func() {
		stopWatch()
		sweeper.Stop()
		registry.Clear()
		if killPlugin != nil {
			killPlugin()
		}
	}
	return runner, cleanup
}

func runGenerate(prompt string) {
	obs := newObserver()
	defer obs.Close()

	s := getStore()
	defer s.Close()

	runner, cleanup := buildRunner(obs, s, nil)
	defer cleanup()

	runner.AttachFlagsAssets(assetPaths, assetURLs)

	out, err := runner.Generate(context.Background(), prompt, request.TemplateKind(templateName), aspectRatio, confirmAssets)
	if err != nil {
		obs.Log().Error().Err(err).Msg("generation failed")
	}
	fmt.Println(out)
	if err != nil {
		os.Exit(1)
	}
}

func runChat() {
	obs := newObserver()
	defer obs.Close()

	s := getStore()
	defer s.Close()

	var runner *Runner
	model := tui.NewModel("Atelier", func(prompt string) tea.Msg {
		out := runner.Handle(context.Background(), prompt)
		return tui.TranscriptMsg(out)
	})
	program := tea.NewProgram(model)

	var cleanup func()
	runner, cleanup = buildRunner(obs, s, tui.NewTUI(program))
	defer cleanup()

	runner.AttachFlagsAssets(assetPaths, assetURLs)

	if _, err := program.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
