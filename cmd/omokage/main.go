package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/omokage-app/omokage/pkg/bus"
	"github.com/omokage-app/omokage/pkg/channels"
	"github.com/omokage-app/omokage/pkg/config"
	"github.com/omokage-app/omokage/pkg/emotion"
	"github.com/omokage-app/omokage/pkg/engine"
	"github.com/omokage-app/omokage/pkg/learner"
	"github.com/omokage-app/omokage/pkg/logger"
	"github.com/omokage-app/omokage/pkg/memorydb"
	"github.com/omokage-app/omokage/pkg/persona"
	"github.com/omokage-app/omokage/pkg/profiler"
	"github.com/omokage-app/omokage/pkg/store"
	"github.com/omokage-app/omokage/pkg/transcript"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "omokage"

// formatVersion returns the version string with optional git commit
func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// formatBuildInfo returns build time and go version info
func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Printf("  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".omokage", "config.json")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}
	applyLogLevel(cfg)
	return cfg, nil
}

func applyLogLevel(cfg *config.Config) {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}
}

// openStore selects the configured storage backend.
func openStore(cfg *config.Config) (store.StateStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return store.NewRedisStore(store.RedisOptions{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		}), nil
	default:
		return store.NewSQLiteStore(cfg.StatePath())
	}
}

func currentPersonaPath(cfg *config.Config) string {
	return filepath.Join(cfg.PersonaDir(), "current.toml")
}

// loadActivePersona falls back to the default persona when no persona
// file exists yet.
func loadActivePersona(cfg *config.Config) persona.Persona {
	p, err := persona.Load(currentPersonaPath(cfg))
	if err != nil {
		return persona.Default()
	}
	return p
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Println("Aborted.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	for _, dir := range []string{cfg.WorkspacePath(), cfg.PersonaDir(), filepath.Dir(cfg.StatePath())} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	personaPath := currentPersonaPath(cfg)
	if _, err := os.Stat(personaPath); os.IsNotExist(err) {
		if err := persona.Save(persona.Default(), personaPath); err != nil {
			return fmt.Errorf("failed to save default persona: %w", err)
		}
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Import a chat transcript: %s import transcript.txt --apply\n", appName)
	fmt.Printf("  2. Chat locally: %s chat\n", appName)
	fmt.Printf("  3. (Gateway mode) Add your Discord bot token to channels.discord.token in %s\n", configPath)
	fmt.Printf("  4. Run gateway: %s gateway\n", appName)
	return nil
}

func runImport(path string, apply bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	records, err := transcript.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("failed to parse transcript: %w", err)
	}

	profile := profiler.Analyze(records)

	fmt.Printf("Parsed %d messages.\n\n", len(records))
	fmt.Println("Profile:")
	fmt.Printf("  Name:       %s\n", profile.DetectedName)
	fmt.Printf("  Style:      %s\n", profile.CommunicationStyle)
	fmt.Printf("  Traits:     %s\n", strings.Join(profile.PersonalityTraits, ", "))
	fmt.Printf("  Tone:       %s\n", profile.EmotionalTone)
	fmt.Printf("  Topics:     %s\n", strings.Join(profile.FavoriteTopics, ", "))
	fmt.Printf("  Phrases:    %s\n", strings.Join(profile.CommonPhrases, ", "))
	fmt.Printf("  Frequency:  %s\n", profile.MessageFrequency)

	if !apply {
		fmt.Printf("\nRun again with --apply to adopt this persona.\n")
		return nil
	}

	p := persona.FromProfile(profile)
	if err := persona.Save(p, currentPersonaPath(cfg)); err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	l := learner.New(st, nil, learner.WithWindowSize(cfg.Engine.WindowSize))
	l.IntegrateProfile(profile)

	fmt.Printf("\n✓ Persona %q adopted and learning seeded.\n", p.Name)
	return nil
}

func runChat(message, sessionKey string, debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	p := loadActivePersona(cfg)
	loop := engine.NewLoop(cfg, st, p, bus.NewMessageBus(), rand.New(rand.NewSource(time.Now().UnixNano())))

	if message != "" {
		response, err := loop.ProcessDirect(context.Background(), message, sessionKey)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s %s\n", p.DisplayName(), response)
		return nil
	}

	fmt.Printf("Chatting with %s %s (Ctrl+C to exit)\n\n", p.DisplayName(), p.Mood.Emoji())
	interactiveMode(loop, sessionKey)
	return nil
}

func interactiveMode(loop *engine.Loop, sessionKey string) {
	name := loop.Persona().DisplayName()
	prompt := "You: "

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".omokage_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(loop, sessionKey)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nまたね！")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("またね！")
			return
		}

		response, err := loop.ProcessDirect(context.Background(), input, sessionKey)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s %s\n\n", name, response)
	}
}

func simpleInteractiveMode(loop *engine.Loop, sessionKey string) {
	name := loop.Persona().DisplayName()
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("You: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nまたね！")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("またね！")
			return
		}

		response, err := loop.ProcessDirect(context.Background(), input, sessionKey)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s %s\n\n", name, response)
	}
}

func runGateway(debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}
	if strings.TrimSpace(cfg.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token is required in %s or OMOKAGE_CHANNELS_DISCORD_TOKEN", getConfigPath())
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	p := loadActivePersona(cfg)
	msgBus := bus.NewMessageBus()
	loop := engine.NewLoop(cfg, st, p, msgBus, rand.New(rand.NewSource(time.Now().UnixNano())))

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("failed to create channel manager: %w", err)
	}

	fmt.Printf("✓ Persona: %s %s\n", p.DisplayName(), p.Mood.Emoji())
	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(channelManager.GetEnabledChannels(), ", "))
	fmt.Println("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}

	for name, state := range channelManager.GetStatus() {
		if s, ok := state.(map[string]any); ok {
			fmt.Printf("✓ Channel %s: running=%v\n", name, s["running"])
		}
	}

	go loop.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	loop.Stop()
	channelManager.StopAll(context.Background())
	fmt.Println("✓ Gateway stopped")
	return nil
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n", formatVersion())
	fmt.Println()

	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	_, cfgErr := os.Stat(configPath)
	fmt.Println("Config:", configPath, mark(cfgErr == nil))

	workspace := cfg.WorkspacePath()
	_, wsErr := os.Stat(workspace)
	fmt.Println("Workspace:", workspace, mark(wsErr == nil))

	fmt.Printf("Backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "sqlite" {
		if _, err := os.Stat(cfg.StatePath()); err == nil {
			fmt.Println("State DB:", cfg.StatePath(), "✓")
		} else {
			fmt.Println("State DB:", cfg.StatePath(), "not initialized")
		}
	}

	personaPath := currentPersonaPath(cfg)
	if p, err := persona.Load(personaPath); err == nil {
		fmt.Printf("Persona: %s (%s)\n", p.DisplayName(), personaPath)
	} else {
		fmt.Println("Persona: default (no persona imported yet)")
	}

	discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""
	fmt.Println("Discord token:", mark(discordReady))
	fmt.Println("Gateway ready:", mark(discordReady))
	return nil
}

// withEngines opens the store and hands the engines to fn, closing the
// store afterwards. Used by the trigger/memory/persona command groups.
func withEngines(fn func(cfg *config.Config, st store.StateStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	return fn(cfg, st)
}

func triggerAdd(name, emoji string, keywords, responses, followUps []string, intensity int) error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		e := emotion.NewEngine(st, nil)
		t := emotion.NewTrigger(name, emoji, keywords, responses, followUps, intensity)
		e.AddCustom(t)
		fmt.Printf("✓ Added trigger %s %s (%s)\n", t.Emotion, t.Emoji, t.ID)
		return nil
	})
}

func triggerList() error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		e := emotion.NewEngine(st, nil)
		triggers := e.AllTriggers()

		fmt.Printf("Triggers (%d):\n", len(triggers))
		for _, t := range triggers {
			kind := "custom"
			if strings.HasPrefix(t.ID, "builtin-") {
				kind = "builtin"
			}
			fmt.Printf("  %s %s [%s] intensity=%d\n", t.Emoji, t.Emotion, kind, t.Intensity)
			fmt.Printf("    id: %s\n", t.ID)
			fmt.Printf("    keywords: %s\n", strings.Join(t.Keywords, ", "))
		}
		return nil
	})
}

func triggerRemove(id string) error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		e := emotion.NewEngine(st, nil)
		if !e.RemoveCustom(id) {
			return fmt.Errorf("custom trigger %s not found", id)
		}
		fmt.Printf("✓ Removed trigger %s\n", id)
		return nil
	})
}

func memoryAdd(keyword string, related, responses []string, weight float64) error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		db := memorydb.NewDB(st, nil)
		k := db.AddCustom(keyword, related, responses, weight)
		fmt.Printf("✓ Added memory %q (weight %.1f, %s)\n", k.Keyword, k.EmotionalWeight, k.ID)
		return nil
	})
}

func memoryStats() error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		db := memorydb.NewDB(st, nil)
		l := learner.New(st, nil, learner.WithWindowSize(cfg.Engine.WindowSize))
		stats := l.Stats()

		fmt.Println("Memory:")
		fmt.Printf("  Keyword memories:  %d\n", len(db.All()))
		fmt.Printf("  Learned keywords:  %d\n", stats.KeywordCount)
		fmt.Printf("  Window turns:      %d\n", stats.WindowCount)
		return nil
	})
}

func memoryClear() error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		l := learner.New(st, nil)
		l.Clear()
		fmt.Println("✓ Learned associations cleared")
		return nil
	})
}

func memoryPrune(maxKeywords, maxResponses int) error {
	return withEngines(func(cfg *config.Config, st store.StateStore) error {
		if maxKeywords <= 0 {
			maxKeywords = cfg.Engine.MaxLearnedKeywords
		}
		if maxResponses <= 0 {
			maxResponses = cfg.Engine.MaxResponsesPerKeyword
		}
		l := learner.New(st, nil)
		l.Prune(maxKeywords, maxResponses)
		fmt.Printf("✓ Pruned learned table (max %d keywords, %d responses each)\n", maxKeywords, maxResponses)
		return nil
	})
}

func personaInit(force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path := currentPersonaPath(cfg)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("persona already exists at %s (use --force to overwrite)", path)
	}

	if err := persona.Save(persona.Default(), path); err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	fmt.Printf("✓ Default persona written to %s\n", path)
	return nil
}

func personaShow() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p, err := persona.Load(currentPersonaPath(cfg))
	if err != nil {
		return fmt.Errorf("no persona found, run `%s persona init` or `%s import --apply`: %w", appName, appName, err)
	}

	fmt.Printf("%s %s\n", p.DisplayName(), p.Mood.Emoji())
	fmt.Printf("  Relationship: %s\n", p.Relationship)
	fmt.Printf("  Personality:  %s\n", strings.Join(p.Personality, " • "))
	fmt.Printf("  Speech style: %s\n", p.SpeechStyle)
	fmt.Printf("  Catchphrases: %s\n", strings.Join(p.Catchphrases, " / "))
	fmt.Printf("  Topics:       %s\n", strings.Join(p.FavoriteTopics, " • "))
	fmt.Printf("  Mood:         %s\n", p.Mood.DisplayName())
	return nil
}
