package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "omokage",
		Short: "Offline persona chat engine seeded from exported transcripts",
		Long: strings.TrimSpace(`omokage builds a chat persona from an exported chat transcript and
responds in that persona's voice, fully offline.

Use CLI commands to onboard, import a transcript, chat locally, run the
Discord gateway, and manage emotion triggers and memories.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newImportCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newTriggerCommand())
	root.AddCommand(newMemoryCommand())
	root.AddCommand(newPersonaCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.omokage config and workspace",
		Long:    "Create default configuration, workspace directories, and the default persona.",
		Example: "  omokage onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newImportCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "import <transcript-file>",
		Short: "Analyze an exported chat transcript into a persona profile",
		Long:  "Parse a transcript export, profile the detected sender, and optionally adopt the resulting persona.",
		Args:  cobra.ExactArgs(1),
		Example: strings.Join([]string{
			"  omokage import talk.txt",
			"  omokage import talk.txt --apply",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], apply)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Adopt the profiled persona and seed learning")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		message string
		session string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the persona locally (CLI mode)",
		Long:  "Run an interactive local chat session or send a one-shot message.",
		Example: strings.Join([]string{
			"  omokage chat",
			"  omokage chat --session cli:evening",
			"  omokage chat --message \"おはよう\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(message, session, debug)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send")
	cmd.Flags().StringVarP(&session, "session", "s", "cli:default", "Session key for history continuity")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the Discord gateway",
		Long:    "Start channel adapters and the persona response loop, with scheduled learning-table maintenance.",
		Example: "  omokage gateway --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  omokage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  omokage version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func newTriggerCommand() *cobra.Command {
	triggerRoot := &cobra.Command{
		Use:   "trigger",
		Short: "Manage custom emotion triggers",
	}

	var (
		name      string
		emoji     string
		keywords  []string
		responses []string
		followUps []string
		intensity int
	)

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a custom emotion trigger",
		Long:  "Add a keyword-triggered emotion with its responses. Custom triggers take priority over built-ins.",
		Example: strings.Join([]string{
			"  omokage trigger add --name 懐かしい --emoji 🕰️ \\",
			"    --keyword 懐かしい --keyword 昔 \\",
			"    --response \"あの頃が懐かしいね\" --intensity 6",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			if len(keywords) == 0 {
				return fmt.Errorf("at least one --keyword is required")
			}
			if len(responses) == 0 {
				return fmt.Errorf("at least one --response is required")
			}
			return triggerAdd(name, emoji, keywords, responses, followUps, intensity)
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "Emotion name")
	add.Flags().StringVar(&emoji, "emoji", "✨", "Emoji shown for this emotion")
	add.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "Trigger keyword (repeatable)")
	add.Flags().StringArrayVarP(&responses, "response", "r", nil, "Response text (repeatable)")
	add.Flags().StringArrayVar(&followUps, "follow-up", nil, "Follow-up question (repeatable)")
	add.Flags().IntVarP(&intensity, "intensity", "i", 5, "Intensity 1-10")
	triggerRoot.AddCommand(add)

	triggerRoot.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List built-in and custom triggers",
		Example: "  omokage trigger list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return triggerList()
		},
	})

	triggerRoot.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a custom trigger",
		Args:    cobra.ExactArgs(1),
		Example: "  omokage trigger remove 3f6c2a…",
		RunE: func(cmd *cobra.Command, args []string) error {
			return triggerRemove(args[0])
		},
	})

	return triggerRoot
}

func newMemoryCommand() *cobra.Command {
	memoryRoot := &cobra.Command{
		Use:   "memory",
		Short: "Manage keyword memories and the learned table",
	}

	var (
		keyword   string
		related   []string
		responses []string
		weight    float64
	)

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a custom keyword memory",
		Example: strings.Join([]string{
			"  omokage memory add --keyword 花火 --related 夏祭り \\",
			"    --response \"あの夏の花火、きれいだったね\" --weight 0.9",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(keyword) == "" {
				return fmt.Errorf("--keyword is required")
			}
			if len(responses) == 0 {
				return fmt.Errorf("at least one --response is required")
			}
			return memoryAdd(keyword, related, responses, weight)
		},
	}
	add.Flags().StringVarP(&keyword, "keyword", "k", "", "Primary memory keyword")
	add.Flags().StringArrayVar(&related, "related", nil, "Related word (repeatable)")
	add.Flags().StringArrayVarP(&responses, "response", "r", nil, "Response text (repeatable)")
	add.Flags().Float64VarP(&weight, "weight", "w", 0.5, "Emotional weight 0.0-1.0")
	memoryRoot.AddCommand(add)

	memoryRoot.AddCommand(&cobra.Command{
		Use:     "stats",
		Short:   "Show memory and learning statistics",
		Example: "  omokage memory stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return memoryStats()
		},
	})

	memoryRoot.AddCommand(&cobra.Command{
		Use:     "clear",
		Short:   "Clear all learned associations",
		Example: "  omokage memory clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			return memoryClear()
		},
	})

	var (
		maxKeywords  int
		maxResponses int
	)
	prune := &cobra.Command{
		Use:     "prune",
		Short:   "Bound the learned table size",
		Example: "  omokage memory prune --max-keywords 500",
		RunE: func(cmd *cobra.Command, args []string) error {
			return memoryPrune(maxKeywords, maxResponses)
		},
	}
	prune.Flags().IntVar(&maxKeywords, "max-keywords", 0, "Keyword cap (default from config)")
	prune.Flags().IntVar(&maxResponses, "max-responses", 0, "Per-keyword response cap (default from config)")
	memoryRoot.AddCommand(prune)

	return memoryRoot
}

func newPersonaCommand() *cobra.Command {
	personaRoot := &cobra.Command{
		Use:   "persona",
		Short: "Manage the active persona",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:     "init",
		Short:   "Write the default persona file",
		Example: "  omokage persona init",
		RunE: func(cmd *cobra.Command, args []string) error {
			return personaInit(force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing persona")
	personaRoot.AddCommand(initCmd)

	personaRoot.AddCommand(&cobra.Command{
		Use:     "show",
		Short:   "Show the active persona",
		Example: "  omokage persona show",
		RunE: func(cmd *cobra.Command, args []string) error {
			return personaShow()
		},
	})

	return personaRoot
}
