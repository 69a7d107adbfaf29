package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bkpt-go/internal/app"
	"bkpt-go/internal/config"
	"bkpt-go/internal/diff"
	"bkpt-go/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// bookDir resolves the optional positional DIR argument, defaulting to
// the current directory.
func bookDir(args []string) (string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

func parseIndex(arg string) (int64, error) {
	index, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || index < 1 {
		return 0, fmt.Errorf("invalid checkpoint index: %s", arg)
	}
	return index, nil
}

// readPassphrase prompts for a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// confirm asks the user to type "yes". Refuses when stdin is not a
// terminal, so scripts must pass --yes explicitly.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to confirm")
	}
	fmt.Printf("%s [type 'yes' to continue] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "yes", nil
}

var rootCmd = &cobra.Command{
	Use:   "bkpt",
	Short: "Book checkpoint tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Repository store: %s\n", cfg.StoreRoot)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Repository store: %s\n", cfg.StoreRoot)
		fmt.Printf("Log Dir:          %s\n", cfg.LogDir)
		fmt.Printf("Encryption:       %s\n", cfg.Encryption.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the at-rest encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase for the private key: ")
		if err != nil {
			return err
		}
		again, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != again {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// maybeUnlock prompts for the passphrase when the store is encrypted.
func maybeUnlock(a *app.App) error {
	if !encryptionEnabled() {
		return nil
	}
	pass, err := readPassphrase("Repository passphrase: ")
	if err != nil {
		return err
	}
	return a.UnlockCipher(pass)
}

func encryptionEnabled() bool {
	defaults, err := app.GetDefaults()
	if err != nil {
		return false
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return false
	}
	return cfg.Encryption.Type == "age"
}

// save command
var saveCmd = &cobra.Command{
	Use:   "save [DIR]",
	Short: "Save a checkpoint of the book",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("message")

		a, err := newApp("Save")
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := bookDir(args)
		if err != nil {
			return err
		}

		index, err := a.SaveCheckpoint(cmd.Context(), dir, description)
		if err != nil {
			return fmt.Errorf("saving checkpoint: %w", err)
		}

		fmt.Printf("Checkpoint %d saved\n", index)
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log [DIR]",
	Short: "View checkpoint history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Log")
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := bookDir(args)
		if err != nil {
			return err
		}

		summaries, err := a.ListCheckpoints(cmd.Context(), dir)
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No checkpoints found.")
			return nil
		}

		for _, s := range summaries {
			desc := s.Description
			if desc == "" {
				desc = "(no description)"
			}
			fmt.Printf("#%-4d %s  %4d file(s)  %s\n",
				s.Index,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				s.FileCount,
				desc,
			)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show INDEX [DIR]",
	Short: "View one checkpoint's file set",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("Show")
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := bookDir(args[1:])
		if err != nil {
			return err
		}

		cp, err := a.GetCheckpoint(cmd.Context(), dir, index)
		if err != nil {
			return err
		}

		desc := cp.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("Checkpoint #%d  %s  %s\n", cp.Index, cp.CreatedAt.Format("2006-01-02 15:04:05"), desc)
		if cp.Book.Title != "" {
			fmt.Printf("Book: %s\n", cp.Book.Title)
		}
		fmt.Println()
		for _, f := range cp.Files {
			fmt.Printf("%-6s %8d  %s\n", f.Kind, f.Ref.Size, f.Path)
		}
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff INDEX [DIR]",
	Short: "Compare the working book against a checkpoint",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("Compare")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := maybeUnlock(a); err != nil {
			return err
		}

		dir, err := bookDir(args[1:])
		if err != nil {
			return err
		}

		res, err := a.Compare(cmd.Context(), dir, index)
		if err != nil {
			return err
		}

		if res.Empty() {
			fmt.Println("No differences.")
			return nil
		}

		for _, p := range res.OnlyInCheckpoint {
			fmt.Printf("only in checkpoint: %s\n", p)
		}
		for _, p := range res.OnlyInWorking {
			fmt.Printf("only in working:    %s\n", p)
		}
		for _, f := range res.Modified {
			if f.Kind == model.KindBinary {
				diff.RenderBinary(os.Stdout, f)
				continue
			}
			working, checkpointed, err := a.ModifiedContent(cmd.Context(), dir, index, f.Path)
			if err != nil {
				return err
			}
			diff.RenderText(os.Stdout, f.Path, checkpointed, working)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore INDEX [DIR]",
	Short: "Restore the book from a checkpoint",
	Long: `Restore replaces the book's entire working directory with the contents
of the chosen checkpoint. Working changes that were never checkpointed
are lost.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := maybeUnlock(a); err != nil {
			return err
		}

		dir, err := bookDir(args[1:])
		if err != nil {
			return err
		}

		if !yes {
			ok, err := confirm(fmt.Sprintf("Replace %s with checkpoint %d? Unsaved changes are lost.", dir, index))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		replaced, err := a.Restore(cmd.Context(), dir, index)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %d file(s) from checkpoint %d\n", len(replaced), index)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [DIR]",
	Short: "Check the book's repository for corruption",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := maybeUnlock(a); err != nil {
			return err
		}

		dir, err := bookDir(args)
		if err != nil {
			return err
		}

		problems, err := a.Verify(cmd.Context(), dir)
		if err != nil {
			return err
		}

		if len(problems) == 0 {
			fmt.Println("Repository is sound.")
			return nil
		}
		for _, p := range problems {
			fmt.Println(p.String())
		}
		return fmt.Errorf("%d problem(s) found", len(problems))
	},
}

// repos command
var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRepositories")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.ListRepositories(cmd.Context())
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No repositories.")
			return nil
		}

		for _, s := range summaries {
			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %-30s  %3d checkpoint(s)  %s\n",
				s.ID,
				title,
				s.CheckpointCount,
				s.LastModified.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

var reposRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete one repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveRepository")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveRepository(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Repository %s removed\n", args[0])
		return nil
	},
}

var reposClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveAllRepositories")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveAllRepositories(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("All repositories removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	keysCmd.AddCommand(keysInitCmd)

	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposRmCmd)
	reposCmd.AddCommand(reposClearCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringP("message", "m", "", "Checkpoint description")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(verifyCmd)
}
