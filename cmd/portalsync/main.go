package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"portalsync/internal/app"
	"portalsync/internal/config"
	"portalsync/internal/portal"
	"portalsync/internal/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newChooser() portal.Chooser {
	return prompt.NewChooser(os.Stdin, os.Stderr)
}

// newApp reads the config and creates a SyncApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Download", "Push").
func newApp(ctx context.Context, operation string) (*app.SyncApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewSyncApp(ctx, cfg, defaults["config_path"], operation, newChooser())
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "portalsync",
	Short:         "Mirror a CMS portal's templates, snippets and files into a local folder",
	SilenceUsage:  true,
	SilenceErrors: false,
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
		if _, err := os.Stat(defaults["config_path"]); err == nil {
			return fmt.Errorf("config file already exists at %s", defaults["config_path"])
		}

		progressPath := filepath.Join(defaults["base_dir"], "init-progress.toml")
		progress, err := app.LoadWizardProgress(progressPath)
		if err != nil {
			return err
		}
		if progress.Step != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Resuming setup at %s\n", progress.Step)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}

		answers, ok, err := app.NewWizard(newChooser(), cwd).Run(cmd.Context(), progress)
		if err != nil {
			return err
		}
		if !ok {
			if err := app.SaveWizardProgress(progressPath, answers); err != nil {
				return err
			}
			fmt.Println("Setup cancelled; run `portalsync config init` again to continue.")
			return nil
		}

		cfg := config.NewConfig(defaults["base_dir"], answers.WorkspaceRoot)
		answers.Apply(cfg)
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := app.ClearWizardProgress(progressPath); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("CMS:       %s\n", cfg.Remote.BaseURL)
		fmt.Printf("Workspace: %s\n", cfg.Workspace.Root)
		fmt.Println("Next: `portalsync config set-token`, then `portalsync download`.")
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

		portalID := cfg.Portal.ID
		if portalID == "" {
			portalID = "(chosen on first download)"
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Portal:      %s %s\n", portalID, cfg.Portal.Name)
		fmt.Printf("Remote:      %s %s\n", cfg.Remote.Type, cfg.Remote.BaseURL)
		fmt.Printf("Workspace:   %s\n", cfg.Workspace.Root)
		fmt.Printf("Group files: %v\n", cfg.Workspace.GroupFiles)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		fmt.Printf("Token:       %s (%s)\n", cfg.Secret.TokenFile, cfg.Secret.Type)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Save the CMS API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		ok, err := app.SetToken(cmd.Context(), cfg.Secret, newChooser())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Token unchanged.")
			return nil
		}
		fmt.Printf("Token saved to %s\n", cfg.Secret.TokenFile)
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch the portal and write it to the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		silent, _ := cmd.Flags().GetBool("silent")

		a, err := newApp(cmd.Context(), "Download")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Download(cmd.Context(), silent)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		switch {
		case res.Empty:
			fmt.Println("Nothing downloaded: no portal or page template selected.")
		case res.Cancelled:
			fmt.Println("Download cancelled; workspace unchanged.")
		default:
			fmt.Printf("Downloaded %s (%s): %d file(s)\n", res.PortalName, res.PortalID, res.Written)
		}
		return nil
	},
}

func documentCommand(use, short, operation string, run func(a *app.SyncApp, cmd *cobra.Command, path string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PATH",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), operation)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(a, cmd, args[0])
		},
	}
}

var addCmd = documentCommand("add", "Create the CMS entity for a new workspace file", "Add",
	func(a *app.SyncApp, cmd *cobra.Command, path string) error {
		if err := a.Add(cmd.Context(), path); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", path)
		return nil
	})

var updateCmd = documentCommand("update", "Send a workspace file's content to the CMS", "Update",
	func(a *app.SyncApp, cmd *cobra.Command, path string) error {
		if err := a.Update(cmd.Context(), path); err != nil {
			if app.IsNotFound(err) {
				return fmt.Errorf("%w (use `portalsync add` for new files)", err)
			}
			return err
		}
		fmt.Printf("Updated %s\n", path)
		return nil
	})

var deleteCmd = documentCommand("delete", "Delete a file's CMS entity and the file", "Delete",
	func(a *app.SyncApp, cmd *cobra.Command, path string) error {
		if err := a.Delete(cmd.Context(), path); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", path)
		return nil
	})

var diffCmd = documentCommand("diff", "Show changes since the last sync", "Diff",
	func(a *app.SyncApp, cmd *cobra.Command, path string) error {
		patch, err := a.Diff(path)
		if err != nil {
			return err
		}
		if patch == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "No changes.")
			return nil
		}
		fmt.Print(renderPatch(patch))
		return nil
	})

var originalCmd = documentCommand("original", "Print a file as of the last sync", "Original",
	func(a *app.SyncApp, cmd *cobra.Command, path string) error {
		o, err := a.Original(path)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(o.Content)
		return err
	})

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View workspace status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.Status()
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No files found.")
			return nil
		}
		fmt.Print(renderStatus(statuses))
		return nil
	},
}

// push command
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send queued workspace changes to the CMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Push")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Push(cmd.Context())
		fmt.Printf("Pushed %d change(s)\n", n)
		if err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Queue workspace changes and push them continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		a, err := newApp(cmd.Context(), "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Repository().GetPortalData().IsEmpty() {
			return fmt.Errorf("%w: no portal data loaded, run `portalsync download` first", portal.ErrConfiguration)
		}

		fmt.Println("Watching for changes, press Ctrl+C to stop.")
		err = a.Watch(cmd.Context(), interval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No sync operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetTokenCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().Bool("silent", false, "Only log progress to the log file")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(originalCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", app.DefaultPushInterval, "How often queued changes are pushed")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of operations to show")
}
