package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"vibrato/internal/config"
	"vibrato/internal/database"
	"vibrato/internal/metadata"
	"vibrato/internal/scanner"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()

	roots, err := resolveRoots(cfg, *configPath, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening library database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := metadata.NewExtractor(cfg.Library.SupportedFormats, logger)
	sc := scanner.New(db, extractor, logger)

	progress := make(chan scanner.Progress, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			switch p.Kind {
			case scanner.RootStarted:
				fmt.Printf("\nScanning %s\n", p.Root)
			case scanner.FileScanned:
				fmt.Printf("\r  %d found, %d known, %d added, %d updated, %d failed",
					p.Found, p.Known, p.Added, p.Updated, p.Failed)
			}
		}
	}()

	result, scanErr := sc.Scan(ctx, roots, progress)
	close(progress)
	<-done
	fmt.Println()

	if scanErr != nil {
		// Cancellation keeps partial progress; report and fall through to
		// the summary for what did commit.
		fmt.Printf("Scan interrupted: %v\n", scanErr)
	}

	if result != nil {
		fmt.Printf("Done: %d found, %d known, %d added, %d updated, %d failed\n",
			result.Found, result.Known, result.Added, result.Updated, result.Failed)
		handleStale(db, result.Stale)
	}
}

// resolveRoots decides what to scan: explicit arguments are validated,
// canonicalized and persisted; with no arguments the configured folders are
// used, prompting for one interactively when none are configured yet.
func resolveRoots(cfg *config.Config, configPath string, args []string) ([]string, error) {
	if len(args) > 0 {
		roots := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid folder %q: %v", arg, err)
			}
			info, err := os.Stat(abs)
			if err != nil {
				return nil, fmt.Errorf("cannot scan %q: %v", arg, err)
			}
			if !info.IsDir() {
				return nil, fmt.Errorf("not a directory: %q", arg)
			}
			roots = append(roots, abs)
			cfg.AddFolder(abs)
		}
		if err := cfg.SaveToFile(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not persist folders: %v\n", err)
		}
		return roots, nil
	}

	if len(cfg.Library.Folders) > 0 {
		return cfg.Library.Folders, nil
	}

	return promptForFolders(cfg, configPath)
}

// promptForFolders asks for library folders until at least one valid one is
// entered.
func promptForFolders(cfg *config.Config, configPath string) ([]string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("No library folders configured.")

	for {
		fmt.Print("Enter a music folder to scan (empty to finish): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("could not read input: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if len(cfg.Library.Folders) == 0 {
				continue
			}
			break
		}

		abs, err := filepath.Abs(line)
		if err != nil {
			fmt.Printf("Invalid path: %v\n", err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			fmt.Printf("Not a directory: %s\n", abs)
			continue
		}
		cfg.AddFolder(abs)
	}

	if err := cfg.SaveToFile(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not persist folders: %v\n", err)
	}
	return cfg.Library.Folders, nil
}

// handleStale lists tracks whose files are gone and deletes them only after
// an explicit yes. Anything but "y" leaves the rows untouched.
func handleStale(db *database.Database, stale []string) {
	if len(stale) == 0 {
		return
	}

	fmt.Printf("\n%d track(s) in the library no longer exist on disk:\n", len(stale))
	for _, filename := range stale {
		fmt.Printf("  %s\n", filename)
	}
	fmt.Print("Remove these from the library? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println("\nKeeping stale entries.")
		return
	}
	if strings.TrimSpace(strings.ToLower(answer)) != "y" {
		fmt.Println("Keeping stale entries.")
		return
	}

	removed, err := db.DeleteTracks(stale)
	if err != nil {
		fmt.Printf("Failed to remove stale entries: %v\n", err)
		return
	}
	fmt.Printf("Removed %d stale track(s).\n", removed)
}
