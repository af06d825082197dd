// Package main implements the chronogram CLI: a month of duties, sleep and
// in-flight rest drawn on a UTC day grid.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/codeGROOVE-dev/chronogram/pkg/edit"
	"github.com/codeGROOVE-dev/chronogram/pkg/profile"
	"github.com/codeGROOVE-dev/chronogram/pkg/recalc"
	"github.com/codeGROOVE-dev/chronogram/pkg/render"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/chronogram/pkg/timeline"
	"github.com/spf13/cobra"
)

const appVersion = "1.0.0"

type options struct {
	input        string
	month        string
	tz           string
	profileName  string
	profilesFile string
	editsFile    string
	service      string
	phases       bool
	verbose      bool
	noColor      bool
	legend       bool
	// store replaces the profiles file when set.
	store profile.Repository
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithStore(nil)
}

// newRootCmdWithStore builds the CLI around the given profile repository,
// or around the profiles file when store is nil.
func newRootCmdWithStore(store profile.Repository) *cobra.Command {
	opts := options{store: store}

	root := &cobra.Command{
		Use:           "chronogram",
		Short:         "Pilot duty and rest chronogram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = appVersion
	root.SetVersionTemplate("chronogram v{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.input, "input", "i", "", "Roster file from the fatigue model (.json or .yaml)")
	pf.StringVar(&opts.month, "month", "", "Month to show, YYYY-MM (default: the roster's month)")
	pf.StringVar(&opts.tz, "tz", "", "Home base IANA timezone or UTC offset (or set CHRONOGRAM_TZ)")
	pf.BoolVar(&opts.phases, "phases", false, "Split operating legs into flight phases")
	pf.StringVar(&opts.profileName, "profile", "", "Saved profile to apply")
	pf.StringVar(&opts.profilesFile, "profiles-file", "", "Profile store (default: user config dir)")
	pf.StringVar(&opts.editsFile, "edits", "", "JSON file of pending sleep edits to overlay")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the month in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(opts.verbose)
			in, err := buildInput(&opts, logger)
			if err != nil {
				return err
			}
			data := timeline.Build(in, logger)
			return render.Render(cmd.OutOrStdout(), data, render.Options{NoColor: opts.noColor, Legend: opts.legend, Warnings: true})
		},
	}
	renderCmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")
	renderCmd.Flags().BoolVar(&opts.legend, "legend", true, "Print the glyph legend")

	jsonCmd := &cobra.Command{
		Use:   "json",
		Short: "Print the laid-out timeline as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(opts.verbose)
			in, err := buildInput(&opts, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(timeline.Build(in, logger))
		},
	}

	recalcCmd := &cobra.Command{
		Use:   "recalc",
		Short: "Send pending sleep edits to the fatigue model and draw the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecalc(cmd, &opts)
		},
	}
	recalcCmd.Flags().StringVar(&opts.service, "service", "", "Fatigue-model service URL (or set CHRONOGRAM_SERVICE)")

	root.AddCommand(renderCmd, jsonCmd, recalcCmd, newProfileCmd(&opts))
	return root
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openProfiles(opts *options, logger *slog.Logger) (profile.Repository, error) {
	if opts.store != nil {
		return opts.store, nil
	}
	path := opts.profilesFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating config dir: %w", err)
		}
		path = filepath.Join(dir, "chronogram", "profiles.yaml")
	}
	return profile.OpenFileStore(path, logger)
}

func loadRoster(path string) (*roster.Dataset, error) {
	if path == "" {
		return nil, errors.New("--input is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return roster.Load(f, roster.FormatFromPath(path))
}

func loadEdits(path string) (*edit.Set, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading edits: %w", err)
	}
	set := edit.NewSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("decoding edits %s: %w", path, err)
	}
	return set, nil
}

// settings resolves month, zone and phases. Flags win over the environment,
// the environment over the profile, and the profile over the roster itself.
type settings struct {
	month    string
	zone     string
	homeBase string
	preset   string
	phases   bool
}

// profilesFor opens the profile repository only when a profile was asked for.
func profilesFor(opts *options, logger *slog.Logger) (profile.Repository, error) {
	if opts.profileName == "" {
		return nil, nil
	}
	return openProfiles(opts, logger)
}

func resolveSettings(opts *options, ds *roster.Dataset, store profile.Repository) (settings, error) {
	s := settings{month: ds.Month, zone: ds.HomeTimezone, homeBase: ds.HomeBase, phases: opts.phases}
	if opts.profileName != "" {
		if store == nil {
			return s, fmt.Errorf("profile %q: %w", opts.profileName, profile.ErrNotFound)
		}
		p, err := store.Get(opts.profileName)
		if err != nil {
			return s, fmt.Errorf("profile %q: %w", opts.profileName, err)
		}
		if p.HomeZone != "" {
			s.zone = p.HomeZone
		}
		if p.HomeBase != "" {
			s.homeBase = p.HomeBase
		}
		s.preset = p.ConfigPreset
		s.phases = s.phases || p.Phases
	}
	if env := os.Getenv("CHRONOGRAM_TZ"); env != "" {
		s.zone = env
	}
	if opts.tz != "" {
		s.zone = opts.tz
	}
	if opts.month != "" {
		s.month = opts.month
	}
	if s.month == "" {
		return s, errors.New("no month: pass --month or include it in the roster")
	}
	return s, nil
}

func buildInput(opts *options, logger *slog.Logger) (timeline.Input, error) {
	ds, err := loadRoster(opts.input)
	if err != nil {
		return timeline.Input{}, err
	}
	return inputFor(opts, ds, logger)
}

func inputFor(opts *options, ds *roster.Dataset, logger *slog.Logger) (timeline.Input, error) {
	store, err := profilesFor(opts, logger)
	if err != nil {
		return timeline.Input{}, err
	}
	s, err := resolveSettings(opts, ds, store)
	if err != nil {
		return timeline.Input{}, err
	}
	year, month, err := roster.ParseMonth(s.month)
	if err != nil {
		return timeline.Input{}, err
	}
	edits, err := loadEdits(opts.editsFile)
	if err != nil {
		return timeline.Input{}, err
	}
	return timeline.Input{
		Year:     year,
		Month:    month,
		HomeZone: s.zone,
		Duties:   ds.Duties,
		RestDays: ds.RestDays,
		Edits:    edits,
		Phases:   s.phases,
	}, nil
}

func runRecalc(cmd *cobra.Command, opts *options) error {
	logger := newLogger(opts.verbose)
	service := opts.service
	if service == "" {
		service = os.Getenv("CHRONOGRAM_SERVICE")
	}
	if service == "" {
		return errors.New("--service is required")
	}
	if opts.editsFile == "" {
		return errors.New("--edits is required")
	}

	ds, err := loadRoster(opts.input)
	if err != nil {
		return err
	}
	store, err := profilesFor(opts, logger)
	if err != nil {
		return err
	}
	s, err := resolveSettings(opts, ds, store)
	if err != nil {
		return err
	}
	edits, err := loadEdits(opts.editsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result recalc.Result
	coord := recalc.NewCoordinator(recalc.NewHTTPClient(service, logger), func(r recalc.Result) { result = r }, logger)
	coord.Submit(ctx, recalc.Request{
		Month:        s.month,
		HomeBase:     s.homeBase,
		HomeTimezone: s.zone,
		ConfigPreset: s.preset,
		Edits:        edits.Records(),
	})
	go func() {
		<-ctx.Done()
		coord.Cancel()
	}()
	coord.Wait()

	if result.Err != nil {
		return result.Err
	}
	if result.Dataset == nil {
		return errors.New("recalculation cancelled")
	}

	// The new dataset already reflects the edits.
	fresh := *opts
	fresh.editsFile = ""
	if result.Dataset.Month == "" {
		result.Dataset.Month = s.month
	}
	in, err := inputFor(&fresh, result.Dataset, logger)
	if err != nil {
		return err
	}
	return render.Render(cmd.OutOrStdout(), timeline.Build(in, logger), render.Options{Legend: true, Warnings: true})
}

func newProfileCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved profiles",
	}

	var p profile.Profile
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or update a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openProfiles(opts, newLogger(opts.verbose))
			if err != nil {
				return err
			}
			p.Name = args[0]
			if p.HomeZone == "" {
				p.HomeZone = opts.tz
			}
			p.Phases = opts.phases
			if err := store.Put(p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "saved profile %q", strings.TrimSpace(p.Name))
			if fs, ok := store.(*profile.FileStore); ok {
				fmt.Fprintf(out, " to %s", fs.Path())
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	save.Flags().StringVar(&p.HomeBase, "home-base", "", "Home base airport code")
	save.Flags().StringVar(&p.HomeZone, "home-zone", "", "Home base timezone (default: --tz)")
	save.Flags().StringVar(&p.ConfigPreset, "preset", "", "Fatigue model configuration preset")

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openProfiles(opts, newLogger(opts.verbose))
			if err != nil {
				return err
			}
			profiles, err := store.List()
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-5s %-22s %s\n", p.Name, p.HomeBase, p.HomeZone, p.ConfigPreset)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openProfiles(opts, newLogger(opts.verbose))
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	}

	cmd.AddCommand(save, list, del)
	return cmd
}
