package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/service"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/cache"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/metrics"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/schema"
)

const maxInputSize = 10 * 1024 * 1024

// errRejected reports a negative outcome that was already printed.
var errRejected = errors.New("rejected")

type rootOptions struct {
	outputJSON   bool
	verbose      bool
	stixTesters  string
	eventTesters string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "stixfilter",
		Short: "Validate and evaluate STIX filter groups offline",
		Long: `Validate filter groups and evaluate them against STIX objects or activity
events without a running gateway. Matches run as a bypass user, so marking
and organization restrictions never hide an object.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine decisions to stderr")
	root.PersistentFlags().StringVar(&opts.stixTesters, "stix-testers", "", "Custom STIX testers as key=expression;key=expression")
	root.PersistentFlags().StringVar(&opts.eventTesters, "event-testers", "", "Custom event testers as key=expression;key=expression")

	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newMatchCmd(opts))
	return root
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a filter group against the testers of a subject kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := valueobject.SubjectKind(subject)
			if !kind.IsValid() {
				return fmt.Errorf("unknown subject %q, expected stix or event", subject)
			}

			env, err := newEnvironment(opts, nil)
			if err != nil {
				return err
			}

			resp := &dto.ValidateResponse{Valid: true}
			group, err := env.decodeGroup(args[0])
			if err != nil {
				resp = &dto.ValidateResponse{Valid: false, Error: err.Error()}
			} else if resp, err = env.match.Validate(cmd.Context(), &dto.ValidateRequest{Subject: kind, Filters: group}); err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), opts.outputJSON, resp, validateText(resp)); err != nil {
				return err
			}
			if !resp.Valid {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", string(valueobject.SubjectStix), "Subject kind: stix or event")
	return cmd
}

func validateText(resp *dto.ValidateResponse) string {
	if resp.Valid {
		return "valid"
	}
	return "invalid: " + resp.Error
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var filtersPath, stixPath, eventPath, cachePath string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Evaluate a filter group against a STIX object or an activity event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (stixPath == "") == (eventPath == "") {
				return fmt.Errorf("exactly one of --stix or --event is required")
			}

			loader := cache.StaticLoader{}
			if cachePath != "" {
				var err error
				if loader, err = cache.LoadStaticFile(cachePath); err != nil {
					return err
				}
			}

			env, err := newEnvironment(opts, loader)
			if err != nil {
				return err
			}
			if err := env.cache.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load cache: %w", err)
			}

			group, err := env.decodeGroup(filtersPath)
			if err != nil {
				return err
			}

			var matched bool
			if stixPath != "" {
				matched, err = env.matchStix(cmd.Context(), stixPath, group)
			} else {
				matched, err = env.matchEvent(cmd.Context(), eventPath, group)
			}
			if err != nil {
				return err
			}

			result := map[string]bool{"match": matched}
			if err := printResult(cmd.OutOrStdout(), opts.outputJSON, result, fmt.Sprint(matched)); err != nil {
				return err
			}
			if !matched {
				return errRejected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filtersPath, "filters", "", "Filter group JSON file")
	cmd.Flags().StringVar(&stixPath, "stix", "", "STIX object JSON file")
	cmd.Flags().StringVar(&eventPath, "event", "", "Activity event JSON file")
	cmd.Flags().StringVar(&cachePath, "cache", "", "Resolved filters cache snapshot JSON file")
	_ = cmd.MarkFlagRequired("filters")
	return cmd
}

// environment is the offline wiring of the match service.
type environment struct {
	decoder *schema.Decoder
	cache   *cache.SnapshotCache
	match   *service.MatchService
}

func newEnvironment(opts *rootOptions, loader cache.StaticLoader) (*environment, error) {
	logger := logging.NewNopLogger()
	if opts.verbose {
		var err error
		logger, err = logging.NewLogger(&config.LogConfig{Level: "debug", Format: "text", Output: "stderr"})
		if err != nil {
			return nil, err
		}
	}

	decoder, err := schema.NewDecoder()
	if err != nil {
		return nil, err
	}
	matcher, err := stixfilter.NewCustomMatcher(opts.stixTesters, opts.eventTesters, 0)
	if err != nil {
		return nil, err
	}
	collector, err := metrics.NewPrometheusCollector(nil)
	if err != nil {
		return nil, err
	}

	if loader == nil {
		loader = cache.StaticLoader{}
	}
	snapshots, err := cache.NewSnapshotCache(loader, cache.Options{
		EntityTypes: []string{service.ResolvedFiltersEntityType},
	}, collector, logger)
	if err != nil {
		return nil, err
	}

	return &environment{
		decoder: decoder,
		cache:   snapshots,
		match:   service.NewMatchService(matcher, snapshots, auth.NewMarkingAccessChecker(), collector, logger),
	}, nil
}

func (e *environment) decodeGroup(path string) (valueobject.FilterGroup, error) {
	data, err := readInput(path)
	if err != nil {
		return valueobject.FilterGroup{}, err
	}
	return e.decoder.DecodeFilterGroup(data)
}

func (e *environment) matchStix(ctx context.Context, path string, group valueobject.FilterGroup) (bool, error) {
	data, err := readInput(path)
	if err != nil {
		return false, err
	}
	stix, err := e.decoder.DecodeStixObject(data)
	if err != nil {
		return false, err
	}
	return e.match.IsStixMatchFilterGroup(ctx, entity.SystemUser(), stix, group)
}

func (e *environment) matchEvent(ctx context.Context, path string, group valueobject.FilterGroup) (bool, error) {
	data, err := readInput(path)
	if err != nil {
		return false, err
	}
	event, err := e.decoder.DecodeActivityEvent(data)
	if err != nil {
		return false, err
	}
	return e.match.IsEventMatchFilterGroup(ctx, event, group)
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, maxInputSize)
	}
	return data, nil
}

func printResult(w io.Writer, asJSON bool, v interface{}, text string) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
