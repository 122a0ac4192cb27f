package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devices "device-insight/internal/devices/domain"
	"device-insight/internal/devices/infrastructure/memory"
	insightsapp "device-insight/internal/insights/application"
	tiering "device-insight/internal/tiering/domain"
	"device-insight/internal/tiering/presentation"
)

var errDatasetRequired = errors.New("tierctl: dataset is required")

const (
	formatText = "text"
	formatJSON = "json"
)

// newRootCmd builds the command tree. Each call owns its own viper instance
// so tests can run commands side by side.
func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "tierctl",
		Short: "Score, filter and compare devices from a JSON dataset",
		Long: `tierctl runs the device tier engine against an exported dataset.

The dataset is a JSON document with "devices" and "sensors" arrays, the
same rows the dashboard reads from Postgres.

Example:
  tierctl tiers --dataset ./fleet.json
  tierctl compare px8 a15 --dataset ./fleet.json --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml)")
	flags.String("dataset", "", "path to a JSON device dataset")
	flags.String("presentation", "", "tier presentation overrides (yaml)")
	flags.String("format", formatText, "output format (text, json)")
	flags.Int("top-sensors", 10, "number of sensor names in stats")
	flags.Bool("verbose", false, "log progress to stderr")

	_ = v.BindPFlag("dataset", flags.Lookup("dataset"))
	_ = v.BindPFlag("presentation", flags.Lookup("presentation"))
	_ = v.BindPFlag("format", flags.Lookup("format"))
	_ = v.BindPFlag("top_sensors", flags.Lookup("top-sensors"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))

	v.SetEnvPrefix("TIERCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newScoreCmd(v),
		newListCmd(v),
		newTiersCmd(v),
		newCompareCmd(v),
		newStatsCmd(v),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("tierctl: read config: %w", err)
	}
	return nil
}

func newLogger(v *viper.Viper) *log.Logger {
	if !v.GetBool("verbose") {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "tierctl ", log.LstdFlags)
}

// openService loads the dataset into a memory store and wires the same
// service the HTTP server uses.
func openService(ctx context.Context, v *viper.Viper) (*insightsapp.Service, error) {
	logger := newLogger(v)
	path := v.GetString("dataset")
	if path == "" {
		return nil, errDatasetRequired
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tierctl: open dataset: %w", err)
	}
	defer file.Close()

	store, err := memory.Decode(file)
	if err != nil {
		return nil, err
	}
	catalog, err := devices.NewCatalog(store, store, nil)
	if err != nil {
		return nil, err
	}
	styles, err := presentation.Load(v.GetString("presentation"))
	if err != nil {
		return nil, err
	}
	if count, err := store.Count(ctx); err == nil {
		logger.Printf("dataset loaded: %s devices=%d", path, count)
	}
	return insightsapp.NewService(catalog, store,
		insightsapp.WithScorer(tiering.NewMemo()),
		insightsapp.WithPresentation(styles),
		insightsapp.WithTopSensors(v.GetInt("top_sensors")),
	)
}

func outputFormat(v *viper.Viper) (string, error) {
	format := strings.ToLower(strings.TrimSpace(v.GetString("format")))
	switch format {
	case "", formatText:
		return formatText, nil
	case formatJSON:
		return formatJSON, nil
	default:
		return "", fmt.Errorf("tierctl: unknown format %q", format)
	}
}
