package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	filtering "device-insight/internal/filtering/domain"
	insightsapp "device-insight/internal/insights/application"
)

func newScoreCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "score <device-id>",
		Short: "Score one device and explain each band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), v)
			if err != nil {
				return err
			}
			detail, err := service.DeviceTier(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, detail)
			}
			fmt.Fprintf(out, "%s %s %s score=%d\n", detail.DeviceID, detail.Model, detail.Badge.Tier, detail.Badge.Score)
			fmt.Fprintf(out, "memory=%d storage=%d sensors=%d os=%d\n",
				detail.Breakdown.Memory, detail.Breakdown.Storage, detail.Breakdown.Sensors, detail.Breakdown.OS)
			return nil
		},
	}
}

func newListCmd(v *viper.Viper) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices matching a filter query",
		Long: `List devices matching a filter query.

The query uses the same parameters as GET /api/v1/devices, for example:
  tierctl list --query "manufacturer=Samsung&tier=flagship,premium&sort_by=tier_score"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			values, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("tierctl: parse query: %w", err)
			}
			criteria, err := filtering.ParseCriteria(values)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), v)
			if err != nil {
				return err
			}
			views, err := service.FilterDevices(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, views)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tMODEL\tMANUFACTURER\tSENSORS\tTIER\tSCORE")
			for _, view := range views {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\n",
					view.DeviceID, view.Model, view.Manufacturer, view.SensorCount, view.Badge.Tier, view.Badge.Score)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "filter query string")
	return cmd
}

func newTiersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Partition the fleet by tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), v)
			if err != nil {
				return err
			}
			report, err := service.TierReport(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, report)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tCOUNT\tSHARE\tAVG MEMORY\tAVG STORAGE\tAVG SENSORS\tDEVICES")
			for _, row := range report.Tiers {
				fmt.Fprintf(tw, "%s\t%d\t%.0f%%\t%.1f\t%.1f\t%.1f\t%s\n",
					row.Style.Label, row.Count, row.Share*100, row.AvgMemoryGB, row.AvgStorageGB, row.AvgSensors,
					strings.Join(row.DeviceIDs, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, rep := range report.Representatives {
				fmt.Fprintf(out, "top %s: %s %s (%d)\n", rep.Tier, rep.Device.DeviceID, rep.Device.Model, rep.Device.Badge.Score)
			}
			return nil
		},
	}
}

func newCompareCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <device-id>...",
		Short: "Compare hardware and sensors of up to four devices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), v)
			if err != nil {
				return err
			}
			result, err := service.Compare(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, result)
			}
			return writeComparison(out, result)
		},
	}
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), v)
			if err != nil {
				return err
			}
			stats, err := service.FleetStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, stats)
			}
			fmt.Fprintf(out, "devices=%d sensors=%d avg_memory_gb=%.1f avg_storage_gb=%.1f\n",
				stats.TotalDevices, stats.TotalSensors, stats.AvgMemoryGB, stats.AvgStorageGB)
			for _, b := range stats.Manufacturers {
				fmt.Fprintf(out, "manufacturer %s %d\n", b.Label, b.Count)
			}
			for _, b := range stats.AndroidVersions {
				fmt.Fprintf(out, "android %s %d\n", b.Label, b.Count)
			}
			for _, b := range stats.TopSensors {
				fmt.Fprintf(out, "sensor %s %d\n", b.Label, b.Count)
			}
			return nil
		},
	}
}

func writeComparison(w io.Writer, result insightsapp.Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{""}
	for _, view := range result.Devices {
		header = append(header, view.DeviceID)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range result.Hardware {
		cells := append([]string{row.Label}, row.Values...)
		if row.HighlightIndex >= 0 {
			cells[row.HighlightIndex+1] += " *"
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	fmt.Fprintln(tw)
	for _, row := range result.Matrix {
		cells := []string{row.Name}
		for _, cell := range row.Cells {
			if cell.Present {
				cells = append(cells, "yes")
			} else {
				cells = append(cells, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "common sensors: %d of %d\n", result.Sensors.CommonCount, result.Sensors.TotalCount)
	return err
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
