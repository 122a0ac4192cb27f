package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	insightsapp "device-insight/internal/insights/application"
)

var deviceCSVHeader = []string{
	"id",
	"device_id",
	"model",
	"manufacturer",
	"brand",
	"android_version",
	"sdk_version",
	"carrier_name",
	"cpu_abis",
	"cpu_cores",
	"total_memory_gb",
	"available_memory_gb",
	"total_storage_gb",
	"available_storage_gb",
	"sensor_count",
	"tier",
	"tier_score",
	"created_at",
}

// WriteDevicesCSV writes one row per device.
func WriteDevicesCSV(w io.Writer, views []insightsapp.DeviceView) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(deviceCSVHeader); err != nil {
		return err
	}
	for _, v := range views {
		if err := writer.Write([]string{
			strconv.FormatInt(v.ID, 10),
			v.DeviceID,
			v.Model,
			v.Manufacturer,
			v.Brand,
			v.AndroidVersion,
			strconv.Itoa(v.SDKVersion),
			v.CarrierName,
			strings.Join(v.CPUABIs, ";"),
			strconv.Itoa(v.CPUCores),
			formatGB(v.TotalMemoryGB),
			formatGB(v.AvailableMemoryGB),
			formatGB(v.TotalStorageGB),
			formatGB(v.AvailableStorageGB),
			strconv.Itoa(v.SensorCount),
			string(v.Badge.Tier),
			strconv.Itoa(v.Badge.Score),
			formatTime(v.CreatedAt),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// DeviceExport is the JSON device export document.
type DeviceExport struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Total       int                      `json:"total"`
	Devices     []insightsapp.DeviceView `json:"devices"`
}

// BuildTierReportXLSX renders the tier report as a workbook with a summary
// sheet and one row per representative device.
func BuildTierReportXLSX(report insightsapp.TierReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "tiers"
	repsSheet := "representatives"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(repsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Device Tier Report")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", formatTime(report.GeneratedAt))
	_ = f.SetCellValue(summarySheet, "A3", "Devices")
	_ = f.SetCellValue(summarySheet, "B3", report.Total)

	header := []string{"Tier", "Label", "Devices", "Share (%)", "Avg memory (GB)", "Avg storage (GB)", "Avg sensors"}
	for i, title := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		_ = f.SetCellValue(summarySheet, cell, title)
	}
	for i, row := range report.Tiers {
		r := i + 6
		values := []any{
			string(row.Tier),
			row.Style.Label,
			row.Count,
			round(row.Share*100, 1),
			round(row.AvgMemoryGB, 1),
			round(row.AvgStorageGB, 1),
			round(row.AvgSensors, 1),
		}
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(summarySheet, cell, value)
		}
	}

	repHeader := []string{"Tier", "Device ID", "Model", "Manufacturer", "Score", "Sensors"}
	for i, title := range repHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(repsSheet, cell, title)
	}
	for i, rep := range report.Representatives {
		r := i + 2
		values := []any{
			string(rep.Tier),
			rep.Device.DeviceID,
			rep.Device.Model,
			rep.Device.Manufacturer,
			rep.Device.Badge.Score,
			rep.Device.SensorCount,
		}
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(repsSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTierReportPDF renders a one page summary of the tier report.
func BuildTierReportPDF(report insightsapp.TierReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Device Tier Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", formatTime(report.GeneratedAt)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Devices: %d", report.Total))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Tier", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Devices", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Share", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Memory (GB)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Storage (GB)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Sensors", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range report.Tiers {
		pdf.CellFormat(30, 6, string(row.Tier), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(row.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.1f%%", row.Share*100), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.1f", row.AvgMemoryGB), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.1f", row.AvgStorageGB), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", row.AvgSensors), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(report.Representatives) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Representative devices")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, rep := range report.Representatives {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %s %s (score %d)", rep.Tier, rep.Device.Manufacturer, rep.Device.Model, rep.Device.Badge.Score))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatGB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
