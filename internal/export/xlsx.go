// Package export writes booking lists to spreadsheets.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"laundrmate/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var columns = []struct {
	title string
	width float64
}{
	{"ID", 8},
	{"Laundry", 25},
	{"Status", 12},
	{"Scheduled", 18},
	{"Service", 18},
	{"Notes", 40},
	{"Price", 10},
	{"Created", 18},
}

var statusFill = map[models.Status]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCancelled: "#FFC7CE",
}

// Exporter writes xlsx files into a directory.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// Bookings writes list to a new file named after prefix and returns its path.
func (e *Exporter) Bookings(prefix string, list []models.Booking) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := buildWorkbook(list, e.now())
	if err != nil {
		return "", err
	}
	defer f.Close()

	if prefix == "" {
		prefix = "bookings"
	}
	fileName := fmt.Sprintf("%s_%s.xlsx", prefix, e.now().Format("20060102_150405"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save %s: %w", filePath, err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(list)).Msg("bookings exported")
	return filePath, nil
}

func buildWorkbook(list []models.Booking, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(sheetName, name+"1", col.title)
		_ = f.SetColWidth(sheetName, name, name, col.width)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	_ = f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	statusStyles := make(map[models.Status]int, len(statusFill))
	for status, color := range statusFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			statusStyles[status] = style
		}
	}

	for i, b := range list {
		row := i + 2
		values := []any{
			b.ID,
			laundryName(b),
			string(b.Status),
			formatTime(b.ScheduledAt),
			deref(b.ServiceType),
			deref(b.Notes),
			price(b.Price),
			formatTime(&b.CreatedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := statusStyles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(3, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
	}

	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   "Bookings",
		Creator: "laundrmate",
		Created: now.UTC().Format(time.RFC3339),
	})
	return f, nil
}

func laundryName(b models.Booking) string {
	if b.Laundry != nil && b.Laundry.Name != "" {
		return b.Laundry.Name
	}
	return fmt.Sprintf("#%d", b.LaundryID)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func price(d *models.Decimal) any {
	if d == nil {
		return ""
	}
	return d.Float64()
}
