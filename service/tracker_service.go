package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"jobdroid/model"
	"jobdroid/repository"
	"jobdroid/utils"
)

const trackerSheetName = "Job Applications"

var trackerHeaders = []string{
	"Application ID",
	"Date Applied",
	"Platform",
	"Company",
	"Job Title",
	"Location",
	"Job URL",
	"Status",
	"Experience Required",
	"Job Type",
	"Salary Range",
	"Key Skills",
	"Application Method",
	"Last Updated",
	"Notes",
}

var trackerColumnWidths = []float64{15, 20, 12, 25, 30, 20, 50, 15, 18, 12, 15, 30, 18, 20, 40}

// TrackerService keeps the user-facing spreadsheet and the history DB
// in step: every submitted application gets a styled row and a record.
type TrackerService struct {
	mu        sync.Mutex
	excelPath string
	sheet     string
	file      *excelize.File
	repo      repository.JobRecordRepository
}

// NewTrackerService opens the workbook at excelPath, creating it with
// headers when absent. Rows already in an existing workbook that the
// DB does not know yet are imported once.
func NewTrackerService(excelPath string, repo repository.JobRecordRepository) (*TrackerService, error) {
	t := &TrackerService{
		excelPath: excelPath,
		sheet:     trackerSheetName,
		repo:      repo,
	}

	if _, err := os.Stat(excelPath); err == nil {
		file, err := excelize.OpenFile(excelPath)
		if err != nil {
			return nil, fmt.Errorf("load tracker workbook: %w", err)
		}
		t.file = file
		t.sheet = file.GetSheetName(0)
		imported, err := t.importExisting()
		if err != nil {
			return nil, fmt.Errorf("import tracker rows: %w", err)
		}
		if imported > 0 {
			log.Infof("Imported %d existing application(s) from %s", imported, excelPath)
		}
		log.Infof("Loaded existing job tracker: %s", excelPath)
		return t, nil
	}

	if err := t.createWorkbook(); err != nil {
		return nil, err
	}
	log.Infof("Created new job tracker: %s", excelPath)
	return t, nil
}

func (t *TrackerService) createWorkbook() error {
	if dir := filepath.Dir(t.excelPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tracker directory: %w", err)
		}
	}

	t.file = excelize.NewFile()
	if err := t.file.SetSheetName("Sheet1", t.sheet); err != nil {
		return fmt.Errorf("name tracker sheet: %w", err)
	}

	headerStyle, err := t.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for col, header := range trackerHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := t.file.SetCellValue(t.sheet, cell, header); err != nil {
			return err
		}
	}
	if err := t.file.SetCellStyle(t.sheet, "A1", "O1", headerStyle); err != nil {
		return err
	}

	for i, width := range trackerColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := t.file.SetColWidth(t.sheet, col, col, width); err != nil {
			return err
		}
	}

	if err := t.file.SaveAs(t.excelPath); err != nil {
		return fmt.Errorf("save tracker workbook: %w", err)
	}
	return nil
}

// GenerateApplicationID builds IDs like LIN-20250102T150405.
func GenerateApplicationID(platform string, ts time.Time) string {
	prefix := strings.ToUpper(platform)
	if prefix == "" {
		prefix = "UNK"
	}
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return prefix + "-" + ts.Format("20060102T150405")
}

// AddApplication appends a spreadsheet row for the record and persists
// it. Blank fields get the usual defaults, and the record's
// ApplicationID is filled in.
func (t *TrackerService) AddApplication(record *model.JobRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	timestamp := now.Format("2006-01-02 15:04:05")

	if record.Status == "" {
		record.Status = model.StatusApplied
	}
	record.ApplicationID = GenerateApplicationID(record.Platform, now)
	record.Platform = utils.DefaultIfEmpty(record.Platform, "Unknown")
	record.Company = utils.DefaultIfEmpty(record.Company, "Unknown")
	record.JobTitle = utils.DefaultIfEmpty(record.JobTitle, "Unknown")
	record.Location = utils.DefaultIfEmpty(record.Location, "Unknown")
	record.ExperienceRequired = utils.DefaultIfEmpty(record.ExperienceRequired, "0-1 years")
	record.JobType = utils.DefaultIfEmpty(record.JobType, "Internship")
	record.SalaryRange = utils.DefaultIfEmpty(record.SalaryRange, "Not specified")
	record.ApplicationMethod = utils.DefaultIfEmpty(record.ApplicationMethod, "Automated")

	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return fmt.Errorf("read tracker rows: %w", err)
	}
	rowNum := len(rows) + 1

	values := []interface{}{
		record.ApplicationID,
		timestamp,
		record.Platform,
		record.Company,
		record.JobTitle,
		record.Location,
		record.JobURL,
		record.Status,
		record.ExperienceRequired,
		record.JobType,
		record.SalaryRange,
		record.KeySkills,
		record.ApplicationMethod,
		timestamp,
		record.Notes,
	}
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := t.file.SetCellValue(t.sheet, cell, value); err != nil {
			return err
		}
	}

	if err := t.applyStatusFill(rowNum, record.Status); err != nil {
		return err
	}
	if err := t.file.Save(); err != nil {
		return fmt.Errorf("save tracker workbook: %w", err)
	}

	if record.ID == 0 {
		err = t.repo.Save(record)
	} else {
		err = t.repo.Update(record)
	}
	if err != nil {
		return fmt.Errorf("persist application record: %w", err)
	}

	log.Infof("Added job application: %s at %s [%s]", record.JobTitle, record.Company, record.ApplicationID)
	return nil
}

// UpdateStatus sets a new status on an application, stamps Last
// Updated and appends a dated note, in both the sheet and the DB.
func (t *TrackerService) UpdateStatus(applicationID, newStatus, notes string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.repo.FindByApplicationID(applicationID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("application %s not found", applicationID)
	}

	now := time.Now()
	stampedNote := ""
	if notes != "" {
		stampedNote = now.Format("2006-01-02") + ": " + notes
	}

	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return fmt.Errorf("read tracker rows: %w", err)
	}
	for i, row := range rows {
		if i == 0 || cellValue(row, 0) != applicationID {
			continue
		}
		rowNum := i + 1
		if err := t.file.SetCellValue(t.sheet, fmt.Sprintf("H%d", rowNum), newStatus); err != nil {
			return err
		}
		if err := t.file.SetCellValue(t.sheet, fmt.Sprintf("N%d", rowNum), now.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		if stampedNote != "" {
			existing := cellValue(row, 14)
			updated := strings.TrimSpace(existing + "\n" + stampedNote)
			if err := t.file.SetCellValue(t.sheet, fmt.Sprintf("O%d", rowNum), updated); err != nil {
				return err
			}
		}
		if err := t.applyStatusFill(rowNum, newStatus); err != nil {
			return err
		}
		if err := t.file.Save(); err != nil {
			return fmt.Errorf("save tracker workbook: %w", err)
		}
		break
	}

	if err := t.repo.UpdateStatus(record.ID, newStatus, stampedNote); err != nil {
		return fmt.Errorf("persist status update: %w", err)
	}

	log.Infof("Updated status for %s: %s", applicationID, newStatus)
	return nil
}

// CheckAlreadyApplied reports whether an application for this job was
// already submitted on the platform.
func (t *TrackerService) CheckAlreadyApplied(platform, company, jobTitle string) (bool, error) {
	return t.repo.AlreadyApplied(platform, company, jobTitle)
}

// ApplicationStats summarizes the tracked applications.
type ApplicationStats struct {
	Total     int
	Applied   int
	Interview int
	Rejected  int
	Pending   int
}

// Stats buckets every tracked application by its current status.
func (t *TrackerService) Stats() (*ApplicationStats, error) {
	records, err := t.repo.FindApplications()
	if err != nil {
		return nil, err
	}

	stats := &ApplicationStats{}
	for _, record := range records {
		stats.Total++
		status := strings.ToLower(record.Status)
		switch {
		case strings.Contains(status, "applied"):
			stats.Applied++
		case strings.Contains(status, "interview") || strings.Contains(status, "shortlist"):
			stats.Interview++
		case strings.Contains(status, "reject"):
			stats.Rejected++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// Close writes nothing; the workbook is saved after every mutation.
func (t *TrackerService) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// importExisting creates DB records for workbook rows the DB has never
// seen, so dedupe keeps working after the DB file is removed.
func (t *TrackerService) importExisting() (int, error) {
	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return 0, err
	}

	imported := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		applicationID := cellValue(row, 0)
		if applicationID == "" {
			continue
		}
		existing, err := t.repo.FindByApplicationID(applicationID)
		if err != nil {
			return imported, err
		}
		if existing != nil {
			continue
		}
		record := &model.JobRecord{
			ApplicationID:      applicationID,
			Platform:           cellValue(row, 2),
			Company:            cellValue(row, 3),
			JobTitle:           cellValue(row, 4),
			Location:           cellValue(row, 5),
			JobURL:             cellValue(row, 6),
			Status:             utils.DefaultIfEmpty(cellValue(row, 7), model.StatusApplied),
			ExperienceRequired: cellValue(row, 8),
			JobType:            cellValue(row, 9),
			SalaryRange:        cellValue(row, 10),
			KeySkills:          cellValue(row, 11),
			ApplicationMethod:  cellValue(row, 12),
			Notes:              cellValue(row, 14),
		}
		if err := t.repo.Save(record); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (t *TrackerService) applyStatusFill(rowNum int, status string) error {
	color := statusFillColor(status)
	if color == "" {
		return nil
	}
	style, err := t.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	cell := fmt.Sprintf("H%d", rowNum)
	return t.file.SetCellStyle(t.sheet, cell, cell, style)
}

func statusFillColor(status string) string {
	switch strings.ToLower(status) {
	case "applied":
		return "D4EDDA"
	case "rejected", "closed":
		return "F8D7DA"
	case "interview", "shortlisted":
		return "FFF3CD"
	}
	return ""
}

func cellValue(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
