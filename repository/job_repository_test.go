package repository

import (
	"jobdroid/model"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) JobRecordRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.JobRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewJobRecordRepository(db)
}

func seedRecord(t *testing.T, repo JobRecordRepository, record *model.JobRecord) *model.JobRecord {
	t.Helper()
	if err := repo.Save(record); err != nil {
		t.Fatalf("save: %v", err)
	}
	return record
}

func TestFindByJobIsCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	seedRecord(t, repo, &model.JobRecord{
		Platform: "LinkedIn", Company: "Acme Corp", JobTitle: "Backend Intern",
		Status: model.StatusApplied,
	})

	got, err := repo.FindByJob("linkedin", "ACME CORP", "backend intern")
	if err != nil {
		t.Fatalf("FindByJob: %v", err)
	}
	if got == nil {
		t.Fatal("FindByJob returned nil for a case-variant match")
	}
	if got.Company != "Acme Corp" {
		t.Errorf("Company = %q, want original casing preserved", got.Company)
	}

	missing, err := repo.FindByJob("linkedin", "Acme Corp", "Frontend Intern")
	if err != nil {
		t.Fatalf("FindByJob: %v", err)
	}
	if missing != nil {
		t.Errorf("FindByJob = %+v, want nil for unknown title", missing)
	}
}

func TestAlreadyApplied(t *testing.T) {
	repo := newTestRepo(t)
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Naukri", Company: "Beta Ltd", JobTitle: "QA Intern",
		Status: model.StatusFound,
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Naukri", Company: "Gamma Inc", JobTitle: "Dev Intern",
		Status: model.StatusApplied, ApplicationID: "NAU-20250101T090000",
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Naukri", Company: "Delta LLC", JobTitle: "SRE Intern",
		Status: model.StatusRejected, ApplicationID: "NAU-20250101T091500",
	})

	tests := []struct {
		company string
		title   string
		want    bool
	}{
		{"Beta Ltd", "QA Intern", false},  // only seen, never applied
		{"Gamma Inc", "Dev Intern", true}, // applied
		{"Delta LLC", "SRE Intern", true}, // rejected still counts as applied
		{"Nobody", "Nothing", false},
	}
	for _, tt := range tests {
		got, err := repo.AlreadyApplied("Naukri", tt.company, tt.title)
		if err != nil {
			t.Fatalf("AlreadyApplied(%s): %v", tt.company, err)
		}
		if got != tt.want {
			t.Errorf("AlreadyApplied(%s, %s) = %v, want %v", tt.company, tt.title, got, tt.want)
		}
	}
}

func TestUpdateStatusAppendsNotes(t *testing.T) {
	repo := newTestRepo(t)
	record := seedRecord(t, repo, &model.JobRecord{
		Platform: "Indeed", Company: "Acme Corp", JobTitle: "Go Intern",
		Status: model.StatusApplied, Notes: "[2025-01-01] applied via Easily apply",
	})

	if err := repo.UpdateStatus(record.ID, model.StatusInterview, "[2025-01-05] interview invite"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := repo.FindByID(record.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.StatusInterview {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusInterview)
	}
	wantNotes := "[2025-01-01] applied via Easily apply\n[2025-01-05] interview invite"
	if got.Notes != wantNotes {
		t.Errorf("Notes = %q, want %q", got.Notes, wantNotes)
	}

	if err := repo.UpdateStatus(9999, model.StatusRejected, ""); err != gorm.ErrRecordNotFound {
		t.Errorf("UpdateStatus(unknown id) = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestFindOpenByCompany(t *testing.T) {
	repo := newTestRepo(t)
	seedRecord(t, repo, &model.JobRecord{
		Platform: "LinkedIn", Company: "Acme Corp", JobTitle: "Backend Intern",
		Status: model.StatusApplied,
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Indeed", Company: "Acme Corp", JobTitle: "Data Intern",
		Status: model.StatusRejected,
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Naukri", Company: "acme corp", JobTitle: "QA Intern",
		Status: model.StatusInterview,
	})

	open, err := repo.FindOpenByCompany("ACME CORP")
	if err != nil {
		t.Fatalf("FindOpenByCompany: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("len(open) = %d, want 2 (applied + interview, not rejected)", len(open))
	}
	for _, rec := range open {
		if rec.Status == model.StatusRejected {
			t.Errorf("rejected application returned as open: %+v", rec)
		}
		if !strings.EqualFold(rec.Company, "Acme Corp") {
			t.Errorf("unexpected company %q", rec.Company)
		}
	}
}

func TestExistsMatchesCaseInsensitively(t *testing.T) {
	repo := newTestRepo(t)
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Unstop", Company: "StartupX", JobTitle: "Product Intern",
		Status: model.StatusFound,
	})

	seen, err := repo.Exists("unstop", "STARTUPX", "product intern")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !seen {
		t.Error("Exists = false for a case-variant match")
	}

	seen, err = repo.Exists("Unstop", "StartupX", "Design Intern")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if seen {
		t.Error("Exists = true for an unknown title")
	}
}

func TestFindRecentByPlatformIsNewestFirstAndCapped(t *testing.T) {
	repo := newTestRepo(t)
	for _, title := range []string{"First", "Second", "Third"} {
		seedRecord(t, repo, &model.JobRecord{
			Platform: "LinkedIn", Company: "Acme Corp", JobTitle: title,
			Status: model.StatusFound,
		})
	}
	seedRecord(t, repo, &model.JobRecord{
		Platform: "Indeed", Company: "Acme Corp", JobTitle: "Elsewhere",
		Status: model.StatusFound,
	})

	recent, err := repo.FindRecentByPlatform("linkedin", 2)
	if err != nil {
		t.Fatalf("FindRecentByPlatform: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].JobTitle != "Third" || recent[1].JobTitle != "Second" {
		t.Errorf("recent = [%s, %s], want newest first", recent[0].JobTitle, recent[1].JobTitle)
	}
}

func TestFindApplicationsOnlyReturnsTrackedRows(t *testing.T) {
	repo := newTestRepo(t)
	seedRecord(t, repo, &model.JobRecord{
		Platform: "LinkedIn", Company: "A", JobTitle: "X", Status: model.StatusFound,
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "LinkedIn", Company: "B", JobTitle: "Y", Status: model.StatusFiltered,
	})
	seedRecord(t, repo, &model.JobRecord{
		Platform: "LinkedIn", Company: "C", JobTitle: "Z",
		Status: model.StatusApplied, ApplicationID: "LIN-20250101T100000",
	})

	apps, err := repo.FindApplications()
	if err != nil {
		t.Fatalf("FindApplications: %v", err)
	}
	if len(apps) != 1 || apps[0].Company != "C" {
		t.Errorf("FindApplications = %+v, want only the applied row", apps)
	}

	total, err := repo.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 3 {
		t.Errorf("Count = %d, want 3", total)
	}

	found, err := repo.CountByStatus(model.StatusFound)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if found != 1 {
		t.Errorf("CountByStatus(Found) = %d, want 1", found)
	}
}
