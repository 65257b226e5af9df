package repository

import (
	"time"

	"gorm.io/gorm"

	"jobdroid/model"
	"jobdroid/utils"
)

// JobRecordRepository stores every posting the agents have seen.
type JobRecordRepository interface {
	FindByID(id int64) (*model.JobRecord, error)
	FindByApplicationID(applicationID string) (*model.JobRecord, error)
	FindByJob(platform, company, title string) (*model.JobRecord, error)
	FindApplications() ([]*model.JobRecord, error)
	FindOpenByCompany(company string) ([]*model.JobRecord, error)
	FindRecentByPlatform(platform string, limit int) ([]*model.JobRecord, error)
	Exists(platform, company, title string) (bool, error)
	AlreadyApplied(platform, company, title string) (bool, error)
	Save(record *model.JobRecord) error
	Update(record *model.JobRecord) error
	UpdateStatus(id int64, status, note string) error
	CountByStatus(status string) (int64, error)
	Count() (int64, error)
}

type jobRecordRepository struct {
	db *gorm.DB
}

func NewJobRecordRepository(db *gorm.DB) JobRecordRepository {
	return &jobRecordRepository{db: db}
}

func (r *jobRecordRepository) FindByID(id int64) (*model.JobRecord, error) {
	var record model.JobRecord
	result := r.db.First(&record, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

func (r *jobRecordRepository) FindByApplicationID(applicationID string) (*model.JobRecord, error) {
	var record model.JobRecord
	result := r.db.Where("application_id = ?", applicationID).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// FindByJob matches case-insensitively, same as the spreadsheet dedupe.
func (r *jobRecordRepository) FindByJob(platform, company, title string) (*model.JobRecord, error) {
	var record model.JobRecord
	result := r.db.
		Where("LOWER(platform) = LOWER(?)", platform).
		Where("LOWER(company) = LOWER(?)", company).
		Where("LOWER(job_title) = LOWER(?)", title).
		First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// FindApplications returns the rows that made it into the spreadsheet,
// i.e. everything with an application ID.
func (r *jobRecordRepository) FindApplications() ([]*model.JobRecord, error) {
	var records []*model.JobRecord
	result := r.db.Where("application_id <> ''").Order("id ASC").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// FindOpenByCompany returns applications at company that a follow-up
// email can still move (applied or interviewing).
func (r *jobRecordRepository) FindOpenByCompany(company string) ([]*model.JobRecord, error) {
	var records []*model.JobRecord
	result := r.db.
		Where("LOWER(company) = LOWER(?)", company).
		Where("status IN ?", model.OpenStatuses).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (r *jobRecordRepository) FindRecentByPlatform(platform string, limit int) ([]*model.JobRecord, error) {
	var records []*model.JobRecord
	result := r.db.
		Where("LOWER(platform) = LOWER(?)", platform).
		Order("id DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (r *jobRecordRepository) Exists(platform, company, title string) (bool, error) {
	record, err := r.FindByJob(platform, company, title)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// AlreadyApplied reports whether an application for this job was ever
// submitted, whatever the mail said about it since.
func (r *jobRecordRepository) AlreadyApplied(platform, company, title string) (bool, error) {
	record, err := r.FindByJob(platform, company, title)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return utils.ContainsFold(model.AppliedStatuses, record.Status), nil
}

func (r *jobRecordRepository) Save(record *model.JobRecord) error {
	result := r.db.Create(record)
	return result.Error
}

func (r *jobRecordRepository) Update(record *model.JobRecord) error {
	result := r.db.Save(record)
	return result.Error
}

// UpdateStatus sets the status and appends note (already date-stamped
// by the caller) to the record's notes.
func (r *jobRecordRepository) UpdateStatus(id int64, status, note string) error {
	record, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return gorm.ErrRecordNotFound
	}
	notes := record.Notes
	if note != "" {
		if notes != "" {
			notes = notes + "\n" + note
		} else {
			notes = note
		}
	}
	result := r.db.Model(&model.JobRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"notes":      notes,
			"updated_at": time.Now(),
		})
	return result.Error
}

func (r *jobRecordRepository) CountByStatus(status string) (int64, error) {
	var count int64
	result := r.db.Model(&model.JobRecord{}).Where("status = ?", status).Count(&count)
	return count, result.Error
}

func (r *jobRecordRepository) Count() (int64, error) {
	var count int64
	result := r.db.Model(&model.JobRecord{}).Count(&count)
	return count, result.Error
}
