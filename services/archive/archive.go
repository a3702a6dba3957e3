package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolsync_go/models"
)

// Service ships old sync logs off to S3 and prunes them from the
// database, keeping the diagnostics table small.
type Service struct {
	db        *gorm.DB
	awsConfig aws.Config
}

// ArchivedEntry is the exported representation stored inside archives.
type ArchivedEntry struct {
	ID        uint           `json:"id"`
	Kind      string         `json:"kind"`
	Success   bool           `json:"success"`
	Outcome   string         `json:"outcome"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewService(db *gorm.DB) *Service {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; S3 operations will fail until configured")
	}
	return &Service{db: db, awsConfig: cfg}
}

// ArchiveOldLogs archives sync logs older than the given number of
// days to S3 and removes them from the database.
func (s *Service) ArchiveOldLogs(daysOld int) error {
	if daysOld < 7 {
		return fmt.Errorf("minimum archive age is 7 days for safety")
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	batchSize := 1000
	var entries []ArchivedEntry

	for offset := 0; ; offset += batchSize {
		var logs []models.SyncLog
		err := s.db.
			Where("created_at < ?", cutoffDate).
			Limit(batchSize).
			Offset(offset).
			Find(&logs).Error
		if err != nil {
			return fmt.Errorf("failed to fetch sync logs for archiving: %v", err)
		}
		if len(logs) == 0 {
			break
		}

		for _, l := range logs {
			entry := ArchivedEntry{
				ID:        l.ID,
				Kind:      l.Kind,
				Success:   l.Success,
				Outcome:   l.Outcome,
				Message:   l.Message,
				CreatedAt: l.CreatedAt,
			}
			if len(l.Details) > 0 {
				var details map[string]any
				if err := json.Unmarshal(l.Details, &details); err == nil {
					entry.Details = details
				}
			}
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		logrus.Info("No sync logs to archive")
		return nil
	}
	logrus.Infof("Archiving %d sync logs older than %s", len(entries), cutoffDate.Format("2006-01-02"))

	archiveFileName := fmt.Sprintf("sync_logs_%s.zip", cutoffDate.Format("2006-01-02"))
	zipBuffer, err := s.createZipArchive(entries, archiveFileName)
	if err != nil {
		return fmt.Errorf("failed to create ZIP archive: %v", err)
	}

	s3Key := fmt.Sprintf("sync/archived/%d/%02d/%s",
		cutoffDate.Year(),
		cutoffDate.Month(),
		archiveFileName)

	if err := s.uploadToS3(s3Key, zipBuffer); err != nil {
		return fmt.Errorf("failed to upload archive to S3: %v", err)
	}
	logrus.Infof("Successfully uploaded archive to S3: %s", s3Key)

	result := s.db.Where("created_at < ?", cutoffDate).Delete(&models.SyncLog{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete archived sync logs: %v", result.Error)
	}
	logrus.Infof("Deleted %d archived sync logs from database", result.RowsAffected)

	metadata := models.SyncArchive{
		FileName:    archiveFileName,
		S3Key:       s3Key,
		EndDate:     cutoffDate,
		RecordCount: len(entries),
		FileSize:    int64(zipBuffer.Len()),
		Status:      "completed",
	}
	if err := s.db.Create(&metadata).Error; err != nil {
		logrus.WithError(err).Error("Failed to save archive metadata")
	}
	return nil
}

// createZipArchive packs the entries as pretty JSON plus a CSV export.
func (s *Service) createZipArchive(entries []ArchivedEntry, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)

	logsFile, err := zipWriter.Create("sync_logs.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create logs file in ZIP: %v", err)
	}
	encoder := json.NewEncoder(logsFile)
	encoder.SetIndent("", "  ")
	logData := map[string]any{
		"export_date":    time.Now().UTC(),
		"record_count":   len(entries),
		"format_version": "1.0",
		"logs":           entries,
	}
	if err := encoder.Encode(logData); err != nil {
		return nil, fmt.Errorf("failed to encode logs to JSON: %v", err)
	}

	metadataFile, err := zipWriter.Create("metadata.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata file in ZIP: %v", err)
	}
	metadata := map[string]any{
		"file_name":    fileName,
		"created_at":   time.Now().UTC(),
		"record_count": len(entries),
		"date_range": map[string]any{
			"start": entries[0].CreatedAt,
			"end":   entries[len(entries)-1].CreatedAt,
		},
		"schema_version": "1.0",
		"description":    "Portal Sync Logs Archive",
	}
	if err := json.NewEncoder(metadataFile).Encode(metadata); err != nil {
		return nil, fmt.Errorf("failed to encode metadata to JSON: %v", err)
	}

	csvFile, err := zipWriter.Create("sync_logs.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file in ZIP: %v", err)
	}
	csvFile.Write([]byte("ID,Kind,Success,Outcome,Message,Created At\n"))
	for _, e := range entries {
		line := fmt.Sprintf("%d,%s,%t,%s,%q,%s\n",
			e.ID,
			e.Kind,
			e.Success,
			e.Outcome,
			e.Message,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		)
		csvFile.Write([]byte(line))
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP writer: %v", err)
	}
	return buf, nil
}

func (s *Service) uploadToS3(key string, data *bytes.Buffer) error {
	if s.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}

	client := s3.NewFromConfig(s.awsConfig)
	bucketName := os.Getenv("S3_BUCKET_NAME")

	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucketName,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}

func (s *Service) downloadFromS3(key string) (io.ReadCloser, error) {
	if s.awsConfig.Region == "" {
		return nil, fmt.Errorf("AWS not configured")
	}

	client := s3.NewFromConfig(s.awsConfig)
	bucketName := os.Getenv("S3_BUCKET_NAME")

	result, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &bucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// GetArchives lists archive metadata, newest first.
func (s *Service) GetArchives() ([]models.SyncArchive, error) {
	var archives []models.SyncArchive
	if err := s.db.Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve archives: %v", err)
	}
	return archives, nil
}

// DownloadArchive streams one archive back from S3.
func (s *Service) DownloadArchive(archiveID uint) (io.ReadCloser, string, error) {
	var arch models.SyncArchive
	if err := s.db.First(&arch, archiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", fmt.Errorf("archive not found")
		}
		return nil, "", fmt.Errorf("failed to retrieve archive: %v", err)
	}

	reader, err := s.downloadFromS3(arch.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive from S3: %v", err)
	}
	return reader, arch.FileName, nil
}

// StartMaintenanceScheduler archives old sync logs once at startup and
// then every 24 hours.
func (s *Service) StartMaintenanceScheduler() {
	go func() {
		if err := s.ArchiveOldLogs(30); err != nil {
			logrus.WithError(err).Warn("initial ArchiveOldLogs failed")
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := s.ArchiveOldLogs(30); err != nil {
				logrus.WithError(err).Warn("periodic ArchiveOldLogs failed")
			}
		}
	}()
}
