package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"schoolsync_go/config"
)

// StorageService keeps chat documents and portal attachments in S3.
type StorageService struct {
	s3Client *s3.S3
	bucket   string
	region   string
}

func NewStorageService() (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AppConfig.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		bucket:   config.AppConfig.S3BucketName,
		region:   config.AppConfig.AWSRegion,
	}, nil
}

// UploadLocalFile uploads a file from disk and returns its public URL.
// Used for documents the messenger SDK has already downloaded locally.
func (s *StorageService) UploadLocalFile(localPath, fileName string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	return s.UploadBytes(data, "chats/files", fileName)
}

// UploadBytes uploads raw content under a dated, uuid-prefixed key and
// returns the public URL.
func (s *StorageService) UploadBytes(data []byte, folder, fileName string) (string, error) {
	ext := s.getFileExtension(fileName)

	now := time.Now()
	randomID := uuid.New().String()[:16]
	key := fmt.Sprintf("%s/%d/%02d/%s", folder, now.Year(), now.Month(), randomID)
	if ext != "" {
		key += "." + ext
	}

	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(s.getContentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// DeleteFile deletes a previously uploaded file by its public URL.
func (s *StorageService) DeleteFile(fileURL string) error {
	key := s.extractKeyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("invalid file URL")
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *StorageService) getFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

func (s *StorageService) getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xls":
		return "application/vnd.ms-excel"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func (s *StorageService) extractKeyFromURL(url string) string {
	parts := strings.Split(url, ".amazonaws.com/")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
