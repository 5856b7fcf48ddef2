package testutil

import (
	"fmt"
	"mime/multipart"
	"strings"
)

// FakeS3 records uploads in memory. It satisfies storage.AwsS3.
type FakeS3 struct {
	Uploaded map[string][]byte
	Deleted  []string
}

func NewFakeS3() *FakeS3 {
	return &FakeS3{Uploaded: map[string][]byte{}}
}

func allowed(contentType string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(a, contentType) {
			return true
		}
	}
	return false
}

func (f *FakeS3) UploadFile(fileName string, file *multipart.FileHeader, folder string, allow ...string) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if !allowed(contentType, allow) {
		return "", fmt.Errorf("content type %s is not allowed", contentType)
	}
	objectKey := fmt.Sprintf("%s/%s", folder, fileName)
	f.Uploaded[objectKey] = nil
	return objectKey, nil
}

func (f *FakeS3) UploadBytes(fileName string, data []byte, contentType string, folder string, allow ...string) (string, error) {
	if !allowed(contentType, allow) {
		return "", fmt.Errorf("content type %s is not allowed", contentType)
	}
	objectKey := fmt.Sprintf("%s/%s", folder, fileName)
	f.Uploaded[objectKey] = data
	return objectKey, nil
}

func (f *FakeS3) UpdateFile(objectKey string, file *multipart.FileHeader, allow ...string) (string, error) {
	f.Uploaded[objectKey] = nil
	return objectKey, nil
}

func (f *FakeS3) DeleteFile(objectKey string) error {
	delete(f.Uploaded, objectKey)
	f.Deleted = append(f.Deleted, objectKey)
	return nil
}

func (f *FakeS3) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}
