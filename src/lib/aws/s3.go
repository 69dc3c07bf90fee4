package aws

import (
	"context"
	"log"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func GetS3Client() *s3.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil
	}
	svc := s3.NewFromConfig(cfg)
	return svc
}

// S3MirrorFile copies a locally stored upload into the uploads bucket.
// A missing bucket configuration disables the mirror; failures are logged
// and the local copy stays authoritative.
func S3MirrorFile(ctx context.Context, localPath string, key string, contentType string) {
	bucket := os.Getenv("S3_UPLOADS_BUCKET")
	if bucket == "" {
		return
	}
	client := GetS3Client()
	if client == nil {
		return
	}
	file, err := os.Open(localPath)
	if err != nil {
		log.Printf("[S3] Could not open %s: %s\n", localPath, err.Error())
		return
	}
	defer file.Close()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("[S3] Error uploading %s: %s\n", path.Base(localPath), err.Error())
		return
	}
	log.Printf("[S3] Mirrored %s to s3://%s/%s\n", path.Base(localPath), bucket, key)
}
