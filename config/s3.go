package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	s3Once   sync.Once
	s3Config *S3Config
)

type S3Config struct {
	AccessKey  string
	SecretKey  string
	Region     string
	Endpoint   string
	BucketName string
}

func GetS3Config() *S3Config {
	s3Once.Do(func() {
		_ = godotenv.Load(".env")

		s3Config = &S3Config{
			AccessKey:  os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:     os.Getenv("AWS_REGION"),
			Endpoint:   os.Getenv("AWS_ENDPOINT"),
			BucketName: os.Getenv("S3_BUCKET_NAME"),
		}
	})
	return s3Config
}
