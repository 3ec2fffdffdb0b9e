package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ridezon-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignTTL = 5 * time.Minute

// AvatarService issues pre-signed S3 PUT URLs for avatar uploads and
// records the final URL on the user profile
type AvatarService struct {
	users    repository.UserStore
	s3Client *s3.Client
	bucket   string
	region   string
}

// NewAvatarService creates a new avatar service
func NewAvatarService(users repository.UserStore, region, bucket, accessKey, secretKey, endpoint string) (*AvatarService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &AvatarService{
		users:    users,
		s3Client: s3Client,
		bucket:   bucket,
		region:   region,
	}, nil
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	AvatarURL string `json:"avatarUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// GetPreSignedURL generates a pre-signed URL for uploading an avatar
func (s *AvatarService) GetPreSignedURL(ctx context.Context, userID, contentType string) (*UploadResponse, error) {
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("content type must be an image: %w", ErrValidation)
	}

	key := fmt.Sprintf("avatars/%s/%s", userID, uuid.New().String())

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignTTL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		AvatarURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}

// SetAvatar records the avatar URL after the client finishes the upload
func (s *AvatarService) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	if strings.TrimSpace(avatarURL) == "" {
		return fmt.Errorf("avatar url is required: %w", ErrValidation)
	}
	return s.users.UpdateAvatar(ctx, userID, avatarURL)
}
