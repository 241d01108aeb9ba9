package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"journal-desk/config"
)

const snapshotPrefix = "snapshots/"

// S3API ist die Teilmenge des S3-Clients, die das Archiv benötigt.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	}), nil
}

// Archive legt Roh-Exporte gzip-komprimiert in S3 ab und hält nur die neuesten.
type Archive struct {
	client  S3API
	bucket  string
	baseURL string
	keep    int
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchive erstellt ein Archiv auf dem konfigurierten Bucket.
func NewArchive(client S3API, cfg *config.Config, logger *zap.Logger) *Archive {
	return &Archive{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: strings.TrimRight(cfg.S3URL, "/"),
		keep:    cfg.ArchiveKeep,
		logger:  logger,
		now:     time.Now,
	}
}

// Upload komprimiert den Export und lädt ihn hoch. Gibt den Link zurück.
func (a *Archive) Upload(ctx context.Context, source string, data []byte) (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s-%s.csv.gz", snapshotPrefix, source, a.now().UTC().Format("2006-01-02T15-04-05Z"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("text/csv"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	link := fmt.Sprintf("%s/%s/%s", a.baseURL, a.bucket, key)
	a.logger.Info("Snapshot archiviert", zap.String("key", key), zap.Int("bytes", buf.Len()))
	return link, nil
}

// Rotate löscht alle bis auf die neuesten keep Snapshots. Gibt die Anzahl gelöschter zurück.
func (a *Archive) Rotate(ctx context.Context) (int, error) {
	if a.keep <= 0 {
		return 0, nil
	}
	output, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(snapshotPrefix),
	})
	if err != nil {
		return 0, err
	}
	if len(output.Contents) <= a.keep {
		a.logger.Debug("Keine Rotation nötig", zap.Int("snapshots", len(output.Contents)))
		return 0, nil
	}

	objects := output.Contents
	sort.SliceStable(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	deleted := 0
	for _, obj := range objects[a.keep:] {
		a.logger.Info("Lösche alten Snapshot", zap.String("key", aws.ToString(obj.Key)))
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			a.logger.Warn("Fehler beim Löschen", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Latest lädt den neuesten archivierten Export und entpackt ihn.
func (a *Archive) Latest(ctx context.Context) (string, []byte, error) {
	output, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(snapshotPrefix),
	})
	if err != nil {
		return "", nil, err
	}
	if len(output.Contents) == 0 {
		return "", nil, fmt.Errorf("no snapshots in bucket %s", a.bucket)
	}
	newest := output.Contents[0]
	for _, obj := range output.Contents[1:] {
		if aws.ToTime(obj.LastModified).After(aws.ToTime(newest.LastModified)) {
			newest = obj
		}
	}

	key := aws.ToString(newest.Key)
	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: newest.Key})
	if err != nil {
		return "", nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer obj.Body.Close()

	gz, err := gzip.NewReader(obj.Body)
	if err != nil {
		return "", nil, err
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	return key, data, err
}
