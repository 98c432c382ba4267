// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package xfer

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

// S3 downloads objects from one bucket. Source paths are object keys.
type S3 struct {
	Bucket     string
	Downloader s3manageriface.DownloaderAPI
}

var _ Transport = (*S3)(nil)

func newSession(region string) (*session.Session, error) {
	cfg := &aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}
	return session.NewSession(cfg)
}

// NewS3 creates an S3 transport with credentials from the environment.
func NewS3(region, bucket string) (*S3, error) {
	sess, err := newSession(region)
	if err != nil {
		return nil, fault.Wrap(err, fault.Validation, "aws session")
	}
	dl := s3manager.NewDownloader(sess)
	dl.Concurrency = 1
	return &S3{Bucket: bucket, Downloader: dl}, nil
}

func (s *S3) String() string { return "s3://" + s.Bucket }

func (s *S3) Copy(ctx context.Context, src, dest string, o CopyOpts) error {
	op := "copy " + src
	if o.Compact {
		return fault.New(fault.CapabilityUnsupported, op, "compact copy is not possible from s3")
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	f, err := os.Create(dest)
	if err != nil {
		return fault.Wrap(err, localKind(err), op)
	}
	defer f.Close()
	n, err := s.Downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(src, "/")),
	})
	if err != nil {
		return fault.Wrap(err, s3Kind(ctx, err), op)
	}
	log.Logf("downloaded %d bytes from %s/%s", n, s, src)
	return f.Close()
}

func s3Kind(ctx context.Context, err error) fault.Kind {
	if ctx.Err() == context.DeadlineExceeded {
		return fault.TransportTimeout
	}
	var ae awserr.Error
	if errors.As(err, &ae) {
		switch ae.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return fault.NotFound
		case "AccessDenied", "Forbidden":
			return fault.PermissionDenied
		case request.CanceledErrorCode:
			return fault.Interrupted
		}
	}
	return localKind(err)
}

// LogUploader sends the run log to a bucket after the run.
type LogUploader struct {
	Bucket   string
	Prefix   string
	Uploader s3manageriface.UploaderAPI
}

func NewLogUploader(region, bucket, prefix string) (*LogUploader, error) {
	sess, err := newSession(region)
	if err != nil {
		return nil, fault.Wrap(err, fault.Validation, "aws session")
	}
	up := s3manager.NewUploader(sess)
	up.Concurrency = 1
	return &LogUploader{Bucket: bucket, Prefix: prefix, Uploader: up}, nil
}

// Upload stores the file logFile under <Prefix>/<runID>.log.
func (u *LogUploader) Upload(ctx context.Context, logFile, runID string) error {
	f, err := os.Open(logFile)
	if err != nil {
		return err
	}
	defer f.Close()
	key := path.Join(u.Prefix, runID+".log")
	_, err = u.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		log.Logf("failed to upload %s: %s", logFile, err)
		return err
	}
	log.Logf("uploaded log to s3://%s/%s", u.Bucket, key)
	return nil
}
