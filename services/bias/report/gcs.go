// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSDestination names the bucket and object a report should be uploaded
// to, plus optional explicit credentials.
type GCSDestination struct {
	Bucket          string
	Object          string
	CredentialsFile string
}

// WriteGCS uploads doc as a JSON object to dest.
func WriteGCS(ctx context.Context, dest GCSDestination, doc Document) error {
	var opts []option.ClientOption
	if dest.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(dest.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("report.WriteGCS: creating storage client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(dest.Bucket).Object(dest.Object).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := WriteTo(ctx, w, doc); err != nil {
		return fmt.Errorf("report.WriteGCS: uploading gs://%s/%s: %w", dest.Bucket, dest.Object, err)
	}
	return nil
}
