package main

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// normalizePrefix turns a user supplied prefix into the exact string every
// object key under the sync root starts with: no leading slash and, unless
// empty, exactly one trailing slash.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}

// NormalizeETag strips the quoting S3 wraps around ETags and lowercases the
// digest. Multipart ETags ("<md5>-<parts>") and anything else that is not a
// plain MD5 collapse to "", which never equals a local hash.
func NormalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.ReplaceAll(etag, "&quot;", "")
	etag = strings.Trim(etag, `"`)
	etag = strings.ToLower(etag)

	if len(etag) != 32 {
		return ""
	}
	for _, c := range etag {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ""
		}
	}
	return etag
}

type listFunc func(ctx context.Context, client BucketClient, bucket, prefix string, excludes *ExcludeList) (Inventory, error)

// ListRemote pages through every object under prefix and returns them keyed by
// their path relative to the prefix. Any listing error aborts with a
// *RemoteListError; a partial inventory is never returned.
func ListRemote(ctx context.Context, client BucketClient, bucket, prefix string, excludes *ExcludeList) (Inventory, error) {
	prefix = normalizePrefix(prefix)
	inventory := make(Inventory)

	token := ""
	pages := 0
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &RemoteListError{Bucket: bucket, Prefix: prefix, Err: ctxErr}
		}

		page, pageErr := client.ListPage(ctx, bucket, prefix, token)
		if pageErr != nil {
			log.Warn(fmt.Sprintf("listBucket err: %s", pageErr))
			return nil, &RemoteListError{Bucket: bucket, Prefix: prefix, Err: classifyRemoteError(pageErr)}
		}
		pages++

		for _, object := range page.Objects {
			if !strings.HasPrefix(object.Key, prefix) {
				continue
			}
			rel := strings.TrimPrefix(object.Key, prefix)
			if rel == "" || strings.HasSuffix(rel, "/") {
				log.Debug(fmt.Sprintf("%s is a folder marker. skipping...", object.Key))
				continue
			}
			relPath, pathErr := NewRelPath(rel)
			if pathErr != nil {
				log.Warn(fmt.Sprintf("Ignoring object %s: %s", object.Key, pathErr))
				continue
			}
			if excludes.ExcludesFile(rel) {
				continue
			}

			inventory[relPath] = FileRecord{
				Path:        relPath,
				Size:        object.Size,
				ContentHash: NormalizeETag(object.ETag),
			}
		}

		if page.NextToken == "" {
			break
		}
		if page.NextToken == token {
			return nil, &RemoteListError{Bucket: bucket, Prefix: prefix, Err: fmt.Errorf("continuation token %q repeated", token)}
		}
		token = page.NextToken
	}

	log.Debug(fmt.Sprintf("Listed %d objects under s3://%s/%s in %d pages", len(inventory), bucket, prefix, pages))
	return inventory, nil
}
