package main

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
)

// MockS3Client is an in-memory BucketClient used by the tests. It serves a
// fixed object list in pages and records every mutating call in order.
type MockS3Client struct {
	UploadRequests []MockRequest
	DeleteRequests []MockRequest
	ListRequests   int
	Events         []string

	PageSize     int
	ListErr      error
	UploadErrs   map[string]error
	DeleteErrs   map[string]error
	DeleteErr    error
	UploadHook   func(key string)
	InFlightMax  int
	inFlight     int
	DeletedEarly bool

	mockList []ObjectInfo
	lock     sync.Mutex
}

type MockRequest struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
}

func NewMockClient(mocked []ObjectInfo) *MockS3Client {
	sorted := make([]ObjectInfo, len(mocked))
	copy(sorted, mocked)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	return &MockS3Client{
		UploadRequests: make([]MockRequest, 0),
		DeleteRequests: make([]MockRequest, 0),
		UploadErrs:     make(map[string]error),
		DeleteErrs:     make(map[string]error),
		mockList:       sorted,
	}
}

func (s *MockS3Client) ListPage(ctx context.Context, bucket, prefix, token string) (ObjectPage, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ListRequests++
	if s.ListErr != nil {
		return ObjectPage{}, s.ListErr
	}

	matching := make([]ObjectInfo, 0)
	for _, object := range s.mockList {
		if len(object.Key) >= len(prefix) && object.Key[:len(prefix)] == prefix {
			matching = append(matching, object)
		}
	}

	start := 0
	if token != "" {
		for i, object := range matching {
			if object.Key == token {
				start = i
				break
			}
		}
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = len(matching)
	}
	end := start + pageSize
	if end > len(matching) {
		end = len(matching)
	}

	page := ObjectPage{Objects: matching[start:end]}
	if end < len(matching) {
		page.NextToken = matching[end].Key
	}
	return page, nil
}

func (s *MockS3Client) UploadFile(ctx context.Context, bucket, key string, file *os.File, contentType string) error {
	s.lock.Lock()
	s.inFlight++
	if s.inFlight > s.InFlightMax {
		s.InFlightMax = s.inFlight
	}
	s.lock.Unlock()

	if s.UploadHook != nil {
		s.UploadHook(key)
	}
	body, readErr := io.ReadAll(file)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.inFlight--
	s.Events = append(s.Events, "upload:"+key)
	if readErr != nil {
		return readErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if uploadErr, ok := s.UploadErrs[key]; ok {
		return uploadErr
	}
	s.UploadRequests = append(s.UploadRequests, MockRequest{Bucket: bucket, Key: key, Body: body, ContentType: contentType})
	return nil
}

func (s *MockS3Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteFailure, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.inFlight > 0 {
		s.DeletedEarly = true
	}
	s.Events = append(s.Events, "delete-batch")
	if s.DeleteErr != nil {
		return nil, s.DeleteErr
	}

	failures := make([]DeleteFailure, 0)
	for _, key := range keys {
		if delErr, ok := s.DeleteErrs[key]; ok {
			failures = append(failures, DeleteFailure{Key: key, Err: delErr})
			continue
		}
		s.DeleteRequests = append(s.DeleteRequests, MockRequest{Bucket: bucket, Key: key})
	}
	return failures, nil
}

func (s *MockS3Client) MutatingCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.Events)
}
