package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeObjects is an in-process stand-in for a bucket. List pages hold at most pageSize objects.
type fakeObjects struct {
	objects  map[string][]byte
	pageSize int
	putErr   error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, pageSize: 2}
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + f.pageSize
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	modified := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(modified),
		})
	}
	return out, nil
}

func TestS3_PutGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	s := &S3{client: fake, bucket: "records"}

	snap, err := s.Put(ctx, "snapshots/a.csv", []byte("ID\n"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if snap.Size != 3 || snap.Hash == "" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if _, err := s.Put(ctx, "snapshots/a.csv", []byte("x")); !errors.Is(err, ErrSnapshotExists) {
		t.Errorf("expected ErrSnapshotExists, got %v", err)
	}
	data, err := s.Get(ctx, "snapshots/a.csv")
	if err != nil || string(data) != "ID\n" {
		t.Errorf("Get = %q, %v", data, err)
	}
	if _, err := s.Get(ctx, "snapshots/missing.csv"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "elsewhere.csv", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestS3_PutError(t *testing.T) {
	fake := newFakeObjects()
	fake.putErr = errors.New("access denied")
	s := &S3{client: fake, bucket: "records"}
	_, err := s.Put(context.Background(), "snapshots/a.csv", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected wrapped put error, got %v", err)
	}
}

func TestS3_ListPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	for _, k := range []string{"snapshots/c.csv", "snapshots/a.csv", "snapshots/b.csv", "other/z.csv", "snapshots/d.csv", "snapshots/e.csv"} {
		fake.objects[k] = []byte(k)
	}
	s := &S3{client: fake, bucket: "records"}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var keys []string
	for _, snap := range list {
		keys = append(keys, snap.Key)
	}
	want := "snapshots/a.csv,snapshots/b.csv,snapshots/c.csv,snapshots/d.csv,snapshots/e.csv"
	if strings.Join(keys, ",") != want {
		t.Errorf("List keys = %v", keys)
	}
	if list[0].CreatedAt.IsZero() || list[0].Size != int64(len("snapshots/a.csv")) {
		t.Errorf("unexpected metadata %+v", list[0])
	}
}
