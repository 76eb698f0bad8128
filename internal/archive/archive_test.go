package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dukerupert/chorewheel/internal/model"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeHistory struct {
	tokens      []model.TokenEntry
	completions []model.TaskCompletion
	activity    []model.ActivityEntry
}

func (f fakeHistory) List(context.Context, int64) ([]model.TokenEntry, error) {
	return f.tokens, nil
}

func (f fakeHistory) ListCompletions(context.Context, int64) ([]model.TaskCompletion, error) {
	return f.completions, nil
}

type fakeActivity []model.ActivityEntry

func (f fakeActivity) List(context.Context, int64, int, int) ([]model.ActivityEntry, error) {
	return f, nil
}

func newTestExporter(client s3Client, h fakeHistory) *Exporter {
	e := NewExporter(S3Config{}, h, h, fakeActivity(h.activity), slog.Default())
	e.client = client
	e.bucket = "test"
	e.now = func() time.Time { return time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC) }
	return e
}

func TestExportDisabled(t *testing.T) {
	e := NewExporter(S3Config{Bucket: "b"}, fakeHistory{}, fakeHistory{}, fakeActivity(nil), slog.Default())
	if e.Enabled() {
		t.Fatal("exporter without credentials should be disabled")
	}
	if _, err := e.Export(context.Background(), 1); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	enabled := NewExporter(S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}, fakeHistory{}, fakeHistory{}, fakeActivity(nil), slog.Default())
	if !enabled.Enabled() {
		t.Error("exporter with credentials should be enabled")
	}
}

func TestExportRoundTrip(t *testing.T) {
	client := newMockS3()
	h := fakeHistory{
		tokens:      []model.TokenEntry{{ID: 1, MemberID: 2, Amount: 5, Reason: "Completed: Dishes"}},
		completions: []model.TaskCompletion{{ID: 3, TaskID: 4, TaskTitle: "Dishes", CompletedBy: 2, TokensAwarded: 5}},
		activity:    []model.ActivityEntry{{ID: 6, Action: model.ActionTaskCompleted, EntityType: model.EntityTask, EntityID: 4}},
	}
	e := newTestExporter(client, h)

	res, err := e.Export(context.Background(), 7)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(res.Key, "households/7/history-20260701T083000Z-") || !strings.HasSuffix(res.Key, ".json.gz") {
		t.Errorf("key = %q", res.Key)
	}
	if res.SizeBytes != len(client.objects[res.Key]) {
		t.Errorf("size = %d, want %d", res.SizeBytes, len(client.objects[res.Key]))
	}

	snap, err := e.Fetch(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.HouseholdID != 7 || len(snap.TokenEntries) != 1 || len(snap.Completions) != 1 || len(snap.Activity) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Completions[0].TaskTitle != "Dishes" {
		t.Errorf("completion title = %q, want Dishes", snap.Completions[0].TaskTitle)
	}
}

func TestExportUploadError(t *testing.T) {
	client := newMockS3()
	client.putErr = errors.New("bucket unreachable")
	e := newTestExporter(client, fakeHistory{})

	if _, err := e.Export(context.Background(), 1); err == nil || !strings.Contains(err.Error(), "upload archive") {
		t.Errorf("err = %v, want upload archive error", err)
	}
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := Key(3, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), id)
	want := "households/3/history-20260102T030405Z-11111111-2222-3333-4444-555555555555.json.gz"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}
