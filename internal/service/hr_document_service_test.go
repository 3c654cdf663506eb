package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReindex struct {
	mu   sync.Mutex
	msgs []dto.PublishReindexMessage
}

func (r *recordingReindex) PublishReindex(ctx context.Context, msg dto.PublishReindexMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func newHRFixture(t *testing.T) (IHRDocumentService, string, *fakeFactory, *recordingReindex) {
	t.Helper()
	dir := t.TempDir()
	uow := newFakeFactory()
	pub := &recordingReindex{}
	svc := NewHRDocumentService(dir, []string{"HR@corp.com"}, uow, pub, logger.NewNopLogger())
	return svc, dir, uow, pub
}

func TestIsAdminIgnoresCase(t *testing.T) {
	svc, _, _, _ := newHRFixture(t)
	assert.True(t, svc.IsAdmin("hr@corp.com"))
	assert.False(t, svc.IsAdmin("alice@corp.com"))
	assert.Equal(t, []string{"HR@corp.com"}, svc.AdminEmails())
}

func TestUploadStoresFileAndQueuesReindex(t *testing.T) {
	svc, dir, uow, pub := newHRFixture(t)

	got, err := svc.Upload(context.Background(), "hr@corp.com", "Leave Policy.txt", strings.NewReader("Annual leave is 20 days."))
	require.NoError(t, err)
	assert.Equal(t, "Leave Policy.txt", got.Name)
	assert.Equal(t, "hr@corp.com", got.Uploader)

	data, err := os.ReadFile(filepath.Join(dir, "Leave Policy.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Annual leave is 20 days.", string(data))

	require.Contains(t, uow.docs.docs, "Leave Policy.txt")
	assert.EqualValues(t, 24, uow.docs.docs["Leave Policy.txt"].SizeBytes)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, dto.PublishReindexMessage{Trigger: "upload", FileName: "Leave Policy.txt", Actor: "hr@corp.com"}, pub.msgs[0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		file  string
		want  error
	}{
		{"not admin", "alice@corp.com", "a.txt", ErrNotHRAdmin},
		{"unsupported", "hr@corp.com", "run.exe", ErrUnsupportedFile},
		{"hidden", "hr@corp.com", ".env", ErrInvalidFileName},
		{"dot dot", "hr@corp.com", "..", ErrInvalidFileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, pub := newHRFixture(t)
			_, err := svc.Upload(context.Background(), tt.actor, tt.file, strings.NewReader("x"))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, pub.msgs)
		})
	}
}

func TestUploadStripsDirectories(t *testing.T) {
	svc, dir, _, _ := newHRFixture(t)

	got, err := svc.Upload(context.Background(), "hr@corp.com", "../../etc/handbook.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "handbook.txt", got.Name)
	assert.FileExists(t, filepath.Join(dir, "handbook.txt"))
}

func TestListNewestFirstWithUploader(t *testing.T) {
	svc, dir, uow, _ := newHRFixture(t)
	older := filepath.Join(dir, "old.txt")
	newer := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(older, make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip"), 0o644))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	uow.docs.docs["new.pdf"] = &entity.HRDocument{FileName: "new.pdf", Uploader: "hr@corp.com"}

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "new.pdf", got.Files[0].Name)
	assert.Equal(t, "hr@corp.com", got.Files[0].Uploader)
	assert.Equal(t, "old.txt", got.Files[1].Name)
	assert.Equal(t, "unknown", got.Files[1].Uploader)
	assert.Equal(t, 2.0, got.Files[1].SizeKB)
}

func TestListMissingDir(t *testing.T) {
	svc := NewHRDocumentService(filepath.Join(t.TempDir(), "absent"), nil, newFakeFactory(), nil, logger.NewNopLogger())
	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Files)
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	svc, dir, uow, pub := newHRFixture(t)
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	uow.docs.docs["gone.txt"] = &entity.HRDocument{FileName: "gone.txt"}

	require.NoError(t, svc.Delete(context.Background(), "hr@corp.com", "gone.txt"))
	assert.NoFileExists(t, path)
	assert.NotContains(t, uow.docs.docs, "gone.txt")

	require.NoError(t, svc.Delete(context.Background(), "hr@corp.com", "gone.txt"))
	assert.Len(t, pub.msgs, 2)

	assert.ErrorIs(t, svc.Delete(context.Background(), "alice@corp.com", "gone.txt"), ErrNotHRAdmin)
}
