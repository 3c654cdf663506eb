package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/repository/specification"
	"echo-assistant-be/internal/repository/unitofwork"
	"echo-assistant-be/pkg/hr"
)

const (
	maxHRDocumentBytes = 25 << 20
	hrUpdatedLayout    = "2006-01-02 15:04"
	unknownUploader    = "unknown"
)

var (
	ErrNotHRAdmin       = errors.New("only HR admins can manage documents")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrInvalidFileName  = errors.New("invalid file name")
	ErrDocumentTooLarge = errors.New("document too large")
)

type IHRDocumentService interface {
	IsAdmin(email string) bool
	AdminEmails() []string
	List(ctx context.Context) (*dto.HRDocumentListResponse, error)
	Upload(ctx context.Context, actor, fileName string, content io.Reader) (*dto.HRDocumentResponse, error)
	Delete(ctx context.Context, actor, fileName string) error
}

type hrDocumentService struct {
	dir         string
	adminEmails []string
	uowFactory  unitofwork.RepositoryFactory
	publisher   IPublisherService
	logger      logger.ILogger
}

func NewHRDocumentService(dir string, adminEmails []string, uowFactory unitofwork.RepositoryFactory, publisher IPublisherService, log logger.ILogger) IHRDocumentService {
	return &hrDocumentService{
		dir:         dir,
		adminEmails: adminEmails,
		uowFactory:  uowFactory,
		publisher:   publisher,
		logger:      log,
	}
}

func (s *hrDocumentService) IsAdmin(email string) bool {
	for _, admin := range s.adminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func (s *hrDocumentService) AdminEmails() []string {
	out := make([]string, len(s.adminEmails))
	copy(out, s.adminEmails)
	return out
}

func (s *hrDocumentService) List(ctx context.Context) (*dto.HRDocumentListResponse, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return &dto.HRDocumentListResponse{Files: []dto.HRDocumentResponse{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base dir: %w", err)
	}

	docs, err := s.uowFactory.NewUnitOfWork(ctx).HRDocumentRepository().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document metadata: %w", err)
	}
	uploaders := make(map[string]string, len(docs))
	for _, d := range docs {
		uploaders[d.FileName] = d.Uploader
	}

	type row struct {
		resp    dto.HRDocumentResponse
		modTime time.Time
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !hr.IsSupported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		uploader := uploaders[e.Name()]
		if uploader == "" {
			uploader = unknownUploader
		}
		rows = append(rows, row{
			resp: dto.HRDocumentResponse{
				Name:     e.Name(),
				Updated:  info.ModTime().Format(hrUpdatedLayout),
				SizeKB:   math.Round(float64(info.Size())/1024*100) / 100,
				Uploader: uploader,
			},
			modTime: info.ModTime(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].modTime.After(rows[j].modTime) })

	out := &dto.HRDocumentListResponse{Files: make([]dto.HRDocumentResponse, len(rows))}
	for i, r := range rows {
		out.Files[i] = r.resp
	}
	return out, nil
}

// cleanFileName strips any directory part and rejects names that would
// escape the knowledge base directory.
func cleanFileName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".") {
		return "", ErrInvalidFileName
	}
	return base, nil
}

func (s *hrDocumentService) Upload(ctx context.Context, actor, fileName string, content io.Reader) (*dto.HRDocumentResponse, error) {
	if !s.IsAdmin(actor) {
		return nil, ErrNotHRAdmin
	}
	name, err := cleanFileName(fileName)
	if err != nil {
		return nil, err
	}
	if !hr.IsSupported(name) {
		return nil, ErrUnsupportedFile
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge base dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.LimitReader(content, maxHRDocumentBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("write upload: %w", closeErr)
	}
	if written > maxHRDocumentBytes {
		return nil, ErrDocumentTooLarge
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now()
	err = s.uowFactory.NewUnitOfWork(ctx).HRDocumentRepository().Upsert(ctx, &entity.HRDocument{
		FileName:  name,
		Uploader:  actor,
		SizeBytes: written,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("save document metadata: %w", err)
	}

	s.logger.Info("HRDocuments", "Document uploaded", map[string]interface{}{"file": name, "uploader": actor, "bytes": written})
	s.enqueueReindex(ctx, dto.PublishReindexMessage{Trigger: "upload", FileName: name, Actor: actor})

	return &dto.HRDocumentResponse{
		Name:     name,
		Updated:  now.Format(hrUpdatedLayout),
		SizeKB:   math.Round(float64(written)/1024*100) / 100,
		Uploader: actor,
	}, nil
}

// Delete removes a document and its metadata. A file that is already gone is
// not an error.
func (s *hrDocumentService) Delete(ctx context.Context, actor, fileName string) error {
	if !s.IsAdmin(actor) {
		return ErrNotHRAdmin
	}
	name, err := cleanFileName(fileName)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove document: %w", err)
	}
	repo := s.uowFactory.NewUnitOfWork(ctx).HRDocumentRepository()
	existing, err := repo.FindOne(ctx, specification.ByFileName{FileName: name})
	if err != nil {
		return fmt.Errorf("load document metadata: %w", err)
	}
	if existing != nil {
		if err := repo.DeleteByFileName(ctx, name); err != nil {
			return fmt.Errorf("delete document metadata: %w", err)
		}
	}

	s.logger.Info("HRDocuments", "Document deleted", map[string]interface{}{"file": name, "actor": actor})
	s.enqueueReindex(ctx, dto.PublishReindexMessage{Trigger: "delete", FileName: name, Actor: actor})
	return nil
}

func (s *hrDocumentService) enqueueReindex(ctx context.Context, msg dto.PublishReindexMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReindex(ctx, msg); err != nil {
		s.logger.Error("HRDocuments", "Failed to enqueue reindex", map[string]interface{}{"error": err.Error()})
	}
}
