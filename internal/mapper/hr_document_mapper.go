package mapper

import (
	"echo-assistant-be/internal/entity"
	"echo-assistant-be/internal/model"
)

type HRDocumentMapper struct{}

func NewHRDocumentMapper() *HRDocumentMapper {
	return &HRDocumentMapper{}
}

func (m *HRDocumentMapper) ToEntity(d *model.HRDocument) *entity.HRDocument {
	if d == nil {
		return nil
	}
	return &entity.HRDocument{
		Id:        d.Id,
		FileName:  d.FileName,
		Uploader:  d.Uploader,
		SizeBytes: d.SizeBytes,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *HRDocumentMapper) ToModel(e *entity.HRDocument) *model.HRDocument {
	if e == nil {
		return nil
	}
	return &model.HRDocument{
		Id:        e.Id,
		FileName:  e.FileName,
		Uploader:  e.Uploader,
		SizeBytes: e.SizeBytes,
		UpdatedAt: e.UpdatedAt,
	}
}
