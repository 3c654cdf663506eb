package hr

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"echo-assistant-be/internal/pkg/logger"
)

// SupportedExtensions are the knowledge-base formats accepted on upload.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Document is one loaded knowledge-base file.
type Document struct {
	Name string
	Text string
}

// PageReader extracts the text layer of a PDF page by page.
type PageReader interface {
	PageTexts(pdf []byte) ([]string, error)
}

type Loader struct {
	pdf    PageReader
	logger logger.ILogger
}

func NewLoader(pdf PageReader, log logger.ILogger) *Loader {
	return &Loader{pdf: pdf, logger: log}
}

// LoadDir reads every supported file in dir, sorted by name. Files that fail
// to load are logged and skipped. A missing directory yields no documents.
func (l *Loader) LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		l.logger.Warn("HRLoader", "Knowledge base directory does not exist", map[string]interface{}{"dir": dir})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !IsSupported(name) {
			l.logger.Warn("HRLoader", "Skipped unsupported file", map[string]interface{}{"file": name})
			continue
		}
		text, err := l.load(filepath.Join(dir, name))
		if err != nil {
			l.logger.Error("HRLoader", "Failed to load file", map[string]interface{}{"file": name, "error": err.Error()})
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Name: name, Text: text})
	}
	return docs, nil
}

func (l *Loader) load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := l.pdf.PageTexts(data)
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n"), nil
	case ".docx":
		return docxText(data)
	default:
		return string(data), nil
	}
}

// docxText pulls paragraph text out of word/document.xml.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordXMLText(rc)
	}
	return "", fmt.Errorf("docx has no word/document.xml")
}

func wordXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
