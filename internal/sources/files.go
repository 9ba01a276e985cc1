package sources

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"news-archive-rag/internal/crawler"
	"news-archive-rag/internal/logger"
	"news-archive-rag/services"
	"news-archive-rag/utils"
)

// FileSource walks a content directory and emits one document per
// supported file. Plain text and markdown are read as-is, HTML is
// reduced to its article text, PDFs are extracted page by page. The
// file's slug-derived title is attached as a tag so searches can show
// where a hit came from.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Stream walks the directory tree and sends documents to out. The
// channel is closed when the walk finishes. Unreadable files are
// logged and skipped so one broken file cannot abort a run.
func (s *FileSource) Stream(ctx context.Context, out chan<- services.Document) error {
	defer close(out)

	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := extractFile(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", err)
			return nil
		}
		if strings.TrimSpace(content) == "" {
			return nil
		}

		doc := services.Document{
			Content: content,
			Tags:    []string{utils.SlugToTitle(path)},
		}
		select {
		case out <- doc:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func extractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".html", ".htm":
		return extractHTML(path)
	case ".pdf":
		return extractPDF(path)
	default:
		return "", nil
	}
}

func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return crawler.ExtractArticleText(doc.Selection), nil
}

func extractPDF(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract pdf page", "path", path, "page", i, "error", err)
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return extracted, nil
}
