// Package ingest discovers claim documents on disk and registers them
// against a claim.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/ocr"
	"github.com/sells-group/claims-idp/internal/store"
)

// File is a discovered document on disk.
type File struct {
	Path     string
	Name     string
	FileType string
}

// Discover walks folder recursively and lists the supported documents,
// sorted by path for deterministic processing order. File names are kept
// relative to the folder so nested documents stay distinguishable. A missing
// or empty folder yields no files and no error; a claim can be processed
// without documents.
func Discover(folder string) ([]File, error) {
	if folder == "" {
		return nil, nil
	}
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		return nil, nil
	}

	var files []File
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !ocr.SupportedExtensions[ext] {
			zap.L().Debug("skipping unsupported file",
				zap.String("file", d.Name()))
			return nil
		}
		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return err
		}
		files = append(files, File{
			Path:     path,
			Name:     rel,
			FileType: strings.TrimPrefix(ext, "."),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// RegisteredDoc is a discovered file after registration.
type RegisteredDoc struct {
	DocumentID string
	File       File
}

// Registrar persists discovered documents and their audit entries.
type Registrar struct {
	store store.Store
}

// NewRegistrar creates a Registrar on the given store.
func NewRegistrar(st store.Store) *Registrar {
	return &Registrar{store: st}
}

// RegisterAll upserts each file as a document of the claim and appends a
// registration audit entry. Re-registering the same file name reuses the
// existing document row.
func (r *Registrar) RegisterAll(ctx context.Context, claimID string, files []File) ([]RegisteredDoc, error) {
	docs := make([]RegisteredDoc, 0, len(files))
	for _, f := range files {
		docID, err := r.store.RegisterDocument(ctx, claimID, f.Name, f.FileType)
		if err != nil {
			return nil, err
		}

		details := fmt.Sprintf("registered %s (%s)", f.Name, f.FileType)
		if err := r.store.AppendAudit(ctx, model.AuditDocumentRegistered, details, &claimID, &docID); err != nil {
			return nil, err
		}

		zap.L().Info("document registered",
			zap.String("claim_id", claimID),
			zap.String("document_id", docID),
			zap.String("file", f.Name))

		docs = append(docs, RegisteredDoc{DocumentID: docID, File: f})
	}
	return docs, nil
}
