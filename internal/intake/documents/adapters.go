// Package documents merges council, parser and uploaded documents into one
// de-duplicated register, relocating uploaded files out of staging.
package documents

import (
	"fmt"
	"path"
	"strings"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/storage"
)

// Candidate is a normalised document before identifiers are minted. Staged
// is set only for uploads that still have to be relocated.
type Candidate struct {
	Source        string
	ExternalID    *string
	Title         string
	Category      string
	DocumentDate  string
	FileName      string
	FileExtension string
	FileSize      string
	ContentType   string
	Revision      string
	DownloadURL   string
	Staged        *storage.Locator
}

// StagingRule recognises staging-area uploads by path convention.
type StagingRule struct {
	Bucket string
	Prefix string
}

// Matches reports whether bucket/key lies in the staging area. An empty
// bucket means the configured one.
func (r StagingRule) Matches(bucket, key string) bool {
	if key == "" || !strings.HasPrefix(key, r.Prefix) || key == r.Prefix {
		return false
	}
	return bucket == "" || bucket == r.Bucket
}

// FromCouncilLookup adapts the documents scraped from the council portal.
func FromCouncilLookup(l *models.CouncilLookup) []Candidate {
	if l == nil {
		return nil
	}
	var out []Candidate
	for _, d := range l.ProjectMetadata.Raw.Documents {
		name := string(d.FileName)
		ext := strings.ToLower(strings.TrimPrefix(string(d.FileExtension), "."))
		if ext == "" {
			ext = extension(name)
		}
		out = append(out, Candidate{
			Source:        models.DocumentSourceCouncil,
			ExternalID:    optional(string(d.DocumentID)),
			Title:         name,
			Category:      orDefault(string(d.Category), models.CategoryCouncilDocument),
			DocumentDate:  string(d.FileDate),
			FileName:      name,
			FileExtension: ext,
			FileSize:      string(d.FileSize),
			DownloadURL:   string(d.DownloadURL),
		})
	}
	return out
}

// FromParsed adapts the plans and reports referenced inside the conditions.
// Their external id is the plan or reference number, not a portal id.
func FromParsed(p *models.ParsedConditions) []Candidate {
	if p == nil {
		return nil
	}
	var out []Candidate
	for _, d := range p.Documents {
		out = append(out, Candidate{
			Source:       models.DocumentSourceParser,
			ExternalID:   optional(d.Reference()),
			Title:        string(d.Title),
			Category:     models.CategoryReferencedDocument,
			DocumentDate: d.DocumentDate(),
			Revision:     string(d.Revision),
		})
	}
	return out
}

// FromUploads adapts the documents step plus the conditions package file.
// Entries outside the staging area are dropped and reported as warnings.
func FromUploads(step *models.DocumentsStep, pkg *models.CouncilConditionsStep, rule StagingRule) ([]Candidate, []string) {
	var out []Candidate
	var warnings []string

	if step != nil {
		for i, u := range step.Uploads {
			key, bucket := string(u.Key), string(u.Bucket)
			if !rule.Matches(bucket, key) {
				warnings = append(warnings, fmt.Sprintf("upload %d (%q) is not in the staging area; skipped", i+1, key))
				continue
			}
			name := orDefault(string(u.FileName), path.Base(key))
			out = append(out, uploadCandidate(rule, key, name,
				orDefault(string(u.Category), models.CategoryUploadedDocument),
				string(u.DocumentDate), string(u.ContentType)))
		}
	}

	if pkg != nil && pkg.FileKey != "" {
		key := string(pkg.FileKey)
		if rule.Matches("", key) {
			name := orDefault(string(pkg.FileName), path.Base(key))
			out = append(out, uploadCandidate(rule, key, name, models.CategoryConditionsPackage, "", ""))
		} else {
			warnings = append(warnings, fmt.Sprintf("conditions package %q is not in the staging area; skipped", key))
		}
	}
	return out, warnings
}

func uploadCandidate(rule StagingRule, key, name, category, date, contentType string) Candidate {
	name = SafeFileName(name)
	return Candidate{
		Source:        models.DocumentSourceUserUpload,
		Title:         name,
		Category:      category,
		DocumentDate:  date,
		FileName:      name,
		FileExtension: extension(name),
		ContentType:   contentType,
		Staged:        &storage.Locator{Bucket: rule.Bucket, Key: key},
	}
}

// SafeFileName keeps the last path segment and drops characters that would
// change the key's structure.
func SafeFileName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
