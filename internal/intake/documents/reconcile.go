package documents

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/storage"
	"github.com/planease/engine/pkg/logger"
	"github.com/planease/engine/pkg/utils"
)

// Relocator is satisfied by *storage.Relocator.
type Relocator interface {
	Relocate(ctx context.Context, src, dst storage.Locator) (storage.Locator, error)
}

// Options control where relocated uploads land.
type Options struct {
	Bucket          string
	PermanentPrefix string
	Concurrency     int
}

// Reconciler produces the final document list for a project.
type Reconciler struct {
	relocator Relocator
	opts      Options
	newID     func() string
}

func NewReconciler(relocator Relocator, opts Options) *Reconciler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Reconciler{relocator: relocator, opts: opts, newID: uuid.NewString}
}

// Input groups the candidates by source. The slice order is preserved.
type Input struct {
	ProjectID string
	Council   []Candidate
	Parser    []Candidate
	Uploads   []Candidate
}

// Reconcile de-duplicates the candidates, first occurrence winning in the
// order council, parser, uploads, then relocates every surviving upload to
// its permanent key. Any relocation failure aborts the whole call and no
// document is returned. CreatedAt is left for the caller to assign.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) ([]models.Document, error) {
	all := make([]Candidate, 0, len(in.Council)+len(in.Parser)+len(in.Uploads))
	all = append(all, in.Council...)
	all = append(all, in.Parser...)
	all = append(all, in.Uploads...)

	kept := Dedup(all)
	if dropped := len(all) - len(kept); dropped > 0 {
		logger.FromContext(ctx).Debug("dropped duplicate documents",
			zap.String("project_id", in.ProjectID),
			zap.Int("count", dropped),
		)
	}

	docs := make([]models.Document, len(kept))
	for i, c := range kept {
		docs[i] = models.Document{
			ProjectID:     in.ProjectID,
			DocumentID:    r.newID(),
			Source:        c.Source,
			ExternalID:    c.ExternalID,
			Title:         c.Title,
			Category:      c.Category,
			DocumentDate:  c.DocumentDate,
			FileName:      c.FileName,
			FileExtension: c.FileExtension,
			FileSize:      c.FileSize,
			ContentType:   c.ContentType,
			Revision:      c.Revision,
			DownloadURL:   c.DownloadURL,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, c := range kept {
		if c.Staged == nil {
			continue
		}
		g.Go(func() error {
			dst := storage.Locator{
				Bucket: r.opts.Bucket,
				Key:    r.PermanentKey(in.ProjectID, docs[i].DocumentID, c.FileName),
			}
			loc, err := r.relocator.Relocate(gctx, *c.Staged, dst)
			if err != nil {
				return fmt.Errorf("relocate %s: %w", c.Staged, err)
			}
			docs[i].Bucket = loc.Bucket
			docs[i].StorageKey = loc.Key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// PermanentKey is projects/{projectId}/documents/{documentId}/{fileName}
// under the configured prefix.
func (r *Reconciler) PermanentKey(projectID, documentID, fileName string) string {
	prefix := strings.TrimSuffix(r.opts.PermanentPrefix, "/")
	return path.Join(prefix, projectID, "documents", documentID, SafeFileName(fileName))
}

// Dedup keeps the first candidate of each composite key.
func Dedup(in []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		k := dedupKey(c)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Uploads are keyed by their staging key; the permanent key does not exist
// yet and would make every upload unique.
func dedupKey(c Candidate) string {
	var ext, key string
	if c.ExternalID != nil {
		ext = *c.ExternalID
	}
	if c.Staged != nil {
		key = c.Staged.Key
	}
	return utils.CompositeKey(c.Source, ext, key, c.DownloadURL, c.Title, c.Category)
}
