package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/storage"
	"github.com/planease/engine/pkg/logger"
)

const bucket = "app-planease-files"

var rule = StagingRule{Bucket: bucket, Prefix: "intake/"}

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func newTestReconciler(store storage.ObjectStore) *Reconciler {
	r := NewReconciler(storage.NewRelocator(store), Options{Bucket: bucket, PermanentPrefix: "projects/", Concurrency: 4})
	var n atomic.Int64
	r.newID = func() string { return fmt.Sprintf("doc-%d", n.Add(1)) }
	return r
}

func TestFromCouncilLookup(t *testing.T) {
	var l models.CouncilLookup
	require.NoError(t, json.Unmarshal([]byte(`{"projectMetadata":{"raw":{"documents":[
		{"documentId":"D1","fileName":"Decision Notice.pdf","category":"Decision","fileDate":"2024-03-01","fileSize":"1200","downloadUrl":"https://council.example/d1"},
		{"fileName":"Plans.PDF"}
	]}}}`), &l))

	got := FromCouncilLookup(&l)
	require.Len(t, got, 2)
	require.Equal(t, models.DocumentSourceCouncil, got[0].Source)
	require.Equal(t, "D1", *got[0].ExternalID)
	require.Equal(t, "Decision", got[0].Category)
	require.Equal(t, "pdf", got[0].FileExtension)
	require.Nil(t, got[1].ExternalID)
	require.Equal(t, models.CategoryCouncilDocument, got[1].Category)
	require.Equal(t, "pdf", got[1].FileExtension)

	require.Nil(t, FromCouncilLookup(nil))
}

func TestFromParsed(t *testing.T) {
	p := &models.ParsedConditions{Documents: models.FlexList[models.ParsedDocument]{
		{Title: "Site Plan", PlanNumber: "SK-01", Revision: "B", PlanDate: "2024-01-10"},
		{Title: "Traffic Report"},
	}}
	got := FromParsed(p)
	require.Len(t, got, 2)
	require.Equal(t, "SK-01", *got[0].ExternalID)
	require.Equal(t, "2024-01-10", got[0].DocumentDate)
	require.Equal(t, models.CategoryReferencedDocument, got[0].Category)
	require.Nil(t, got[1].ExternalID)
}

func TestFromUploadsStagingFilter(t *testing.T) {
	step := &models.DocumentsStep{Uploads: models.FlexList[models.UploadEntry]{
		{Key: "intake/s1/report.pdf", FileName: "report.pdf"},
		{Key: "intake/s1/photo.jpg", Bucket: bucket},
		{Key: "projects/p0/documents/d0/old.pdf"},
		{Key: "intake/s1/elsewhere.pdf", Bucket: "other-bucket"},
		{Key: ""},
	}}
	pkg := &models.CouncilConditionsStep{FileKey: "intake/s1/conditions.pdf"}

	got, warnings := FromUploads(step, pkg, rule)
	require.Len(t, got, 3)
	require.Len(t, warnings, 3)

	require.Equal(t, "report.pdf", got[0].Title)
	require.Equal(t, models.CategoryUploadedDocument, got[0].Category)
	require.Equal(t, "photo.jpg", got[1].FileName)
	require.Equal(t, models.CategoryConditionsPackage, got[2].Category)
	for _, c := range got {
		require.Equal(t, models.DocumentSourceUserUpload, c.Source)
		require.NotNil(t, c.Staged)
		require.Equal(t, bucket, c.Staged.Bucket)
	}
}

func TestFromUploadsEmpty(t *testing.T) {
	got, warnings := FromUploads(&models.DocumentsStep{}, nil, rule)
	require.Empty(t, got)
	require.Empty(t, warnings)
}

func TestSafeFileName(t *testing.T) {
	require.Equal(t, "plan.pdf", SafeFileName("../../etc/plan.pdf"))
	require.Equal(t, "plan.pdf", SafeFileName(`C:\Users\me\plan.pdf`))
	require.Equal(t, "file", SafeFileName(""))
	require.Equal(t, "ab.pdf", SafeFileName("a\x00b.pdf"))
}

func TestDedupFirstWins(t *testing.T) {
	id := "D1"
	dup := Candidate{Source: models.DocumentSourceCouncil, ExternalID: &id, Title: "Notice", Category: "Decision", DownloadURL: "https://x/d1"}
	other := dup
	other.Title = "Notice (copy)"

	got := Dedup([]Candidate{dup, dup, other})
	require.Len(t, got, 2)
	require.Equal(t, "Notice", got[0].Title)
	require.Equal(t, "Notice (copy)", got[1].Title)
}

func TestReconcile(t *testing.T) {
	store := storage.NewMemory()
	store.Put(bucket, "intake/s1/report.pdf", []byte("report"))
	r := newTestReconciler(store)

	id := "D1"
	council := Candidate{Source: models.DocumentSourceCouncil, ExternalID: &id, Title: "Notice", Category: models.CategoryCouncilDocument}
	uploads, _ := FromUploads(&models.DocumentsStep{Uploads: models.FlexList[models.UploadEntry]{
		{Key: "intake/s1/report.pdf", FileName: "report.pdf"},
		{Key: "intake/s1/report.pdf", FileName: "report.pdf"},
	}}, nil, rule)

	docs, err := r.Reconcile(context.Background(), Input{
		ProjectID: "p1",
		Council:   []Candidate{council, council},
		Parser:    []Candidate{{Source: models.DocumentSourceParser, Title: "Site Plan", Category: models.CategoryReferencedDocument}},
		Uploads:   uploads,
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// council, parser, upload order is kept
	require.Equal(t, []string{models.DocumentSourceCouncil, models.DocumentSourceParser, models.DocumentSourceUserUpload},
		[]string{docs[0].Source, docs[1].Source, docs[2].Source})
	require.Empty(t, docs[0].StorageKey)

	up := docs[2]
	require.Equal(t, "p1", up.ProjectID)
	require.Equal(t, bucket, up.Bucket)
	require.Equal(t, "projects/p1/documents/"+up.DocumentID+"/report.pdf", up.StorageKey)
	require.False(t, strings.HasPrefix(up.StorageKey, "intake/"))

	data, ok := store.Get(bucket, up.StorageKey)
	require.True(t, ok)
	require.Equal(t, []byte("report"), data)
}

func TestReconcileAbortsOnRelocationFailure(t *testing.T) {
	store := storage.NewMemory()
	store.Put(bucket, "intake/s1/a.pdf", []byte("a"))
	r := newTestReconciler(store)

	uploads, _ := FromUploads(&models.DocumentsStep{Uploads: models.FlexList[models.UploadEntry]{
		{Key: "intake/s1/a.pdf"},
		{Key: "intake/s1/missing.pdf"},
	}}, nil, rule)

	docs, err := r.Reconcile(context.Background(), Input{ProjectID: "p1", Uploads: uploads})
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrRelocationFailed)
	require.Contains(t, err.Error(), "intake/s1/missing.pdf")
	require.Nil(t, docs)
}

func TestPermanentKey(t *testing.T) {
	r := NewReconciler(nil, Options{PermanentPrefix: "projects/"})
	require.Equal(t, "projects/p1/documents/d1/plan.pdf", r.PermanentKey("p1", "d1", "plan.pdf"))
	require.Equal(t, "projects/p1/documents/d1/plan.pdf", r.PermanentKey("p1", "d1", "nested/plan.pdf"))
}
