package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	"github.com/valdezm/policy-auditor/internal/platform/store"
	reqrepo "github.com/valdezm/policy-auditor/internal/services/api/requirements/repo"
	"github.com/valdezm/policy-auditor/internal/services/ingest/repo"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) store.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.RowQuerier) error) error {
	return fn(fakeDB{})
}

type fakeRepo struct {
	policyHashes map[string]string
	docHashes    map[string]string

	policies []repo.PolicyUpsert
	docs     []repo.DocUpsert
}

func (f *fakeRepo) bindTo() repokit.Binder[repo.Repo] {
	return repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return f })
}

func (f *fakeRepo) PolicyHashes(context.Context) (map[string]string, error) {
	return f.policyHashes, nil
}

func (f *fakeRepo) UpsertPolicy(_ context.Context, p repo.PolicyUpsert) error {
	f.policies = append(f.policies, p)
	return nil
}

func (f *fakeRepo) DocHashes(context.Context) (map[string]string, error) { return f.docHashes, nil }

func (f *fakeRepo) UpsertDoc(_ context.Context, d repo.DocUpsert) error {
	f.docs = append(f.docs, d)
	return nil
}

type fakeReqRepo struct {
	replaced map[string][]reqrepo.UnitRow
}

func (f *fakeReqRepo) bindTo() repokit.Binder[reqrepo.Repo] {
	return repokit.BindFunc[reqrepo.Repo](func(repokit.Queryer) reqrepo.Repo { return f })
}

func (f *fakeReqRepo) Docs(context.Context, int) ([]reqrepo.DocRow, error)        { return nil, nil }
func (f *fakeReqRepo) DocText(context.Context, string) (*reqrepo.DocTextRow, error) { return nil, nil }
func (f *fakeReqRepo) UnitsByDoc(context.Context, string) ([]reqrepo.UnitRow, error) {
	return nil, nil
}
func (f *fakeReqRepo) UnitByID(context.Context, string) (*reqrepo.UnitRow, error) { return nil, nil }
func (f *fakeReqRepo) AllUnits(context.Context) ([]reqrepo.UnitRow, error)        { return nil, nil }

func (f *fakeReqRepo) ReplaceUnits(_ context.Context, docCode string, units []reqrepo.UnitRow) error {
	if f.replaced == nil {
		f.replaced = map[string][]reqrepo.UnitRow{}
	}
	f.replaced[docCode] = units
	return nil
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newSvc(f *fakeRepo, fr *fakeReqRepo) *Svc {
	return New(fakeDB{}, f.bindTo(), fr.bindTo(), decompose.New(rulepack.MustLoad()))
}

func TestIngestPoliciesUpsertsAndSkipsUnchanged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "network/MMCD-001_Network_Reporting.txt", "the plan must report network changes")
	write(t, dir, "MMCD-002_Grievances.txt", "grievance handling procedures")

	f := &fakeRepo{}
	fr := &fakeReqRepo{}
	s := newSvc(f, fr)

	res, err := s.IngestPolicies(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestPolicies returned error: %v", err)
	}
	if res.Ingested != 2 || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("first pass = %+v, want 2 ingested", res)
	}
	byCode := map[string]repo.PolicyUpsert{}
	for _, p := range f.policies {
		if p.FileHash == "" {
			t.Fatalf("policy upsert missing file hash: %+v", p)
		}
		byCode[p.Code] = p
	}
	if byCode["MMCD-001"].Category != "network" {
		t.Fatalf("category not carried through: %+v", byCode["MMCD-001"])
	}

	// second pass with the stored hashes skips everything
	f2 := &fakeRepo{policyHashes: map[string]string{}}
	for _, p := range f.policies {
		f2.policyHashes[p.Code] = p.FileHash
	}
	s2 := newSvc(f2, &fakeReqRepo{})
	res2, err := s2.IngestPolicies(context.Background(), dir)
	if err != nil {
		t.Fatalf("second IngestPolicies returned error: %v", err)
	}
	if res2.Skipped != 2 || res2.Ingested != 0 {
		t.Fatalf("second pass = %+v, want 2 skipped", res2)
	}
}

func TestIngestRequirementsDecomposesUnits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "APL 23-001_Network_Reporting.txt",
		"The MCP must submit a network report to DHCS within 30 days of any material change. "+
			"The plan shall maintain records of each submission.")

	f := &fakeRepo{}
	fr := &fakeReqRepo{}
	s := newSvc(f, fr)

	res, err := s.IngestRequirements(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestRequirements returned error: %v", err)
	}
	if res.Ingested != 1 {
		t.Fatalf("result = %+v, want 1 ingested", res)
	}
	if len(f.docs) != 1 || f.docs[0].Code != "APL 23-001" {
		t.Fatalf("doc upsert wrong: %+v", f.docs)
	}
	units := fr.replaced["APL 23-001"]
	if len(units) == 0 {
		t.Fatalf("no units replaced for ingested doc")
	}
	for _, u := range units {
		if u.DocCode != "APL 23-001" || u.Text == "" {
			t.Fatalf("unit row malformed: %+v", u)
		}
	}
}

func TestIngestMissingDirFails(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeRepo{}, &fakeReqRepo{})
	if _, err := s.IngestPolicies(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("missing dir should error")
	}
}
