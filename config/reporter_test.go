package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer r.Close()

	files := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(data)
	}
	return files
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := &ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if r.Name() != conf.Destination {
		t.Errorf("Name() = %s, want %s", r.Name(), conf.Destination)
	}

	part := filepath.Join(dir, "part-1.html")
	if err := os.WriteFile(part, []byte("<div>story</div>"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("split/part-1.html", part)
	r.Store("split/absent.html", filepath.Join(dir, "absent.html"))
	r.StoreData("split/plan.txt", []byte("partition"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	var names []string
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	if want := []string{"MANIFEST", "split/part-1.html", "split/plan.txt"}; !slices.Equal(names, want) {
		t.Errorf("report files = %v, want %v", names, want)
	}
	if files["split/part-1.html"] != "<div>story</div>" || files["split/plan.txt"] != "partition" {
		t.Errorf("report content = %v", files)
	}
	if !strings.Contains(files["MANIFEST"], "split/absent.html") {
		t.Error("MANIFEST should list every requested entry")
	}
}

func TestReport_Overwrite(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.StoreData("a", nil)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate entry")
		}
	}()
	r.StoreData("a", nil)
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if r.Name() != "" {
		t.Error("nil report must have empty name")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil report returned error: %v", err)
	}
}

func TestReport_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close() with nil file returned error: %v", err)
	}
}
