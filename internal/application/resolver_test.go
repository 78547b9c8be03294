package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
	"roi-harvester/internal/infrastructure/pagebox"
)

func newResolverFixture(t *testing.T) (*MetadataResolver, *fakeCatalog, string) {
	t.Helper()
	root := t.TempDir()
	catalog := newFakeCatalog()
	r := NewMetadataResolver(catalog, pagebox.NewReader(), entity.NewConsistencyGate(0.02), root, nil)
	return r, catalog, filepath.Join(root, "repro_files")
}

func TestMetadataResolver_Accepts(t *testing.T) {
	r, catalog, repro := newResolverFixture(t)
	writeFile(t, filepath.Join(repro, "2022", "job.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "2022", "job.xml"), []byte(pageBoxXML))
	catalog.infos[1] = &port.FileInfo{ImagePath: "/2022/job.jpg", FileType: "repro"}
	catalog.sizes[1] = trustedSize

	res := r.Resolve(context.Background(), 1)
	require.True(t, res.Accepted(), "reason %s: %v", res.Reason, res.Err)
	require.Equal(t, filepath.Join(repro, "2022", "job_RAW.jpg"), res.Record.SourcePath)
	require.Equal(t, int64(1), res.Record.Identifier)

	rect := res.Record.Rect
	require.InDelta(t, 2.54, rect.X, 1e-9)
	require.InDelta(t, 12.7, rect.Width, 1e-9)
	require.InDelta(t, 8.4667, rect.Height, 1e-3)
	require.InDelta(t, 16.9333-2.54-8.4667, rect.Y, 1e-3)
	require.Equal(t, entity.OriginTopLeft, rect.Origin)
}

func TestMetadataResolver_RotatedTrustedSizeAccepted(t *testing.T) {
	r, catalog, repro := newResolverFixture(t)
	writeFile(t, filepath.Join(repro, "job.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "job.xml"), []byte(pageBoxXML))
	catalog.infos[1] = &port.FileInfo{ImagePath: "job.jpg"}
	catalog.sizes[1] = [2]float64{trustedSize[1], trustedSize[0]}

	require.True(t, r.Resolve(context.Background(), 1).Accepted())
}

func TestMetadataResolver_Fallbacks(t *testing.T) {
	cases := []struct {
		name     string
		declared string
		files    []string
		key      string
	}{
		{"suffix", "/d/job.jpg", []string{"d/job_1.jpg", "d/job.xml"}, "d/job_1_RAW.jpg"},
		{"underscore stem", "/d/job.a.jpg", []string{"d/job_a.jpg", "d/job_a.xml"}, "d/job_a_RAW.jpg"},
		{"underscore stem with suffix", "/d/job.a.jpg", []string{"d/job.a_1.jpg", "d/job_a.xml"}, "d/job.a_1_RAW.jpg"},
		{"extension swap", "/d/job.jpg", []string{"d/job.jpeg", "d/job.xml"}, "d/job_RAW.jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, catalog, repro := newResolverFixture(t)
			for _, f := range tc.files {
				data := []byte("img")
				if filepath.Ext(f) == ".xml" {
					data = []byte(pageBoxXML)
				}
				writeFile(t, filepath.Join(repro, filepath.FromSlash(f)), data)
			}
			catalog.infos[7] = &port.FileInfo{ImagePath: tc.declared}
			catalog.sizes[7] = trustedSize

			res := r.Resolve(context.Background(), 7)
			require.True(t, res.Accepted(), "reason %s: %v", res.Reason, res.Err)
			require.Equal(t, filepath.Join(repro, filepath.FromSlash(tc.key)), res.Record.SourcePath)
		})
	}
}

func TestMetadataResolver_AbsentReasons(t *testing.T) {
	r, catalog, repro := newResolverFixture(t)
	ctx := context.Background()

	catalog.infos[1] = &port.FileInfo{ImagePath: "/d/a.jpg", FileType: "daily"}
	require.Equal(t, entity.ReasonNotVerifiable, r.Resolve(ctx, 1).Reason)

	catalog.failing[2] = true
	res := r.Resolve(ctx, 2)
	require.Equal(t, entity.ReasonFetchFailed, res.Reason)
	require.True(t, res.Reason.Transient())
	require.Error(t, res.Err)

	catalog.infos[3] = &port.FileInfo{ImagePath: "/d/none.jpg"}
	require.Equal(t, entity.ReasonAssetMissing, r.Resolve(ctx, 3).Reason)

	// неизвестный id: дескриптор без пути, как у исчерпанного каталога
	res = r.Resolve(ctx, 4)
	require.Equal(t, entity.ReasonFetchFailed, res.Reason)
	require.True(t, res.Reason.Transient())

	writeFile(t, filepath.Join(repro, "d", "nometa.jpg"), []byte("img"))
	catalog.infos[5] = &port.FileInfo{ImagePath: "/d/nometa.jpg"}
	require.Equal(t, entity.ReasonMetadataMissing, r.Resolve(ctx, 5).Reason)

	writeFile(t, filepath.Join(repro, "d", "broken.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "d", "broken.xml"), []byte("<job><pageboxes>"))
	catalog.infos[6] = &port.FileInfo{ImagePath: "/d/broken.jpg"}
	res = r.Resolve(ctx, 6)
	require.Equal(t, entity.ReasonMetadataUnreadable, res.Reason)
	require.True(t, res.Reason.Transient())

	writeFile(t, filepath.Join(repro, "d", "partial.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "d", "partial.xml"), []byte("<job><pageboxes><media/></pageboxes></job>"))
	catalog.infos[7] = &port.FileInfo{ImagePath: "/d/partial.jpg"}
	res = r.Resolve(ctx, 7)
	require.Equal(t, entity.ReasonMetadataIncomplete, res.Reason)
	require.False(t, res.Reason.Transient())
}

func TestMetadataResolver_RegistryEmptyIsTransient(t *testing.T) {
	r, catalog, repro := newResolverFixture(t)
	writeFile(t, filepath.Join(repro, "job.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "job.xml"), []byte(pageBoxXML))
	catalog.infos[1] = &port.FileInfo{ImagePath: "job.jpg"}
	catalog.unregistered[1] = true

	res := r.Resolve(context.Background(), 1)
	require.Equal(t, entity.ReasonFetchFailed, res.Reason)
	require.True(t, res.Reason.Transient())
	require.Error(t, res.Err)

	// реестр опрашивается раньше файловой системы
	catalog.infos[2] = &port.FileInfo{ImagePath: "/d/none.jpg"}
	catalog.unregistered[2] = true
	require.Equal(t, entity.ReasonFetchFailed, r.Resolve(context.Background(), 2).Reason)

	// ежедневные варианты в реестре не ищутся
	catalog.infos[3] = &port.FileInfo{ImagePath: "/d/a.jpg", FileType: "daily"}
	catalog.unregistered[3] = true
	require.Equal(t, entity.ReasonNotVerifiable, r.Resolve(context.Background(), 3).Reason)
}

func TestMetadataResolver_Rejected(t *testing.T) {
	r, catalog, repro := newResolverFixture(t)
	writeFile(t, filepath.Join(repro, "job.jpg"), []byte("img"))
	writeFile(t, filepath.Join(repro, "job.xml"), []byte(pageBoxXML))
	catalog.infos[1] = &port.FileInfo{ImagePath: "job.jpg"}
	catalog.sizes[1] = [2]float64{14, 8.4667}
	catalog.infos[2] = &port.FileInfo{ImagePath: "job.jpg"}

	res := r.Resolve(context.Background(), 1)
	require.Equal(t, entity.ReasonRejected, res.Reason)
	require.False(t, res.Accepted())

	// Реестр без данных: (0, 0) отклоняется.
	require.Equal(t, entity.ReasonRejected, r.Resolve(context.Background(), 2).Reason)
}

func TestAssetCandidates_Order(t *testing.T) {
	got := assetCandidates(filepath.FromSlash("/d/job.a.jpg"))
	want := []string{
		filepath.FromSlash("/d/job.a.jpg"),
		filepath.FromSlash("/d/job.a_1.jpg"),
		filepath.FromSlash("/d/job_a.jpg"),
		filepath.FromSlash("/d/job.a.jpeg"),
		filepath.FromSlash("/d/job.a_1.jpeg"),
		filepath.FromSlash("/d/job_a.jpeg"),
	}
	require.Equal(t, want, got)
}
