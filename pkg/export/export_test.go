package export

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/resource"
	"github.com/vango-dev/suspense/pkg/vdom"
)

// fakeS3 records PutObject calls.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	input   []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(body)
	f.input = append(f.input, in)
	return &s3.PutObjectOutput{}, nil
}

// slowPage has a boundary that resolves shortly after rendering starts.
func slowPage(text string) render.PageData {
	return render.PageData{
		Title: "Export",
		Body: func() *vdom.VNode {
			return vdom.Div(vdom.Suspense(
				func() *vdom.VNode { return vdom.P("Loading...") },
				func() *vdom.VNode {
					r := resource.NewUnkeyed(func(ctx context.Context) (string, error) {
						time.Sleep(5 * time.Millisecond)
						return text, nil
					})
					if res, ok := r.Read(); ok {
						return vdom.P(res.Value)
					}
					return vdom.P("...")
				},
			))
		},
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRoutePath(t *testing.T) {
	assert.Equal(t, "index.html", RoutePath("/"))
	assert.Equal(t, "index.html", RoutePath(""))
	assert.Equal(t, "counter/index.html", RoutePath("/counter"))
	assert.Equal(t, "a/b/index.html", RoutePath("/a/b/"))
	assert.Equal(t, "etc/index.html", RoutePath("/../etc"))
}

func TestExportToDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	require.NoError(t, err)

	e := NewExporter(render.NewRenderer(render.RendererConfig{}), store, nil)
	manifest, err := e.Export(testContext(t),
		Page{Route: "/", Data: slowPage("home")},
		Page{Route: "/about", Data: slowPage("about")},
	)
	require.NoError(t, err)
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "about/index.html", manifest.Files[0].Path)
	assert.Equal(t, "index.html", manifest.Files[1].Path)

	home, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "<p data-hk=\"0-1-0\">home</p>")
	assert.NotContains(t, string(home), "Loading...")
	assert.Equal(t, len(home), manifest.Files[1].Size)

	raw, err := os.ReadFile(filepath.Join(dir, ManifestPath))
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, manifest.Files, decoded.Files)
}

func TestExportRejectsCollidingRoutes(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(render.NewRenderer(render.RendererConfig{}), store, nil)

	_, err = e.Export(testContext(t),
		Page{Route: "/a", Data: slowPage("x")},
		Page{Route: "/a/", Data: slowPage("y")},
	)
	assert.True(t, errors.HasCode(err, "E141"))
}

func TestExportRenderFailure(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(render.NewRenderer(render.RendererConfig{}), store, nil)

	_, err = e.Export(testContext(t), Page{Route: "/", Data: render.PageData{
		Body: func() *vdom.VNode { panic("broken") },
	}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, "E141"))
	assert.True(t, errors.HasCode(err, "E001"))
}

func TestExportToS3(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3Store(fake, "site", "/v1/")
	assert.Equal(t, "s3://site/v1/", store.Location())

	e := NewExporter(render.NewRenderer(render.RendererConfig{}), store, nil)
	_, err := e.Export(testContext(t), Page{Route: "/", Data: slowPage("hello")})
	require.NoError(t, err)

	assert.Contains(t, fake.objects["site/v1/index.html"], "hello")
	assert.Contains(t, fake.objects, "site/v1/manifest.json")
	require.Len(t, fake.input, 2)
	assert.Equal(t, "text/html; charset=utf-8", aws.ToString(fake.input[0].ContentType))
	assert.Equal(t, "public, max-age=300", aws.ToString(fake.input[0].CacheControl))
}

func TestS3StorePutError(t *testing.T) {
	store := NewS3Store(&fakeS3{err: stderrors.New("denied")}, "site", "")
	err := store.Put(context.Background(), Artifact{Path: "index.html"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "denied"))
}

func TestDirStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"", "/etc/passwd", "../x", "a/../../x"} {
		err := store.Put(context.Background(), Artifact{Path: p})
		assert.True(t, errors.HasCode(err, "E141"), p)
	}
}

func TestParseTarget(t *testing.T) {
	tgt, err := ParseTarget("./dist")
	require.NoError(t, err)
	assert.Equal(t, Target{Dir: "./dist"}, tgt)
	assert.False(t, tgt.IsS3())

	tgt, err = ParseTarget("s3://bucket/site/v2/")
	require.NoError(t, err)
	assert.Equal(t, Target{Bucket: "bucket", Prefix: "site/v2"}, tgt)
	assert.True(t, tgt.IsS3())

	for _, bad := range []string{"", "s3://", "gs://bucket"} {
		_, err := ParseTarget(bad)
		assert.True(t, errors.HasCode(err, "E124"), bad)
	}
}

func TestOpenStoreDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store, err := OpenStore(dir, S3Options{})
	require.NoError(t, err)
	assert.Equal(t, dir, store.Location())
	_, err = os.Stat(dir)
	require.NoError(t, err)
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := envCredentials{}.Retrieve(context.Background())
	assert.True(t, errors.HasCode(err, "E141"))

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials{}.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
}
