package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/fingerid/internal/fingerid/service"
	"github.com/quillback/fingerid/internal/fingerid/types"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestEnv(&fakeDevice{captureResult: types.CaptureResult{Template: "tmpl-a", Quality: 90}})
	_, err := src.ctrl.Enroll(context.Background(), "Ada")
	require.NoError(t, err)
	src.dev.captureResult = types.CaptureResult{Template: "tmpl-b", Quality: 80}
	_, err = src.ctrl.Enroll(context.Background(), "Grace")
	require.NoError(t, err)

	doc := src.ctrl.Export()
	require.Len(t, doc.Users, 2)
	require.NotNil(t, doc.LastCapture)
	_, perr := time.Parse(time.RFC3339, doc.ExportDate)
	require.NoError(t, perr, "exportDate must be RFC 3339")

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	dst := newTestEnv(&fakeDevice{})
	count, warn, err := dst.ctrl.Import(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, warn)

	assert.Equal(t, src.gallery.List(), dst.gallery.List(), "round trip preserves content and cardinality")
	require.NotNil(t, dst.last.Get())
	assert.Equal(t, "tmpl-b", dst.last.Get().Template)
}

func TestImport_IsDestructiveOverwrite(t *testing.T) {
	env := newTestEnv(&fakeDevice{captureResult: types.CaptureResult{Template: "old"}})
	_, err := env.ctrl.Enroll(context.Background(), "Old Resident")
	require.NoError(t, err)

	raw := []byte(`{"users":[{"id":"u-1","displayName":"Imported","template":"t-1","enrolledAt":"2024-05-01T10:00:00Z"}],"lastCapture":null,"exportDate":"2024-05-02T00:00:00Z"}`)
	count, _, err := env.ctrl.Import(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list := env.gallery.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Imported", list[0].DisplayName, "import replaces, never merges")
}

func TestImport_MissingUsersRejectedAndStateUnchanged(t *testing.T) {
	env := newTestEnv(&fakeDevice{captureResult: types.CaptureResult{Template: "tmpl"}})
	_, err := env.ctrl.Enroll(context.Background(), "Ada")
	require.NoError(t, err)
	before := env.gallery.List()

	for _, raw := range []string{
		`{"lastCapture":null,"exportDate":"2024-05-02T00:00:00Z"}`,
		`{"users":null}`,
		`{"users":"not-an-array"}`,
		`{"users":{"id":"u-1"}}`,
		`[]`,
		`not json at all`,
	} {
		_, _, err := env.ctrl.Import(context.Background(), []byte(raw))
		assert.ErrorIs(t, err, service.ErrInvalidFormat, "payload %s", raw)
		assert.Equal(t, before, env.gallery.List(), "rejected import must leave the gallery unchanged")
	}
}

func TestImport_EmptyUsersArrayIsValid(t *testing.T) {
	env := newTestEnv(&fakeDevice{captureResult: types.CaptureResult{Template: "tmpl"}})
	_, err := env.ctrl.Enroll(context.Background(), "Ada")
	require.NoError(t, err)

	count, _, err := env.ctrl.Import(context.Background(), []byte(`{"users":[]}`))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, env.gallery.Len())
}

func TestImport_WithoutLastCaptureKeepsCurrentOne(t *testing.T) {
	env := newTestEnv(&fakeDevice{captureResult: types.CaptureResult{Template: "current"}})
	_, err := env.ctrl.Enroll(context.Background(), "Ada")
	require.NoError(t, err)

	_, _, err = env.ctrl.Import(context.Background(), []byte(`{"users":[]}`))
	require.NoError(t, err)

	require.NotNil(t, env.last.Get())
	assert.Equal(t, "current", env.last.Get().Template)
}
