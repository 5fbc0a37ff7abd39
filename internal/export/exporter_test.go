package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/data"
	"github.com/target/gradesync/internal/domain/model"
)

type putCall struct {
	key, contentType string
	body             []byte
}

type memStore struct {
	calls []putCall
	err   error
}

func (m *memStore) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	return "mem://" + key, nil
}

func TestExporter_StoresEveryFormat(t *testing.T) {
	store := &memStore{}
	clock := data.NewFixedTimeProvider(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	exp, err := New(Options{
		Formats: []config.ExportFormat{config.ExportCSV, config.ExportXLSX},
		Store:   store,
		Clock:   clock,
	})
	require.NoError(t, err)

	got, err := exp.Export(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Equal(t, "mem://c1/gradesync-c1-20240301T093000Z.csv", got)

	require.Len(t, store.calls, 2)
	assert.Equal(t, "text/csv", store.calls[0].contentType)
	assert.True(t, strings.HasPrefix(string(store.calls[0].body), "kind,user_id"))
	assert.Equal(t, "c1/gradesync-c1-20240301T093000Z.xlsx", store.calls[1].key)
}

func TestExporter_EmptySummaryIsSkipped(t *testing.T) {
	store := &memStore{}
	exp, err := New(Options{Store: store})
	require.NoError(t, err)

	got, err := exp.Export(context.Background(), model.RunSummary{CourseID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.calls)
}

func TestExporter_StoreError(t *testing.T) {
	exp, err := New(Options{Store: &memStore{err: errors.New("disk full")}})
	require.NoError(t, err)

	_, err = exp.Export(context.Background(), testSummary())
	require.ErrorContains(t, err, "disk full")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	_, err = New(Options{Store: &memStore{}, Formats: []config.ExportFormat{"pdf"}})
	require.Error(t, err)
}

func TestNewFromConfig_LocalByDefault(t *testing.T) {
	cfg := config.ExportConfig{Dir: t.TempDir()}
	cfg.Sanitize()
	exp, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	_, ok := exp.store.(*LocalStore)
	assert.True(t, ok)
}
