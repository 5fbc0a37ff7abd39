package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/domain/model"
)

func testSummary() model.RunSummary {
	return model.RunSummary{
		CourseID: "c1",
		Retries:  []model.RetryRecord{{UserID: "u1", Attempts: 2}, {UserID: "u3", Attempts: 6}},
		Failures: []model.FailureRecord{{UserID: "u3", Average: 3.5, Error: "after 6 attempts: status 500, \"oops\""}},
	}
}

func TestCSVRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVRenderer{}.Render(&buf, testSummary()))

	want := "kind,user_id,attempts,average,error\n" +
		"failure,u3,,3.50,\"after 6 attempts: status 500, \"\"oops\"\"\"\n" +
		"retry,u1,2,,\n" +
		"retry,u3,6,,\n"
	assert.Equal(t, want, buf.String())
}

func TestXLSXRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXRenderer{}.Render(&buf, testSummary()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Failures", "Retries"}, f.GetSheetList())

	failures, err := f.GetRows("Failures")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, []string{"user_id", "average", "error"}, failures[0])
	assert.Equal(t, "u3", failures[1][0])
	assert.Equal(t, "3.5", failures[1][1])

	retries, err := f.GetRows("Retries")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"user_id", "attempts"}, {"u1", "2"}, {"u3", "6"}}, retries)
}

func TestRendererFor(t *testing.T) {
	r, err := RendererFor(config.ExportXLSX)
	require.NoError(t, err)
	assert.Equal(t, config.ExportXLSX, r.Format())

	_, err = RendererFor("pdf")
	require.Error(t, err)
}
