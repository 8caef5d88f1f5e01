package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
)

func newTestController(parallel bool, loader PageLoader, resolver SegmentResolver) *Controller {
	cfg := common.BatchConfig{Workers: 3, Parallel: parallel, FileDeadline: time.Minute}
	return NewController(cfg, newTestPipeline(loader, resolver), nil)
}

func threeFileLoader() *fakeLoader {
	return &fakeLoader{
		pages: map[string][]entity.Page{
			"a.pdf": pages(taxInvoicePage),
			"c.pdf": pages(bolPage),
		},
		errs: map[string]error{
			"b.pdf": fmt.Errorf("encrypted document"),
		},
	}
}

func TestRunIsolatesFailingFile(t *testing.T) {
	c := newTestController(false, threeFileLoader(), &fakeResolver{})

	report := c.Run(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"})

	require.Len(t, report.Files, 3)
	assert.Equal(t, constants.FileCompleted, report.Files[0].Status)
	assert.Equal(t, constants.FileFailed, report.Files[1].Status)
	assert.Equal(t, constants.FileCompleted, report.Files[2].Status)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 0, report.Partial)
	assert.Equal(t, 1, report.Failed)
	assert.NotEmpty(t, report.BatchID)
}

func TestRunParallelKeepsReportOrder(t *testing.T) {
	c := newTestController(true, threeFileLoader(), &fakeResolver{})

	paths := []string{"a.pdf", "b.pdf", "c.pdf"}
	report := c.Run(context.Background(), paths)

	require.Len(t, report.Files, 3)
	for i, p := range paths {
		assert.Equal(t, p, report.Files[i].FilePath)
	}
}

func TestRunAggregatesEngineStats(t *testing.T) {
	c := newTestController(false, threeFileLoader(), &fakeResolver{})

	report := c.Run(context.Background(), []string{"a.pdf", "c.pdf"})

	st, ok := report.EngineStats["stub"]
	require.True(t, ok)
	assert.Equal(t, 2, st.Success)
	assert.Zero(t, st.Failure)
	assert.Zero(t, st.Timeout)
}

func TestDiscoverFilesWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "inbox")
	require.NoError(t, os.Mkdir(sub, 0o755))
	for _, name := range []string{"one.pdf", "two.PNG", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644))
	}
	single := filepath.Join(dir, "extra.pdf")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	got, err := DiscoverFiles([]string{sub, single})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, single, got[0])
	assert.Equal(t, filepath.Join(sub, "one.pdf"), got[1])
	assert.Equal(t, filepath.Join(sub, "two.PNG"), got[2])
}

func TestDiscoverFilesMissingPath(t *testing.T) {
	_, err := DiscoverFiles([]string{"/does/not/exist.pdf"})
	assert.Error(t, err)
}
