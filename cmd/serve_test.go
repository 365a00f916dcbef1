package cmd

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/alapierre/go-etims-receipts/etims/batch"
	"github.com/alapierre/go-etims-receipts/etims/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T, dir, src string) *config.Config {
	t.Helper()
	c, err := config.Load(writeConfig(t, dir))
	require.NoError(t, err)
	c.Source.Path = src
	return c
}

func TestRerunOnHangup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.xml")
	require.NoError(t, os.WriteFile(src, []byte(exportXML), 0o600))

	p, err := newPipeline(loadTestConfig(t, dir, src))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hup := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		rerunOnHangup(ctx, p, hup)
		close(done)
	}()

	hup <- syscall.SIGHUP
	require.Eventually(t, func() bool { return p.store.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	first := p.processor.LastResult()
	require.NotNil(t, first)

	r, ok := p.store.Get("T1")
	require.True(t, ok)
	assert.Equal(t, "500", r.ReceiptNumber)

	// the counter continues and the store is replaced by the new run
	hup <- syscall.SIGHUP
	require.Eventually(t, func() bool {
		last := p.processor.LastResult()
		return last != nil && last.BatchID != first.BatchID
	}, 5*time.Second, 10*time.Millisecond)
	r, ok = p.store.Get("T1")
	require.True(t, ok)
	assert.Equal(t, "501", r.ReceiptNumber)

	// a broken document keeps the previous receipts
	require.NoError(t, os.WriteFile(src, []byte("<data><<line/></data>"), 0o600))
	hup <- syscall.SIGHUP
	require.Eventually(t, func() bool { return p.processor.State() == batch.Failed }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, p.store.Len())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rerunOnHangup did not stop after cancel")
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.xml")
	require.NoError(t, os.WriteFile(src, []byte(exportXML), 0o600))

	c := loadTestConfig(t, dir, src)
	c.App.Port = 0
	cfg = c
	t.Cleanup(func() { cfg = nil })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_MissingSourceStillServes(t *testing.T) {
	dir := t.TempDir()

	c := loadTestConfig(t, dir, filepath.Join(dir, "missing.xml"))
	c.App.Port = 0
	cfg = c
	t.Cleanup(func() { cfg = nil })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, serve(ctx))
}
