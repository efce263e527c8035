package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestProgressHooksCounts(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressHooks(&buf, 3)
	ctx := context.Background()

	p.OnDownloadStart(ctx, "g:a:1", "https://repo/a.jar", 10)
	p.OnDownloadComplete(ctx, "g:a:1", "/store/a.jar", false, 0, nil)
	p.OnInject(ctx, "g:a:1", "/store/a.jar", 0, nil)
	p.OnDownloadComplete(ctx, "g:b:1", "/store/b.jar", true, 0, nil)
	p.OnInject(ctx, "g:b:1", "/store/b.jar", 1, nil)
	p.OnDownloadComplete(ctx, "g:c:1", "", false, 0, errors.New("unresolved"))
	p.OnInject(ctx, "g:c:1", "", 1, errors.New("unresolved"))
	p.finish()
	p.finish()

	fetched, reused, failed := p.counts()
	if fetched != 1 || reused != 1 || failed != 1 {
		t.Errorf("counts() = %d fetched, %d reused, %d failed", fetched, reused, failed)
	}
	if buf.Len() == 0 {
		t.Error("progress bar wrote nothing")
	}
}
