package service

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponse struct {
	body  []byte
	delay time.Duration
	err   error
}

type fakeFetcher struct {
	responses map[string]fakeResponse
	calls     atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.calls.Add(1)
	resp, ok := f.responses[rawURL]
	if !ok {
		return nil, oops.Wrapf(errors.ErrNetwork, "unexpected status 404")
	}
	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp.body, resp.err
}

var srcPattern = regexp.MustCompile(`src="([^"]+)"`)

func sources(html string) []string {
	return lo.Map(srcPattern.FindAllStringSubmatch(html, -1), func(m []string, _ int) string {
		return m[1]
	})
}

func TestPipeline_Process_PositionalIDs(t *testing.T) {
	// Earlier images answer later, so completion order is reversed
	const n = 5
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{}}
	body := ""
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("http://img.example/%d.png", i)
		fetcher.responses[url] = fakeResponse{
			body:  encodePNG(t, 10+i, 10),
			delay: time.Duration(n-i) * 10 * time.Millisecond,
		}
		body += fmt.Sprintf(`<p>para %d</p><img src="%s">`, i, url)
	}

	p := NewPipeline(fetcher, NewNormalizer(600, 800, 75), n, nil)
	result, err := p.Process(context.Background(), body, "")
	require.NoError(t, err)

	require.Len(t, result.ImageIDs, n)
	require.Len(t, result.Images, n)
	assert.Equal(t, lo.Map(result.ImageIDs, func(id string, _ int) string {
		return domain.FileName(id)
	}), sources(result.HTML))
	assert.Len(t, lo.Uniq(result.ImageIDs), n)

	for i, img := range result.Images {
		assert.Equal(t, result.ImageIDs[i], img.ID)
		assert.Equal(t, domain.MediaType, img.MediaType)
		cfg, _ := decodeConfig(t, img.Data)
		assert.Equal(t, 10+i, cfg.Width, "image %d got the bytes of another element", i)
	}
}

func TestPipeline_Process_SentinelOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"http://img.example/ok.png":     {body: encodePNG(t, 20, 20)},
		"http://img.example/broken.png": {body: []byte("garbage")},
	}}
	body := `<figure><img src="http://img.example/missing.png"></figure>` +
		`<img src="http://img.example/ok.png">` +
		`<img src="http://img.example/broken.png">`

	p := NewPipeline(fetcher, NewNormalizer(600, 800, 75), 2, nil)
	result, err := p.Process(context.Background(), body, "")
	require.NoError(t, err)

	require.Len(t, result.ImageIDs, 3)
	assert.Equal(t, domain.SentinelID, result.ImageIDs[0])
	assert.False(t, domain.IsSentinel(result.ImageIDs[1]))
	assert.Equal(t, domain.SentinelID, result.ImageIDs[2])
	require.Len(t, result.Images, 1)
	assert.Equal(t, result.ImageIDs[1], result.Images[0].ID)

	assert.Equal(t, []string{"404.jpg", result.Images[0].FileName(), "404.jpg"}, sources(result.HTML))
	assert.Contains(t, result.HTML, "<figure>")
}

func TestPipeline_Process_ResolvesRelativeSources(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"http://blog.example/media/a.png": {body: encodePNG(t, 8, 8)},
	}}

	p := NewPipeline(fetcher, NewNormalizer(600, 800, 75), 1, nil)
	result, err := p.Process(context.Background(), `<img src="../media/a.png">`, "http://blog.example/posts/1")
	require.NoError(t, err)

	require.Len(t, result.Images, 1)
	assert.Equal(t, result.Images[0].ID, result.ImageIDs[0])
}

func TestPipeline_Process_NoImages(t *testing.T) {
	fetcher := &fakeFetcher{}

	p := NewPipeline(fetcher, NewNormalizer(600, 800, 75), 4, nil)
	result, err := p.Process(context.Background(), `<div><p>text only</p></div>`, "")
	require.NoError(t, err)

	assert.Empty(t, result.ImageIDs)
	assert.Empty(t, result.Images)
	assert.Equal(t, `<div><p>text only</p></div>`, result.HTML)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}
