// Package orchestrator implements fetch-or-generate: look a fractal up by
// content hash, render it on a miss, and file it in the caller's gallery.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/internal/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/internal/gallery"
	"github.com/friedchicken888/cab432-a2/internal/gate"
	"github.com/friedchicken888/cab432-a2/internal/history"
	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

const contentType = "image/png"

// Result is returned to the client.
type Result struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	GalleryID uint   `json:"galleryId"`
}

// Options 编排器参数
type Options struct {
	RenderTimeout time.Duration
	URLTTL        time.Duration
}

// Orchestrator 请求编排器
type Orchestrator struct {
	artifacts *artifacts.Service
	gallery   *gallery.Service
	history   *history.Service
	blobs     storage.Provider
	renderer  fractal.Renderer
	gate      *gate.Gate
	opts      Options
	metrics   *metrics.Collector
	log       *zap.Logger
}

// New 创建编排器
func New(
	artifactSvc *artifacts.Service,
	gallerySvc *gallery.Service,
	historySvc *history.Service,
	blobs storage.Provider,
	renderer fractal.Renderer,
	g *gate.Gate,
	opts Options,
	collector *metrics.Collector,
) *Orchestrator {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 30 * time.Second
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = 5 * time.Minute
	}
	return &Orchestrator{
		artifacts: artifactSvc,
		gallery:   gallerySvc,
		history:   historySvc,
		blobs:     blobs,
		renderer:  renderer,
		gate:      g,
		opts:      opts,
		metrics:   collector,
		log:       utils.Component("orchestrator"),
	}
}

// FetchOrGenerate returns the fractal for p, rendering it if no fractal
// with the same canonical hash exists, and makes sure it is in the
// caller's gallery.
//
// Only one render runs at a time; a miss while another render is in
// flight fails with fractal.ErrBusy. A render, once started, runs to
// completion or to its time budget even if ctx is cancelled.
func (o *Orchestrator) FetchOrGenerate(ctx context.Context, p fractal.Params, id auth.Identity) (*Result, error) {
	p = p.Normalize()
	hash, err := p.Digest()
	if err != nil {
		return nil, err
	}

	res, err := o.fetchOrGenerate(ctx, p, hash, id)
	if errors.Is(err, fractal.ErrStaleArtifact) {
		o.log.Info("cached fractal vanished, retrying", zap.String("hash", hash))
		res, err = o.fetchOrGenerate(ctx, p, hash, id)
		if errors.Is(err, fractal.ErrStaleArtifact) {
			return nil, fmt.Errorf("%w: fractal %s removed while being fetched", fractal.ErrRenderFailed, hash)
		}
	}
	return res, err
}

func (o *Orchestrator) fetchOrGenerate(ctx context.Context, p fractal.Params, hash string, id auth.Identity) (*Result, error) {
	f, err := o.artifacts.FindByHash(ctx, hash)
	if errors.Is(err, fractal.ErrNotFound) {
		f, err = o.generate(ctx, p, hash)
	}
	if err != nil {
		return nil, err
	}

	o.history.Record(ctx, id.UserID, id.Username, f.ID)

	galleryID, err := o.gallery.EnsureMembership(ctx, id.UserID, f.ID, f.Hash)
	if err != nil {
		if errors.Is(err, fractal.ErrStaleArtifact) {
			o.artifacts.Invalidate(ctx, f.Hash, f.ID)
		}
		return nil, err
	}

	blobKey, err := o.artifacts.GetBlobKey(ctx, f.ID)
	if err != nil {
		if errors.Is(err, fractal.ErrNotFound) {
			o.artifacts.Invalidate(ctx, f.Hash, f.ID)
			return nil, fractal.ErrStaleArtifact
		}
		return nil, err
	}

	url, err := o.blobs.AccessURL(ctx, blobKey, o.opts.URLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign %s: %v", fractal.ErrBlobStore, blobKey, err)
	}
	return &Result{Hash: f.Hash, URL: url, GalleryID: galleryID}, nil
}

// generate renders and stores the fractal while holding the gate.
func (o *Orchestrator) generate(ctx context.Context, p fractal.Params, hash string) (*models.Fractal, error) {
	if !o.gate.TryAcquire() {
		o.metrics.RecordBusy()
		return nil, fractal.ErrBusy
	}
	var once sync.Once
	release := func() { once.Do(o.gate.Release) }
	defer release()

	// another request may have stored it between our miss and the acquire
	if f, err := o.artifacts.FindByHashUncached(ctx, hash); err == nil {
		return f, nil
	} else if !errors.Is(err, fractal.ErrNotFound) {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	log := o.log.With(zap.String("hash", hash))

	data, err := o.render(bg, p)
	if err != nil {
		log.Warn("render failed", zap.Error(err))
		return nil, err
	}

	key, err := o.blobs.Put(bg, data, contentType)
	if err != nil {
		log.Error("failed to store blob", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", fractal.ErrBlobStore, err)
	}

	f, err := o.artifacts.Create(bg, p, hash, key)
	switch {
	case err == nil:
		log.Info("fractal generated", zap.String("blob_key", key), zap.Int("bytes", len(data)))
		return f, nil
	case errors.Is(err, fractal.ErrConflict):
		o.metrics.RecordConflict()
		o.deleteBlob(bg, key)
		release()
		winner, err := o.artifacts.FindByHashUncached(bg, hash)
		if errors.Is(err, fractal.ErrNotFound) {
			// the winning row was purged already
			return nil, fractal.ErrStaleArtifact
		}
		return winner, err
	default:
		o.deleteBlob(bg, key)
		return nil, err
	}
}

func (o *Orchestrator) render(ctx context.Context, p fractal.Params) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, o.opts.RenderTimeout)
	defer cancel()

	start := time.Now()
	data, err := o.renderer.Render(rctx, p)
	switch {
	case err == nil:
		o.metrics.RecordRender("ok", time.Since(start))
		return data, nil
	case errors.Is(err, fractal.ErrAborted), errors.Is(err, context.DeadlineExceeded):
		o.metrics.RecordRender("aborted", time.Since(start))
		return nil, fractal.ErrAborted
	case errors.Is(err, fractal.ErrValidation), errors.Is(err, fractal.ErrRenderFailed):
		o.metrics.RecordRender("failed", time.Since(start))
		return nil, err
	default:
		o.metrics.RecordRender("failed", time.Since(start))
		return nil, fmt.Errorf("%w: %v", fractal.ErrRenderFailed, err)
	}
}

// deleteBlob removes a blob no record points to. Failure leaves an orphan.
func (o *Orchestrator) deleteBlob(ctx context.Context, key string) {
	if err := o.blobs.Delete(ctx, key); err != nil {
		o.log.Warn("failed to delete orphaned blob", zap.String("blob_key", key), zap.Error(err))
	}
}
