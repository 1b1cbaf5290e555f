// Package reconciler checks externally hosted images and releases them through
// the host's delete confirmation form.
package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dog-marker/internal/model"
)

const (
	DefaultTimeout = 15 * time.Second

	tokenSelector = `input[name="_token"]`
	maxDrain      = 64 << 10
)

type Outcome int

const (
	// OutcomeAlive: the image is reachable and stays.
	OutcomeAlive Outcome = iota
	// OutcomeGone: the remote side confirmed absence, or nothing was ever hosted.
	OutcomeGone
	// OutcomeAbandoned: still reachable but the record has no way to release it.
	OutcomeAbandoned
	// OutcomeDeferred: transient failure, retry on a later sweep.
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlive:
		return "alive"
	case OutcomeGone:
		return "gone"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeDeferred:
		return "deferred"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DropLocal reports whether the local image record should be deleted.
func (o Outcome) DropLocal() bool {
	return o == OutcomeGone || o == OutcomeAbandoned
}

type ImageReconciler struct {
	client *http.Client
	logger *slog.Logger
}

func New(timeout time.Duration, logger *slog.Logger) *ImageReconciler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithClient(&http.Client{Timeout: timeout}, logger)
}

func NewWithClient(client *http.Client, logger *slog.Logger) *ImageReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageReconciler{client: client, logger: logger}
}

// Reconcile decides what happens to one image record. Remote deletion is only
// attempted when allowRemoteDelete is set. Every returned error wraps
// model.ErrExternalUnavailable and comes with OutcomeDeferred.
func (r *ImageReconciler) Reconcile(ctx context.Context, image model.EntryImage, allowRemoteDelete bool) (Outcome, error) {
	if image.ImagePath == nil || *image.ImagePath == "" {
		return OutcomeGone, nil
	}

	alive, err := r.isAlive(ctx, *image.ImagePath)
	if err != nil {
		return OutcomeDeferred, err
	}
	if !alive {
		return OutcomeGone, nil
	}
	if !allowRemoteDelete {
		return OutcomeAlive, nil
	}
	if image.ImageDeleteURL == nil || *image.ImageDeleteURL == "" {
		return OutcomeAbandoned, nil
	}

	if err := r.remoteDelete(ctx, *image.ImageDeleteURL); err != nil {
		return OutcomeDeferred, err
	}

	alive, err = r.isAlive(ctx, *image.ImagePath)
	if err != nil {
		return OutcomeDeferred, err
	}
	if alive {
		return OutcomeDeferred, fmt.Errorf("%w: image %d still reachable after delete", model.ErrExternalUnavailable, image.ID)
	}

	r.logger.Info("remote image deleted", "image_id", image.ID, "entry_id", image.EntryID)
	return OutcomeGone, nil
}

func (r *ImageReconciler) isAlive(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, unavailable("build liveness request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, unavailable("liveness check", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	}
	return false, unavailable("liveness check", statusError(resp))
}

// remoteDelete runs the confirmation form flow in one cookie session: load
// the page, lift the CSRF token, post it back.
func (r *ImageReconciler) remoteDelete(ctx context.Context, deleteURL string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return unavailable("create cookie jar", err)
	}
	session := &http.Client{
		Transport:     r.client.Transport,
		CheckRedirect: r.client.CheckRedirect,
		Timeout:       r.client.Timeout,
		Jar:           jar,
	}

	token, err := r.fetchToken(ctx, session, deleteURL)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"confirm_delete": "1", "_token": token})
	if err != nil {
		return unavailable("encode delete form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deleteURL, bytes.NewReader(body))
	if err != nil {
		return unavailable("build delete request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := session.Do(req)
	if err != nil {
		return unavailable("submit delete", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unavailable("submit delete", statusError(resp))
	}
	return nil
}

func (r *ImageReconciler) fetchToken(ctx context.Context, session *http.Client, deleteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deleteURL, nil)
	if err != nil {
		return "", unavailable("build delete page request", err)
	}

	resp, err := session.Do(req)
	if err != nil {
		return "", unavailable("load delete page", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", unavailable("load delete page", statusError(resp))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", unavailable("parse delete page", err)
	}

	token, ok := doc.Find(tokenSelector).First().Attr("value")
	if !ok || token == "" {
		return "", unavailable("parse delete page", errors.New("no _token field"))
	}
	return token, nil
}

func unavailable(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrExternalUnavailable, step, err)
}

func statusError(resp *http.Response) error {
	return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL.Redacted())
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	_ = body.Close()
}
