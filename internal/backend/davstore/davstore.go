// Package davstore stores remote saves in a WebDAV collection, the protocol
// most cloud drives and NAS boxes expose.
package davstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/savesync/savesync/internal/backend"
	"github.com/savesync/savesync/internal/codec"
	"github.com/savesync/savesync/internal/utils"
	"github.com/savesync/savesync/internal/version"
)

const (
	methodMkcol = "MKCOL"
	methodMove  = "MOVE"

	headerDestination = "Destination"
	headerOverwrite   = "Overwrite"

	contentTypeJSON = "application/json"
	contentTypeZip  = "application/zip"
)

type Config struct {
	URL      string `mapstructure:"url" json:"url"`
	Username string `mapstructure:"username" json:"username,omitempty"`
	Password string `mapstructure:"password" json:"password,omitempty"`
}

// StatusError is a response the server answered with an unexpected status.
type StatusError struct {
	Method string
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webdav: %s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

type Backend struct {
	client *req.Client
	base   *url.URL

	// set once the collection is known to exist
	collectionReady bool
}

func New(cfg *Config) (*Backend, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse webdav url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("webdav url %q must be http or https", cfg.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := req.C().
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetUserAgent(version.UserAgent()).
		SetJsonMarshal(codec.Marshal).
		SetJsonUnmarshal(codec.Unmarshal)
	if cfg.Username != "" {
		client.SetCommonBasicAuth(cfg.Username, cfg.Password)
	}

	return &Backend{client: client, base: base}, nil
}

func (b *Backend) String() string {
	redacted := *b.base
	redacted.User = nil
	return "webdav@" + redacted.String()
}

func (b *Backend) LoadDocument(ctx context.Context, name string) ([]byte, error) {
	target := b.url(name)
	resp, err := b.client.R().
		SetContext(ctx).
		Get(target)
	if err := checkResponse(resp, err, http.MethodGet, target); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

func (b *Backend) StoreDocument(ctx context.Context, name string, data []byte) error {
	if err := b.ensureCollection(ctx); err != nil {
		return err
	}

	target := b.url(name)
	resp, err := b.client.R().
		SetContext(ctx).
		SetContentType(contentTypeJSON).
		SetBody(data).
		Put(target)
	return checkResponse(resp, err, http.MethodPut, target)
}

func (b *Backend) LoadArtifact(ctx context.Context, name, destination string) error {
	if err := utils.EnsureParent(destination); err != nil {
		return err
	}

	target := b.url(name)
	resp, err := b.client.R().
		DisableAutoReadResponse().
		SetContext(ctx).
		SetOutputFile(destination).
		Get(target)
	if err := checkResponse(resp, err, http.MethodGet, target); err != nil {
		// error bodies are written to the output file too
		os.Remove(destination)
		return err
	}
	return nil
}

func (b *Backend) StoreArtifact(ctx context.Context, name, source string) error {
	if err := b.ensureCollection(ctx); err != nil {
		return err
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	target := b.url(name)
	resp, err := b.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetContentType(contentTypeZip).
		SetBody(f).
		Put(target)
	return checkResponse(resp, err, http.MethodPut, target)
}

func (b *Backend) RenameArtifact(ctx context.Context, oldName, newName string) error {
	if err := b.exists(ctx, oldName); err != nil {
		return err
	}

	source := b.url(oldName)
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader(headerDestination, b.url(newName)).
		SetHeader(headerOverwrite, "T").
		Send(methodMove, source)
	return checkResponse(resp, err, methodMove, source)
}

func (b *Backend) DeleteArtifact(ctx context.Context, name string) error {
	target := b.url(name)
	resp, err := b.client.R().
		SetContext(ctx).
		Delete(target)
	return checkResponse(resp, err, http.MethodDelete, target)
}

func (b *Backend) exists(ctx context.Context, name string) error {
	target := b.url(name)
	resp, err := b.client.R().
		SetContext(ctx).
		Head(target)
	return checkResponse(resp, err, http.MethodHead, target)
}

// ensureCollection creates the base collection and its parents. MKCOL on an
// existing collection answers 405, which counts as success.
func (b *Backend) ensureCollection(ctx context.Context) error {
	if b.collectionReady {
		return nil
	}

	segments := strings.Split(strings.Trim(b.base.Path, "/"), "/")
	current := *b.base
	current.Path = "/"
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		current.Path += seg + "/"
		target := current.String()

		resp, err := b.client.R().
			SetContext(ctx).
			Send(methodMkcol, target)
		if err != nil {
			return fmt.Errorf("webdav: %s %s: %w", methodMkcol, target, err)
		}
		switch resp.GetStatusCode() {
		case http.StatusCreated, http.StatusMethodNotAllowed, http.StatusOK:
		default:
			return &StatusError{Method: methodMkcol, URL: target, Status: resp.GetStatusCode()}
		}
	}

	b.collectionReady = true
	return nil
}

func (b *Backend) url(name string) string {
	return b.base.JoinPath(name).String()
}

func checkResponse(resp *req.Response, err error, method, target string) error {
	if err != nil {
		return fmt.Errorf("webdav: %s %s: %w", method, target, err)
	}
	if resp.GetStatusCode() == http.StatusNotFound {
		return fmt.Errorf("webdav: %s %s: %w", method, target, backend.ErrNotFound)
	}
	if resp.IsErrorState() {
		return &StatusError{Method: method, URL: target, Status: resp.GetStatusCode()}
	}
	return nil
}

// IsStatus reports whether err is a StatusError carrying status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
